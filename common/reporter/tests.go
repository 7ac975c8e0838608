// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package reporter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

// NewMock creates a new reporter for tests.
func NewMock(t *testing.T) *Reporter {
	t.Helper()
	r, err := New(DefaultConfiguration())
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	return r
}

// GetMetrics returns a snapshot of all registered metrics matching
// the provided prefix. The prefix is stripped from the metric names.
// An optional list of sub-prefixes can be provided to restrict the
// returned metrics further. Labels are rendered in a stable order.
func (r *Reporter) GetMetrics(prefix string, subset ...string) map[string]string {
	results := map[string]string{}
	families, err := r.metrics.Registry().Gather()
	if err != nil {
		panic(err)
	}
	for _, family := range families {
		name := family.GetName()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		name = strings.TrimPrefix(name, prefix)
		if len(subset) > 0 {
			found := false
			for _, oneSubset := range subset {
				if strings.HasPrefix(name, oneSubset) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		for _, metric := range family.GetMetric() {
			labels := formatLabels(metric.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				results[name+labels] = formatValue(metric.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				results[name+labels] = formatValue(metric.GetGauge().GetValue())
			case dto.MetricType_SUMMARY:
				summary := metric.GetSummary()
				results[name+"_count"+labels] = strconv.FormatUint(summary.GetSampleCount(), 10)
				results[name+"_sum"+labels] = formatValue(summary.GetSampleSum())
				for _, quantile := range summary.GetQuantile() {
					quantileLabels := formatLabels(metric.GetLabel(),
						fmt.Sprintf(`quantile="%s"`, formatValue(quantile.GetQuantile())))
					results[name+quantileLabels] = formatValue(quantile.GetValue())
				}
			case dto.MetricType_HISTOGRAM:
				histogram := metric.GetHistogram()
				results[name+"_count"+labels] = strconv.FormatUint(histogram.GetSampleCount(), 10)
				results[name+"_sum"+labels] = formatValue(histogram.GetSampleSum())
				for _, bucket := range histogram.GetBucket() {
					bucketLabels := formatLabels(metric.GetLabel(),
						fmt.Sprintf(`le="%s"`, formatValue(bucket.GetUpperBound())))
					results[name+"_bucket"+bucketLabels] = strconv.FormatUint(bucket.GetCumulativeCount(), 10)
				}
			case dto.MetricType_UNTYPED:
				results[name+labels] = formatValue(metric.GetUntyped().GetValue())
			}
		}
	}
	return results
}

func formatLabels(labelPairs []*dto.LabelPair, extra ...string) string {
	labels := make([]string, 0, len(labelPairs)+len(extra))
	for _, pair := range labelPairs {
		labels = append(labels, fmt.Sprintf(`%s="%s"`, pair.GetName(), pair.GetValue()))
	}
	labels = append(labels, extra...)
	if len(labels) == 0 {
		return ""
	}
	sort.Strings(labels)
	return fmt.Sprintf("{%s}", strings.Join(labels, ","))
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
