// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Aliases for option types of the prometheus package.
type (
	// CounterOpts is an alias for the same structure from the Prometheus package
	CounterOpts = prometheus.CounterOpts
	// GaugeOpts is an alias for the same structure from the Prometheus package
	GaugeOpts = prometheus.GaugeOpts
	// HistogramOpts is an alias for the same structure from the Prometheus package
	HistogramOpts = prometheus.HistogramOpts
	// SummaryOpts is an alias for the same structure from the Prometheus package
	SummaryOpts = prometheus.SummaryOpts
	// Counter is an alias for the same interface from the Prometheus package
	Counter = prometheus.Counter
	// Gauge is an alias for the same interface from the Prometheus package
	Gauge = prometheus.Gauge
	// GaugeFunc is an alias for the same interface from the Prometheus package
	GaugeFunc = prometheus.GaugeFunc
	// Histogram is an alias for the same interface from the Prometheus package
	Histogram = prometheus.Histogram
	// Summary is an alias for the same interface from the Prometheus package
	Summary = prometheus.Summary
	// CounterVec is an alias for the same structure from the Prometheus package
	CounterVec = prometheus.CounterVec
	// GaugeVec is an alias for the same structure from the Prometheus package
	GaugeVec = prometheus.GaugeVec
	// HistogramVec is an alias for the same structure from the Prometheus package
	HistogramVec = prometheus.HistogramVec
	// SummaryVec is an alias for the same structure from the Prometheus package
	SummaryVec = prometheus.SummaryVec
)

// Counter registers and returns a new counter. The name is prefixed
// with the calling module.
func (r *Reporter) Counter(opts CounterOpts) prometheus.Counter {
	return r.metrics.Factory(1).NewCounter(opts)
}

// CounterFunc registers and returns a new counter whose value is
// provided by a function.
func (r *Reporter) CounterFunc(opts CounterOpts, function func() float64) prometheus.CounterFunc {
	return r.metrics.Factory(1).NewCounterFunc(opts, function)
}

// CounterVec registers and returns a new counter vector.
func (r *Reporter) CounterVec(opts CounterOpts, labelNames []string) *prometheus.CounterVec {
	return r.metrics.Factory(1).NewCounterVec(opts, labelNames)
}

// Gauge registers and returns a new gauge.
func (r *Reporter) Gauge(opts GaugeOpts) prometheus.Gauge {
	return r.metrics.Factory(1).NewGauge(opts)
}

// GaugeFunc registers and returns a new gauge whose value is provided
// by a function.
func (r *Reporter) GaugeFunc(opts GaugeOpts, function func() float64) prometheus.GaugeFunc {
	return r.metrics.Factory(1).NewGaugeFunc(opts, function)
}

// GaugeVec registers and returns a new gauge vector.
func (r *Reporter) GaugeVec(opts GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	return r.metrics.Factory(1).NewGaugeVec(opts, labelNames)
}

// Histogram registers and returns a new histogram.
func (r *Reporter) Histogram(opts HistogramOpts) prometheus.Histogram {
	return r.metrics.Factory(1).NewHistogram(opts)
}

// HistogramVec registers and returns a new histogram vector.
func (r *Reporter) HistogramVec(opts HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	return r.metrics.Factory(1).NewHistogramVec(opts, labelNames)
}

// Summary registers and returns a new summary.
func (r *Reporter) Summary(opts SummaryOpts) prometheus.Summary {
	return r.metrics.Factory(1).NewSummary(opts)
}

// SummaryVec registers and returns a new summary vector.
func (r *Reporter) SummaryVec(opts SummaryOpts, labelNames []string) *prometheus.SummaryVec {
	return r.metrics.Factory(1).NewSummaryVec(opts, labelNames)
}

// MetricCollector registers a custom collector.
func (r *Reporter) MetricCollector(c prometheus.Collector) {
	r.metrics.Collector(c)
}

// MetricsHTTPHandler returns the HTTP handler serving the metrics in
// the Prometheus exposition format.
func (r *Reporter) MetricsHTTPHandler() http.Handler {
	return r.metrics.HTTPHandler()
}
