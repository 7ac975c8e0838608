// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import "flowmill/common/reporter"

type metrics struct {
	batches       *reporter.CounterVec
	items         *reporter.CounterVec
	batchDuration reporter.Histogram
}

func (c *Component) initMetrics() {
	c.metrics.batches = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "batches_total",
			Help: "Number of batch inserts.",
		},
		[]string{"status"},
	)
	c.metrics.items = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "items_total",
			Help: "Number of items stored or discarded.",
		},
		[]string{"status"},
	)
	c.metrics.batchDuration = c.r.Histogram(
		reporter.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Duration of batch inserts.",
			Buckets: []float64{.005, .025, .1, .25, 1, 5},
		},
	)
}
