// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package core

import "flowmill/common/reporter"

type metrics struct {
	flowsReceived    *reporter.CounterVec
	flowsRejected    *reporter.CounterVec
	flowsForwarded   *reporter.CounterVec
	fieldsDropped    reporter.Counter
	flushes          *reporter.CounterVec
	flushedItems     reporter.Counter
	batchSizes       reporter.Summary
	currentBatchSize reporter.GaugeFunc
}

func (c *Component) initMetrics() {
	c.metrics.flowsReceived = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "flows_received",
			Help: "Number of incoming flows.",
		},
		[]string{"exporter"},
	)
	c.metrics.flowsRejected = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "flows_rejected",
			Help: "Number of flows rejected during sanitization.",
		},
		[]string{"exporter", "reason"},
	)
	c.metrics.flowsForwarded = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "flows_forwarded",
			Help: "Number of flows forwarded to storage.",
		},
		[]string{"exporter"},
	)
	c.metrics.fieldsDropped = c.r.Counter(
		reporter.CounterOpts{
			Name: "fields_dropped",
			Help: "Number of out-of-range fields cleared during sanitization.",
		},
	)
	c.metrics.flushes = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "flushes_total",
			Help: "Number of batch flushes.",
		},
		[]string{"trigger"},
	)
	c.metrics.flushedItems = c.r.Counter(
		reporter.CounterOpts{
			Name: "flushed_items_total",
			Help: "Number of items handed to storage.",
		},
	)
	c.metrics.batchSizes = c.r.Summary(
		reporter.SummaryOpts{
			Name:       "batch_size",
			Help:       "Size of flushed batches.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
	)
	c.metrics.currentBatchSize = c.r.GaugeFunc(
		reporter.GaugeOpts{
			Name: "current_batch_size",
			Help: "Current target batch size of the controller.",
		},
		func() float64 {
			return float64(c.batcher.size())
		},
	)
}
