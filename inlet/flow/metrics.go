// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import "flowmill/common/reporter"

type metrics struct {
	decoderStats    *reporter.CounterVec
	decoderErrors   *reporter.CounterVec
	decoderTime     *reporter.SummaryVec
	rejectedPackets *reporter.CounterVec
	rateLimitDrops  *reporter.CounterVec
}

func (c *Component) initMetrics() {
	c.metrics.decoderStats = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "decoder_packets_total",
			Help: "Packets processed by a decoder.",
		},
		[]string{"name"},
	)
	c.metrics.decoderErrors = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "decoder_errors_total",
			Help: "Packets failing decoding.",
		},
		[]string{"name"},
	)
	c.metrics.decoderTime = c.r.SummaryVec(
		reporter.SummaryOpts{
			Name:       "decoding_time_seconds",
			Help:       "Decoding time summary.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"name"},
	)
	c.metrics.rejectedPackets = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "rejected_packets_total",
			Help: "Packets rejected before decoding.",
		},
		[]string{"exporter", "reason"},
	)
	c.metrics.rateLimitDrops = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "rate_limit_dropped_flows_total",
			Help: "Flows dropped by the per-exporter rate limiter.",
		},
		[]string{"exporter"},
	)
}
