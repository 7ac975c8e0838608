// SPDX-FileCopyrightText: 2022 Tchadel Icard
// SPDX-License-Identifier: AGPL-3.0-only

// Package sflow handles sFlow v4 and v5 decoding.
package sflow

import (
	"encoding/binary"
	"time"

	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
)

// Decoder contains the state for the sFlow decoder.
type Decoder struct {
	r         *reporter.Reporter
	errLogger reporter.Logger

	metrics struct {
		errors             *reporter.CounterVec
		stats              *reporter.CounterVec
		setRecordsStatsSum *reporter.CounterVec
		setStatsSum        *reporter.CounterVec
	}
}

// New instantiates a new sFlow decoder.
func New(r *reporter.Reporter) decoder.Decoder {
	nd := &Decoder{
		r:         r,
		errLogger: r.Sample(reporter.BurstSampler(30*time.Second, 3)),
	}

	nd.metrics.errors = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "sFlows processed errors.",
		},
		[]string{"exporter", "error"},
	)
	nd.metrics.stats = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "flows_total",
			Help: "sFlows processed.",
		},
		[]string{"exporter", "agent", "version"},
	)
	nd.metrics.setRecordsStatsSum = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "sample_records_sum",
			Help: "sFlows samples sum of records.",
		},
		[]string{"exporter", "agent", "version", "type"},
	)
	nd.metrics.setStatsSum = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "sample_sum",
			Help: "sFlows samples sum.",
		},
		[]string{"exporter", "agent", "version", "type"},
	)

	return nd
}

// Decode decodes an sFlow payload.
func (nd *Decoder) Decode(in decoder.RawFlow) []*decoder.FlowMessage {
	key := in.Source.String()
	pkt, err := parsePacket(in.Payload)
	if err != nil {
		nd.metrics.errors.WithLabelValues(key, err.Error()).Inc()
		nd.errLogger.Debug().Str("exporter", key).Err(err).Msg("cannot decode sFlow packet")
		return nil
	}
	agent := pkt.AgentAddress.Unmap().String()
	nd.metrics.stats.WithLabelValues(key, agent, pkt.Version).Inc()

	ts := uint64(in.TimeReceived.UTC().Unix())
	flowMessageSet := []*decoder.FlowMessage{}
	for _, sample := range pkt.Samples {
		nd.metrics.setStatsSum.WithLabelValues(key, agent, pkt.Version, sample.Type).Inc()
		nd.metrics.setRecordsStatsSum.WithLabelValues(key, agent, pkt.Version, sample.Type).
			Add(float64(sample.Records))
		if sample.Flow == nil {
			continue
		}
		bf := sample.Flow
		bf.TimeReceived = ts
		bf.ExporterAddress = pkt.AgentAddress
		flowMessageSet = append(flowMessageSet, bf)
	}
	return flowMessageSet
}

// Name returns the name of the decoder.
func (nd *Decoder) Name() string {
	return "sflow"
}

func u32(b []byte, offset int) uint32 {
	return binary.BigEndian.Uint32(b[offset : offset+4])
}
