// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package netflow handles NetFlow v5, NetFlow v9 and IPFIX decoding.
package netflow

import (
	"encoding/binary"
	"sync"
	"time"

	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
)

// Decoder contains the state for the NetFlow decoder. Template state
// is kept per exporter.
type Decoder struct {
	r         *reporter.Reporter
	errLogger reporter.Logger

	systemsLock sync.RWMutex
	templates   map[string]*templateSystem

	metrics struct {
		errors             *reporter.CounterVec
		stats              *reporter.CounterVec
		setRecordsStatsSum *reporter.CounterVec
		setStatsSum        *reporter.CounterVec
		templatesStats     *reporter.CounterVec
	}
}

// New instantiates a new netflow decoder.
func New(r *reporter.Reporter) decoder.Decoder {
	nd := &Decoder{
		r:         r,
		errLogger: r.Sample(reporter.BurstSampler(30*time.Second, 3)),
		templates: map[string]*templateSystem{},
	}

	nd.metrics.errors = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Netflows processed errors.",
		},
		[]string{"exporter", "error"},
	)
	nd.metrics.stats = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "flows_total",
			Help: "Netflows processed.",
		},
		[]string{"exporter", "version"},
	)
	nd.metrics.setRecordsStatsSum = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "flowset_records_sum",
			Help: "Netflows FlowSets sum of records.",
		},
		[]string{"exporter", "version", "type"},
	)
	nd.metrics.setStatsSum = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "flowset_sum",
			Help: "Netflows FlowSets sum.",
		},
		[]string{"exporter", "version", "type"},
	)
	nd.metrics.templatesStats = nd.r.CounterVec(
		reporter.CounterOpts{
			Name: "templates_total",
			Help: "Netflows Template count.",
		},
		[]string{"exporter", "version", "obs_domain_id", "template_id", "type"},
	)

	return nd
}

// Decode decodes a NetFlow payload.
func (nd *Decoder) Decode(in decoder.RawFlow) []*decoder.FlowMessage {
	if len(in.Payload) < 2 {
		return nil
	}
	key := in.Source.String()
	nd.systemsLock.RLock()
	templates, ok := nd.templates[key]
	nd.systemsLock.RUnlock()
	if !ok {
		templates = newTemplateSystem(nd, key)
		nd.systemsLock.Lock()
		nd.templates[key] = templates
		nd.systemsLock.Unlock()
	}

	ts := uint64(in.TimeReceived.UTC().Unix())
	version := binary.BigEndian.Uint16(in.Payload[:2])

	var flowMessageSet []*decoder.FlowMessage
	switch version {
	case 5:
		flowMessageSet = nd.decodeNFv5(key, in.Payload)
	case 9, 10:
		flowMessageSet = nd.decodeNFv9IPFIX(key, version, templates, in.Payload)
	default:
		nd.metrics.stats.WithLabelValues(key, "unknown").Inc()
		return nil
	}
	for _, fmsg := range flowMessageSet {
		fmsg.TimeReceived = ts
		fmsg.ExporterAddress = decoder.DecodeIP(in.Source)
	}
	return flowMessageSet
}

// Name returns the name of the decoder.
func (nd *Decoder) Name() string {
	return "netflow"
}
