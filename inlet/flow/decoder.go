// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"time"

	"flowmill/inlet/flow/decoder"
	"flowmill/inlet/flow/decoder/netflow"
	"flowmill/inlet/flow/decoder/sflow"
)

// Message is an alias for a decoded flow message.
type Message = decoder.FlowMessage

var (
	netflowDecoder decoder.NewDecoderFunc = netflow.New
	sflowDecoder   decoder.NewDecoderFunc = sflow.New
)

// processRawFlow validates, decodes and forwards one datagram.
func (c *Component) processRawFlow(config InputConfiguration, in decoder.RawFlow) {
	exporter := in.Source.String()
	protocol := decoder.Detect(in.Payload)
	if protocol == decoder.ProtocolUnknown {
		c.metrics.rejectedPackets.WithLabelValues(exporter, "unknown protocol").Inc()
		return
	}
	if err := validatePacket(protocol, in.Payload); err != nil {
		c.metrics.rejectedPackets.WithLabelValues(exporter, err.Error()).Inc()
		return
	}

	d := c.decoders[protocol]
	timeTrackStart := time.Now()
	decoded := d.Decode(in)
	timeTrackStop := time.Now()

	if decoded == nil {
		c.metrics.decoderErrors.WithLabelValues(d.Name()).Inc()
		return
	}
	c.metrics.decoderTime.WithLabelValues(d.Name()).
		Observe(float64((timeTrackStop.Sub(timeTrackStart)).Nanoseconds()) / 1000 / 1000 / 1000)
	c.metrics.decoderStats.WithLabelValues(d.Name()).Inc()

	for _, f := range decoded {
		f.Protocol = protocol
		if config.UseSrcAddrForExporterAddr {
			f.ExporterAddress = decoder.DecodeIP(in.Source)
		}
	}
	if !c.allowMessages(decoded) {
		c.metrics.rateLimitDrops.WithLabelValues(exporter).Add(float64(len(decoded)))
		return
	}
	for _, f := range decoded {
		select {
		case c.incomingFlows <- f:
		case <-c.t.Dying():
			return
		}
	}
}
