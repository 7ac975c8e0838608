// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package decoder

import "net/netip"

// DummyDecoder is a simple decoder producing one flow per payload,
// with the payload length as byte count.
type DummyDecoder struct{}

// Decode returns uninteresting flow messages.
func (dc *DummyDecoder) Decode(in RawFlow) []*FlowMessage {
	exporterAddress, _ := netip.AddrFromSlice(in.Source.To16())
	f := &FlowMessage{
		TimeReceived:    uint64(in.TimeReceived.UTC().Unix()),
		ExporterAddress: exporterAddress,
		SrcAddr:         netip.MustParseAddr("::ffff:127.0.0.1"),
		DstAddr:         netip.MustParseAddr("::ffff:127.0.0.2"),
		Bytes:           uint64(len(in.Payload)),
		Packets:         1,
	}
	f.Mark(FieldBytes | FieldPackets)
	return []*FlowMessage{f}
}

// Name returns the decoder name.
func (dc *DummyDecoder) Name() string {
	return "dummy"
}
