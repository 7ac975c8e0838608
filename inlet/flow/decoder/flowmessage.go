// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package decoder

import "net/netip"

// FieldMask records which optional fields of a FlowMessage carry a
// value. Sanitization clears individual bits when a field is out of
// range instead of rejecting the whole record.
type FieldMask uint32

// Bits for FieldMask.
const (
	FieldSrcPort FieldMask = 1 << iota
	FieldDstPort
	FieldProto
	FieldIPTos
	FieldTCPFlags
	FieldBytes
	FieldPackets
	FieldTimeFlowStart
	FieldTimeFlowEnd
)

// FlowMessage is the decoded representation of a single flow record.
// SrcAddr and DstAddr are the only required fields. The other fields
// are only meaningful when the matching FieldMask bit is set.
type FlowMessage struct {
	// TimeReceived is the time the datagram was received, as a
	// Unix timestamp in seconds.
	TimeReceived uint64
	// ExporterAddress is the address of the device that exported
	// the flow.
	ExporterAddress netip.Addr
	// Protocol is the flow export protocol the record was decoded
	// from. It is set by the flow component, not by decoders.
	Protocol ProtocolVersion

	SrcAddr netip.Addr
	DstAddr netip.Addr

	EType         uint16
	SrcPort       uint16
	DstPort       uint16
	Proto         uint8
	IPTos         uint8
	TCPFlags      uint8
	InIf          uint32
	OutIf         uint32
	SrcAS         uint32
	DstAS         uint32
	SamplingRate  uint64
	Bytes         uint64
	Packets       uint64
	TimeFlowStart uint64
	TimeFlowEnd   uint64

	Fields FieldMask
}

// Has tells if the given fields are all present.
func (f *FlowMessage) Has(fields FieldMask) bool {
	return f.Fields&fields == fields
}

// Mark flags the given fields as present.
func (f *FlowMessage) Mark(fields FieldMask) {
	f.Fields |= fields
}

// Clear flags the given fields as absent.
func (f *FlowMessage) Clear(fields FieldMask) {
	f.Fields &^= fields
}
