// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package decoder handles the protocol-independent part of flow
// decoding: the raw flow representation, the protocol detector and
// the field codec shared by the per-protocol decoders.
package decoder

import (
	"encoding/binary"
	"net"
	"time"

	"flowmill/common/reporter"
)

// Decoder is the interface each decoder should implement.
type Decoder interface {
	// Decode takes a raw flow and returns a slice of flow
	// messages. Returning nil means there was an error during
	// decoding.
	Decode(in RawFlow) []*FlowMessage

	// Name returns the decoder name
	Name() string
}

// RawFlow is an undecoded flow.
type RawFlow struct {
	TimeReceived time.Time
	Payload      []byte
	Source       net.IP
}

// NewDecoderFunc is the signature of a function to instantiate a decoder.
type NewDecoderFunc func(*reporter.Reporter) Decoder

// ProtocolVersion identifies the flow export protocol of a datagram.
type ProtocolVersion int

// The set of flow export protocols we know how to decode.
const (
	ProtocolUnknown ProtocolVersion = iota
	ProtocolNetFlowV5
	ProtocolNetFlowV9
	ProtocolIPFIX
	ProtocolSFlowV4
	ProtocolSFlowV5
)

func (p ProtocolVersion) String() string {
	switch p {
	case ProtocolNetFlowV5:
		return "netflow-v5"
	case ProtocolNetFlowV9:
		return "netflow-v9"
	case ProtocolIPFIX:
		return "ipfix"
	case ProtocolSFlowV4:
		return "sflow-v4"
	case ProtocolSFlowV5:
		return "sflow-v5"
	}
	return "unknown"
}

// Type returns the protocol family, without the version.
func (p ProtocolVersion) Type() string {
	switch p {
	case ProtocolNetFlowV5, ProtocolNetFlowV9:
		return "netflow"
	case ProtocolIPFIX:
		return "ipfix"
	case ProtocolSFlowV4, ProtocolSFlowV5:
		return "sflow"
	}
	return "unknown"
}

// Version returns the on-wire version number of the protocol.
func (p ProtocolVersion) Version() int {
	switch p {
	case ProtocolNetFlowV5:
		return 5
	case ProtocolNetFlowV9:
		return 9
	case ProtocolIPFIX:
		return 10
	case ProtocolSFlowV4:
		return 4
	case ProtocolSFlowV5:
		return 5
	}
	return 0
}

// Detect inspects the first bytes of a datagram and classifies it.
// NetFlow and IPFIX carry a 16-bit version field, sFlow a 32-bit one.
// The minimum lengths match the fixed header of each protocol.
func Detect(payload []byte) ProtocolVersion {
	if len(payload) >= 24 && binary.BigEndian.Uint16(payload[0:2]) == 5 {
		return ProtocolNetFlowV5
	}
	if len(payload) >= 20 && binary.BigEndian.Uint16(payload[0:2]) == 9 {
		return ProtocolNetFlowV9
	}
	if len(payload) >= 16 && binary.BigEndian.Uint16(payload[0:2]) == 10 {
		return ProtocolIPFIX
	}
	if len(payload) >= 28 && binary.BigEndian.Uint32(payload[0:4]) == 5 {
		return ProtocolSFlowV5
	}
	if len(payload) >= 28 && binary.BigEndian.Uint32(payload[0:4]) == 4 {
		return ProtocolSFlowV4
	}
	return ProtocolUnknown
}
