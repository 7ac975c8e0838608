// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"encoding/binary"
	"errors"

	"flowmill/inlet/flow/decoder"
)

// Structural limits enforced before any decoder runs. They guard
// against corrupt length and count fields.
const (
	maxPacketLength    = 65535
	maxNetFlowV5Count  = 30
	maxNetFlowV9Count  = 1000
	maxSFlowSampleKept = 10000
)

// Typed rejection reasons.
var (
	errPacketTooShort = errors.New("packet too short")
	errPacketTooLong  = errors.New("packet too long")
	errBadRecordCount = errors.New("invalid record count")
	errShortForCount  = errors.New("packet shorter than declared records")
	errLengthMismatch = errors.New("declared length does not match packet")
	errTooManySamples = errors.New("too many samples")
)

// validatePacket enforces structural invariants on a packet before it
// reaches a decoder.
func validatePacket(protocol decoder.ProtocolVersion, payload []byte) error {
	if len(payload) == 0 {
		return errPacketTooShort
	}
	if len(payload) > maxPacketLength {
		return errPacketTooLong
	}
	switch protocol {
	case decoder.ProtocolNetFlowV5:
		count := int(binary.BigEndian.Uint16(payload[2:4]))
		if count > maxNetFlowV5Count {
			return errBadRecordCount
		}
		if len(payload) < 24+48*count {
			return errShortForCount
		}
	case decoder.ProtocolNetFlowV9:
		count := int(binary.BigEndian.Uint16(payload[2:4]))
		if count > maxNetFlowV9Count {
			return errBadRecordCount
		}
	case decoder.ProtocolIPFIX:
		if int(binary.BigEndian.Uint16(payload[2:4])) != len(payload) {
			return errLengthMismatch
		}
	case decoder.ProtocolSFlowV4, decoder.ProtocolSFlowV5:
		offset := 24
		if binary.BigEndian.Uint32(payload[4:8]) == 2 {
			offset = 36 // IPv6 agent address
		}
		if len(payload) < offset+4 {
			return errPacketTooShort
		}
		if binary.BigEndian.Uint32(payload[offset:offset+4]) > maxSFlowSampleKept {
			return errTooManySamples
		}
	}
	return nil
}
