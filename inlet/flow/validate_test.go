// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"encoding/binary"
	"testing"

	"flowmill/inlet/flow/decoder"
)

func TestValidatePacket(t *testing.T) {
	nfv5 := func(count uint16, records int) []byte {
		buf := make([]byte, 24+48*records)
		binary.BigEndian.PutUint16(buf[0:2], 5)
		binary.BigEndian.PutUint16(buf[2:4], count)
		return buf
	}
	ipfix := func(declared uint16, actual int) []byte {
		buf := make([]byte, actual)
		binary.BigEndian.PutUint16(buf[0:2], 10)
		binary.BigEndian.PutUint16(buf[2:4], declared)
		return buf
	}
	sflow := func(samples uint32) []byte {
		buf := make([]byte, 28)
		binary.BigEndian.PutUint32(buf[0:4], 5)
		binary.BigEndian.PutUint32(buf[4:8], 1)
		binary.BigEndian.PutUint32(buf[24:28], samples)
		return buf
	}

	cases := []struct {
		Name     string
		Protocol decoder.ProtocolVersion
		Payload  []byte
		Err      error
	}{
		{"valid netflow v5", decoder.ProtocolNetFlowV5, nfv5(2, 2), nil},
		{"netflow v5 too many records", decoder.ProtocolNetFlowV5, nfv5(31, 31), errBadRecordCount},
		{"netflow v5 short buffer", decoder.ProtocolNetFlowV5, nfv5(3, 2), errShortForCount},
		{"valid ipfix", decoder.ProtocolIPFIX, ipfix(40, 40), nil},
		{"ipfix length mismatch", decoder.ProtocolIPFIX, ipfix(40, 60), errLengthMismatch},
		{"valid sflow", decoder.ProtocolSFlowV5, sflow(2), nil},
		{"sflow too many samples", decoder.ProtocolSFlowV5, sflow(20000), errTooManySamples},
		{"empty", decoder.ProtocolNetFlowV9, nil, errPacketTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			if err := validatePacket(tc.Protocol, tc.Payload); err != tc.Err {
				t.Errorf("validatePacket() == %v, expected %v", err, tc.Err)
			}
		})
	}
}
