// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package decoder

import (
	"encoding/binary"
	"testing"

	"flowmill/common/helpers"
)

func TestDetect(t *testing.T) {
	mk := func(size int, width int, version uint32) []byte {
		buf := make([]byte, size)
		switch width {
		case 2:
			binary.BigEndian.PutUint16(buf, uint16(version))
		case 4:
			binary.BigEndian.PutUint32(buf, version)
		}
		return buf
	}
	cases := []struct {
		Name     string
		Payload  []byte
		Expected ProtocolVersion
	}{
		{"netflow v5", mk(24, 2, 5), ProtocolNetFlowV5},
		{"netflow v5 truncated", mk(23, 2, 5), ProtocolUnknown},
		{"netflow v9", mk(20, 2, 9), ProtocolNetFlowV9},
		{"ipfix", mk(16, 2, 10), ProtocolIPFIX},
		{"sflow v5", mk(28, 4, 5), ProtocolSFlowV5},
		{"sflow v4", mk(28, 4, 4), ProtocolSFlowV4},
		{"sflow truncated", mk(27, 4, 5), ProtocolUnknown},
		{"garbage", []byte{0xca, 0xfe}, ProtocolUnknown},
		{"empty", nil, ProtocolUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			if got := Detect(tc.Payload); got != tc.Expected {
				t.Errorf("Detect() == %s, expected %s", got, tc.Expected)
			}
		})
	}
}

func TestDecodeUNumber(t *testing.T) {
	cases := []struct {
		Input    []byte
		Expected uint64
	}{
		{[]byte{0x11}, 0x11},
		{[]byte{0x11, 0x22}, 0x1122},
		{[]byte{0x11, 0x22, 0x33}, 0x112233},
		{[]byte{0x11, 0x22, 0x33, 0x44}, 0x11223344},
		{[]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}, 0x1122334455667788},
		{[]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, 0},
	}
	for _, tc := range cases {
		if got := DecodeUNumber(tc.Input); got != tc.Expected {
			t.Errorf("DecodeUNumber(%v) == %x, expected %x", tc.Input, got, tc.Expected)
		}
	}
}

func TestParseEthernet(t *testing.T) {
	packet := []byte{
		// Ethernet
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05,
		0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b,
		0x08, 0x00,
		// IPv4
		0x45, 0x00, 0x00, 0x3c, 0x1c, 0x46, 0x40, 0x00,
		0x40, 0x06, 0x00, 0x00,
		0xc0, 0x00, 0x02, 0x01, // 192.0.2.1
		0xc0, 0x00, 0x02, 0x02, // 192.0.2.2
		// TCP
		0x04, 0xd2, 0x00, 0x50, // 1234 → 80
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x50, 0x12, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	var bf FlowMessage
	l3length := ParseEthernet(&bf, packet)
	if l3length != 60 {
		t.Errorf("ParseEthernet() l3length == %d, expected 60", l3length)
	}
	got := FlowMessage{
		SrcAddr:  bf.SrcAddr,
		DstAddr:  bf.DstAddr,
		SrcPort:  bf.SrcPort,
		DstPort:  bf.DstPort,
		Proto:    bf.Proto,
		TCPFlags: bf.TCPFlags,
		EType:    bf.EType,
	}
	expected := FlowMessage{
		SrcAddr:  DecodeIP([]byte{192, 0, 2, 1}),
		DstAddr:  DecodeIP([]byte{192, 0, 2, 2}),
		SrcPort:  1234,
		DstPort:  80,
		Proto:    6,
		TCPFlags: 0x12,
		EType:    ETypeIPv4,
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Errorf("ParseEthernet() (-got, +want):\n%s", diff)
	}
	if !bf.Has(FieldSrcPort | FieldDstPort | FieldProto | FieldIPTos | FieldTCPFlags) {
		t.Errorf("ParseEthernet() field mask == %b", bf.Fields)
	}
}
