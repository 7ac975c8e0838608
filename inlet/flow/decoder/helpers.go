// SPDX-FileCopyrightText: 2023 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package decoder

import (
	"encoding/binary"
	"net/netip"
)

// Ethertypes we care about.
const (
	ETypeIPv4 = 0x0800
	ETypeIPv6 = 0x86dd
)

// DecodeUNumber decodes a big-endian unsigned number of 1 to 8 bytes.
// Odd lengths are accepted as some exporters use 3- or 6-byte fields.
func DecodeUNumber(b []byte) uint64 {
	var o uint64
	l := len(b)
	switch l {
	case 1:
		o = uint64(b[0])
	case 2:
		o = uint64(binary.BigEndian.Uint16(b))
	case 4:
		o = uint64(binary.BigEndian.Uint32(b))
	case 8:
		o = binary.BigEndian.Uint64(b)
	default:
		if l < 8 {
			var iter uint
			for i := range b {
				o |= uint64(b[i]) << uint(8*(uint(l)-iter-1))
				iter++
			}
		} else {
			return 0
		}
	}
	return o
}

// DecodeIP decodes an IP address from a 4- or 16-byte slice. The
// result is always in 16-byte form. An invalid length yields the zero
// address.
func DecodeIP(b []byte) netip.Addr {
	if ip, ok := netip.AddrFromSlice(b); ok {
		return netip.AddrFrom16(ip.As16())
	}
	return netip.Addr{}
}

// ParseIPv4 parses an IPv4 packet into bf and returns the layer-3 length.
func ParseIPv4(bf *FlowMessage, data []byte) uint64 {
	if len(data) < 20 {
		return 0
	}
	bf.EType = ETypeIPv4
	l3length := uint64(binary.BigEndian.Uint16(data[2:4]))
	bf.SrcAddr = DecodeIP(data[12:16])
	bf.DstAddr = DecodeIP(data[16:20])
	bf.IPTos = data[1]
	proto := data[9]
	bf.Proto = proto
	bf.Mark(FieldProto | FieldIPTos)
	fragoffset := binary.BigEndian.Uint16(data[6:8]) & 0x1fff
	ihl := int((data[0] & 0xf) * 4)
	if len(data) >= ihl {
		data = data[ihl:]
	} else {
		data = data[:0]
	}
	if fragoffset == 0 {
		ParseL4(bf, data, proto)
	}
	return l3length
}

// ParseIPv6 parses an IPv6 packet into bf and returns the layer-3 length.
func ParseIPv6(bf *FlowMessage, data []byte) uint64 {
	if len(data) < 40 {
		return 0
	}
	bf.EType = ETypeIPv6
	l3length := uint64(binary.BigEndian.Uint16(data[4:6])) + 40
	bf.SrcAddr = DecodeIP(data[8:24])
	bf.DstAddr = DecodeIP(data[24:40])
	bf.IPTos = uint8(binary.BigEndian.Uint16(data[0:2]) & 0xff0 >> 4)
	proto := data[6]
	bf.Proto = proto
	bf.Mark(FieldProto | FieldIPTos)
	ParseL4(bf, data[40:], proto)
	return l3length
}

// ParseL4 extracts ports and TCP flags from the L4 layer.
func ParseL4(bf *FlowMessage, data []byte, proto uint8) {
	if proto == 6 || proto == 17 {
		// UDP or TCP
		if len(data) > 4 {
			bf.SrcPort = binary.BigEndian.Uint16(data[0:2])
			bf.DstPort = binary.BigEndian.Uint16(data[2:4])
			bf.Mark(FieldSrcPort | FieldDstPort)
		}
	}
	if proto == 6 {
		// TCP
		if len(data) > 13 {
			bf.TCPFlags = data[13]
			bf.Mark(FieldTCPFlags)
		}
	}
}

// ParseEthernet parses an Ethernet frame into bf and returns the
// layer-3 length. 802.1q and MPLS encapsulations are skipped over.
func ParseEthernet(bf *FlowMessage, data []byte) uint64 {
	if len(data) < 14 {
		return 0
	}
	etherType := data[12:14]
	data = data[14:]
	for etherType[0] == 0x81 && etherType[1] == 0x00 {
		// 802.1q
		if len(data) < 4 {
			return 0
		}
		etherType = data[2:4]
		data = data[4:]
	}
	if etherType[0] == 0x88 && etherType[1] == 0x47 {
		// MPLS
		for {
			if len(data) < 5 {
				return 0
			}
			label := binary.BigEndian.Uint32(append([]byte{0}, data[:3]...)) >> 4
			bottom := data[2] & 1
			data = data[4:]
			if bottom == 1 || label <= 15 {
				if data[0]&0xf0>>4 == 4 {
					etherType = []byte{0x8, 0x0}
				} else if data[0]&0xf0>>4 == 6 {
					etherType = []byte{0x86, 0xdd}
				} else {
					return 0
				}
				break
			}
		}
	}
	if etherType[0] == 0x8 && etherType[1] == 0x0 {
		return ParseIPv4(bf, data)
	} else if etherType[0] == 0x86 && etherType[1] == 0xdd {
		return ParseIPv6(bf, data)
	}
	return 0
}
