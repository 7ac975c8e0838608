// SPDX-FileCopyrightText: 2022 Tchadel Icard
// SPDX-License-Identifier: AGPL-3.0-only

package sflow

import (
	"errors"
	"net/netip"

	"flowmill/inlet/flow/decoder"
)

// Sample types.
const (
	sampleTypeFlow         = 1
	sampleTypeCounter      = 2
	sampleTypeExpandedFlow = 3
)

// Flow record types.
const (
	recordTypeRawPacketHeader = 1
	recordTypeEthernet        = 2
	recordTypeIPv4            = 3
	recordTypeIPv6            = 4
)

// Header protocols for raw packet headers.
const (
	headerProtocolEthernet = 1
	headerProtocolIPv4     = 11
	headerProtocolIPv6     = 12
)

var (
	errTruncated     = errors.New("truncated packet")
	errVersion       = errors.New("unsupported version")
	errAddressFamily = errors.New("unknown agent address family")
)

// packet is a decoded sFlow datagram.
type packet struct {
	Version      string
	AgentAddress netip.Addr
	Samples      []sample
}

// sample is one sample of a datagram. Flow is nil for counter
// samples and for flow samples missing source or destination address.
type sample struct {
	Type    string
	Records int
	Flow    *decoder.FlowMessage
}

// parsePacket decodes an sFlow v4/v5 datagram. Both versions share
// the same outer framing.
func parsePacket(payload []byte) (*packet, error) {
	if len(payload) < 28 {
		return nil, errTruncated
	}
	version := u32(payload, 0)
	if version != 4 && version != 5 {
		return nil, errVersion
	}
	pkt := &packet{Version: "5"}
	if version == 4 {
		pkt.Version = "4"
	}
	var offset int
	switch u32(payload, 4) {
	case 1: // IPv4
		if len(payload) < 12 {
			return nil, errTruncated
		}
		pkt.AgentAddress = decoder.DecodeIP(payload[8:12])
		offset = 12
	case 2: // IPv6
		if len(payload) < 24 {
			return nil, errTruncated
		}
		pkt.AgentAddress = decoder.DecodeIP(payload[8:24])
		offset = 24
	default:
		return nil, errAddressFamily
	}
	// Sub-agent ID, sequence number and uptime are not used.
	if len(payload) < offset+16 {
		return nil, errTruncated
	}
	numSamples := int(u32(payload, offset+12))
	offset += 16

	for i := 0; i < numSamples; i++ {
		if len(payload) < offset+8 {
			return nil, errTruncated
		}
		sampleType := u32(payload, offset)
		sampleLength := int(u32(payload, offset+4))
		offset += 8
		if len(payload) < offset+sampleLength {
			return nil, errTruncated
		}
		data := payload[offset : offset+sampleLength]
		offset += sampleLength

		switch sampleType {
		case sampleTypeFlow:
			s := parseFlowSample(data, false)
			pkt.Samples = append(pkt.Samples, s)
		case sampleTypeExpandedFlow:
			s := parseFlowSample(data, true)
			pkt.Samples = append(pkt.Samples, s)
		case sampleTypeCounter:
			pkt.Samples = append(pkt.Samples, sample{Type: "CounterSample"})
		default:
			pkt.Samples = append(pkt.Samples, sample{Type: "UnknownSample"})
		}
	}
	return pkt, nil
}

// parseFlowSample decodes a flow sample. In the expanded form,
// source ID and interfaces use two words instead of one.
func parseFlowSample(data []byte, expanded bool) sample {
	s := sample{Type: "FlowSample"}
	if expanded {
		s.Type = "ExpandedFlowSample"
	}
	headerLength := 32 // seq, source_id, rate, pool, drops, input, output, num_records
	if expanded {
		headerLength = 44
	}
	if len(data) < headerLength {
		return s
	}
	bf := &decoder.FlowMessage{}
	var samplingRate uint64
	if expanded {
		// source_id and the interfaces take two words each, the
		// first one being the type/format word.
		samplingRate = uint64(u32(data, 12))
		bf.InIf = u32(data, 28)
		bf.OutIf = u32(data, 36)
	} else {
		samplingRate = uint64(u32(data, 8))
		bf.InIf = u32(data, 20)
		bf.OutIf = u32(data, 24)
	}
	bf.SamplingRate = samplingRate
	numRecords := int(u32(data, headerLength-4))
	data = data[headerLength:]

	var frameLength uint64
	for i := 0; i < numRecords; i++ {
		if len(data) < 8 {
			break
		}
		recordType := u32(data, 0)
		recordLength := int(u32(data, 4))
		data = data[8:]
		if len(data) < recordLength {
			break
		}
		record := data[:recordLength]
		data = data[recordLength:]
		s.Records++

		switch recordType {
		case recordTypeRawPacketHeader:
			if l := parseRawPacketHeader(bf, record); l > 0 {
				frameLength = l
			}
		case recordTypeEthernet:
			if len(record) >= 4 && frameLength == 0 {
				frameLength = uint64(u32(record, 0))
			}
		case recordTypeIPv4:
			if len(record) < 32 {
				continue
			}
			frameLength = uint64(u32(record, 0))
			bf.Proto = uint8(u32(record, 4))
			bf.SrcAddr = decoder.DecodeIP(record[8:12])
			bf.DstAddr = decoder.DecodeIP(record[12:16])
			bf.SrcPort = uint16(u32(record, 16))
			bf.DstPort = uint16(u32(record, 20))
			bf.TCPFlags = uint8(u32(record, 24))
			bf.IPTos = uint8(u32(record, 28))
			bf.EType = decoder.ETypeIPv4
			bf.Mark(decoder.FieldProto | decoder.FieldSrcPort | decoder.FieldDstPort |
				decoder.FieldTCPFlags | decoder.FieldIPTos)
		case recordTypeIPv6:
			if len(record) < 56 {
				continue
			}
			frameLength = uint64(u32(record, 0))
			bf.Proto = uint8(u32(record, 4))
			bf.SrcAddr = decoder.DecodeIP(record[8:24])
			bf.DstAddr = decoder.DecodeIP(record[24:40])
			bf.SrcPort = uint16(u32(record, 40))
			bf.DstPort = uint16(u32(record, 44))
			bf.TCPFlags = uint8(u32(record, 48))
			bf.IPTos = uint8(u32(record, 52))
			bf.EType = decoder.ETypeIPv6
			bf.Mark(decoder.FieldProto | decoder.FieldSrcPort | decoder.FieldDstPort |
				decoder.FieldTCPFlags | decoder.FieldIPTos)
		}
	}

	// A flow is only emitted when both addresses were found.
	if !bf.SrcAddr.IsValid() || !bf.DstAddr.IsValid() {
		return s
	}
	// The sampled frame stands for samplingRate frames on the wire.
	bf.Bytes = frameLength * samplingRate
	bf.Packets = samplingRate
	bf.Mark(decoder.FieldBytes | decoder.FieldPackets)
	s.Flow = bf
	return s
}

// parseRawPacketHeader decodes a raw packet header record and returns
// the original frame length.
func parseRawPacketHeader(bf *decoder.FlowMessage, record []byte) uint64 {
	if len(record) < 16 {
		return 0
	}
	headerProtocol := u32(record, 0)
	frameLength := uint64(u32(record, 4))
	headerSize := int(u32(record, 12))
	header := record[16:]
	if len(header) > headerSize {
		header = header[:headerSize]
	}
	switch headerProtocol {
	case headerProtocolEthernet:
		decoder.ParseEthernet(bf, header)
	case headerProtocolIPv4:
		decoder.ParseIPv4(bf, header)
	case headerProtocolIPv6:
		decoder.ParseIPv6(bf, header)
	}
	return frameLength
}
