// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow

import (
	"flowmill/inlet/flow/decoder"
)

// NetFlow v9 field types (also valid for IPFIX information elements
// below 128).
const (
	fieldInBytes          = 1
	fieldInPackets        = 2
	fieldProtocol         = 4
	fieldSrcTos           = 5
	fieldTCPFlags         = 6
	fieldL4SrcPort        = 7
	fieldIPv4SrcAddr      = 8
	fieldInputSNMP        = 10
	fieldL4DstPort        = 11
	fieldIPv4DstAddr      = 12
	fieldOutputSNMP       = 14
	fieldSrcAS            = 16
	fieldDstAS            = 17
	fieldLastSwitched     = 21
	fieldFirstSwitched    = 22
	fieldOutBytes         = 23
	fieldOutPackets       = 24
	fieldIPv6SrcAddr      = 27
	fieldIPv6DstAddr      = 28
	fieldSamplingInterval = 34
)

// IPFIX-only information elements.
const (
	fieldFlowStartSeconds      = 150
	fieldFlowEndSeconds        = 151
	fieldFlowStartMilliseconds = 152
	fieldFlowEndMilliseconds   = 153
)

// decodeRecord decodes a single data record using the field layout
// from its template. Unknown field types are skipped. exportTime is
// used to convert uptime-relative timestamps.
func decodeRecord(tpl *template, record []byte, exportTime uint64) *decoder.FlowMessage {
	bf := &decoder.FlowMessage{}
	var offset int
	for _, field := range tpl.Fields {
		v := record[offset : offset+int(field.Length)]
		offset += int(field.Length)

		switch field.Type {
		// Statistics
		case fieldInBytes, fieldOutBytes:
			bf.Bytes = decoder.DecodeUNumber(v)
			bf.Mark(decoder.FieldBytes)
		case fieldInPackets, fieldOutPackets:
			bf.Packets = decoder.DecodeUNumber(v)
			bf.Mark(decoder.FieldPackets)

		// L3
		case fieldIPv4SrcAddr:
			bf.EType = decoder.ETypeIPv4
			bf.SrcAddr = decoder.DecodeIP(v)
		case fieldIPv4DstAddr:
			bf.EType = decoder.ETypeIPv4
			bf.DstAddr = decoder.DecodeIP(v)
		case fieldIPv6SrcAddr:
			bf.EType = decoder.ETypeIPv6
			bf.SrcAddr = decoder.DecodeIP(v)
		case fieldIPv6DstAddr:
			bf.EType = decoder.ETypeIPv6
			bf.DstAddr = decoder.DecodeIP(v)

		// L4. Out-of-range values mean the template was
		// misinterpreted, drop the field rather than truncate.
		case fieldL4SrcPort:
			if port := decoder.DecodeUNumber(v); port <= 65535 {
				bf.SrcPort = uint16(port)
				bf.Mark(decoder.FieldSrcPort)
			}
		case fieldL4DstPort:
			if port := decoder.DecodeUNumber(v); port <= 65535 {
				bf.DstPort = uint16(port)
				bf.Mark(decoder.FieldDstPort)
			}
		case fieldProtocol:
			if proto := decoder.DecodeUNumber(v); proto <= 255 {
				bf.Proto = uint8(proto)
				bf.Mark(decoder.FieldProto)
			}
		case fieldSrcTos:
			if tos := decoder.DecodeUNumber(v); tos <= 255 {
				bf.IPTos = uint8(tos)
				bf.Mark(decoder.FieldIPTos)
			}
		case fieldTCPFlags:
			if flags := decoder.DecodeUNumber(v); flags <= 255 {
				bf.TCPFlags = uint8(flags)
				bf.Mark(decoder.FieldTCPFlags)
			}

		// Network
		case fieldSrcAS:
			bf.SrcAS = uint32(decoder.DecodeUNumber(v))
		case fieldDstAS:
			bf.DstAS = uint32(decoder.DecodeUNumber(v))

		// Interfaces
		case fieldInputSNMP:
			bf.InIf = uint32(decoder.DecodeUNumber(v))
		case fieldOutputSNMP:
			bf.OutIf = uint32(decoder.DecodeUNumber(v))

		// Sampling
		case fieldSamplingInterval:
			bf.SamplingRate = decoder.DecodeUNumber(v)

		// Timestamps. FIRST/LAST_SWITCHED are uptime-relative
		// milliseconds, the IPFIX elements are absolute.
		case fieldFirstSwitched:
			bf.TimeFlowStart = exportTime + decoder.DecodeUNumber(v)/1000
			bf.Mark(decoder.FieldTimeFlowStart)
		case fieldLastSwitched:
			bf.TimeFlowEnd = exportTime + decoder.DecodeUNumber(v)/1000
			bf.Mark(decoder.FieldTimeFlowEnd)
		case fieldFlowStartSeconds:
			bf.TimeFlowStart = decoder.DecodeUNumber(v)
			bf.Mark(decoder.FieldTimeFlowStart)
		case fieldFlowEndSeconds:
			bf.TimeFlowEnd = decoder.DecodeUNumber(v)
			bf.Mark(decoder.FieldTimeFlowEnd)
		case fieldFlowStartMilliseconds:
			bf.TimeFlowStart = decoder.DecodeUNumber(v) / 1000
			bf.Mark(decoder.FieldTimeFlowStart)
		case fieldFlowEndMilliseconds:
			bf.TimeFlowEnd = decoder.DecodeUNumber(v) / 1000
			bf.Mark(decoder.FieldTimeFlowEnd)
		}
	}
	return bf
}
