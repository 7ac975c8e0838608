// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow

import (
	"encoding/binary"

	"flowmill/inlet/flow/decoder"
)

const (
	nfv5HeaderLength = 24
	nfv5RecordLength = 48
	nfv5MaxCount     = 30
)

// decodeNFv5 decodes a NetFlow v5 packet. The layout is fixed: a
// 24-byte header followed by count 48-byte records.
func (nd *Decoder) decodeNFv5(key string, payload []byte) []*decoder.FlowMessage {
	count := int(binary.BigEndian.Uint16(payload[2:4]))
	if count > nfv5MaxCount || len(payload) < nfv5HeaderLength+count*nfv5RecordLength {
		nd.metrics.errors.WithLabelValues(key, "NetFlow v5 decoding error").Inc()
		nd.errLogger.Warn().
			Str("exporter", key).
			Int("count", count).
			Int("length", len(payload)).
			Msg("truncated NetFlow v5 packet")
		return nil
	}
	unixSecs := uint64(binary.BigEndian.Uint32(payload[8:12]))
	samplingRate := uint64(binary.BigEndian.Uint16(payload[22:24]) & 0x3fff)

	nd.metrics.stats.WithLabelValues(key, "5").Inc()
	nd.metrics.setStatsSum.WithLabelValues(key, "5", "PDU").Inc()
	nd.metrics.setRecordsStatsSum.WithLabelValues(key, "5", "PDU").Add(float64(count))

	flowMessageSet := make([]*decoder.FlowMessage, 0, count)
	for i := 0; i < count; i++ {
		record := payload[nfv5HeaderLength+i*nfv5RecordLength:][:nfv5RecordLength]
		bf := &decoder.FlowMessage{
			SrcAddr:       decoder.DecodeIP(record[0:4]),
			DstAddr:       decoder.DecodeIP(record[4:8]),
			EType:         decoder.ETypeIPv4,
			InIf:          uint32(binary.BigEndian.Uint16(record[12:14])),
			OutIf:         uint32(binary.BigEndian.Uint16(record[14:16])),
			Packets:       uint64(binary.BigEndian.Uint32(record[16:20])),
			Bytes:         uint64(binary.BigEndian.Uint32(record[20:24])),
			TimeFlowStart: unixSecs + uint64(binary.BigEndian.Uint32(record[24:28]))/1000,
			TimeFlowEnd:   unixSecs + uint64(binary.BigEndian.Uint32(record[28:32]))/1000,
			SrcPort:       binary.BigEndian.Uint16(record[32:34]),
			DstPort:       binary.BigEndian.Uint16(record[34:36]),
			TCPFlags:      record[37],
			Proto:         record[38],
			IPTos:         record[39],
			SrcAS:         uint32(binary.BigEndian.Uint16(record[40:42])),
			DstAS:         uint32(binary.BigEndian.Uint16(record[42:44])),
			SamplingRate:  samplingRate,
		}
		bf.Mark(decoder.FieldSrcPort | decoder.FieldDstPort |
			decoder.FieldProto | decoder.FieldIPTos | decoder.FieldTCPFlags |
			decoder.FieldBytes | decoder.FieldPackets |
			decoder.FieldTimeFlowStart | decoder.FieldTimeFlowEnd)
		flowMessageSet = append(flowMessageSet, bf)
	}
	return flowMessageSet
}
