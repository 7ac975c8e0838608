// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow

import (
	"encoding/binary"

	"flowmill/inlet/flow/decoder"
)

const (
	nfv9HeaderLength  = 20
	ipfixHeaderLength = 16

	nfv9TemplateFlowSetID        = 0
	nfv9OptionsTemplateFlowSetID = 1
	ipfixTemplateSetID           = 2
	ipfixOptionsTemplateSetID    = 3
	dataSetMinID                 = 256
)

// decodeNFv9IPFIX decodes a NetFlow v9 or IPFIX packet. Both formats
// share the same flowset structure, only the header differs.
func (nd *Decoder) decodeNFv9IPFIX(key string, version uint16, templates *templateSystem, payload []byte) []*decoder.FlowMessage {
	var (
		versionStr  string
		obsDomainID uint32
		exportTime  uint64
		offset      int
	)
	switch version {
	case 9:
		if len(payload) < nfv9HeaderLength {
			nd.metrics.errors.WithLabelValues(key, "NetFlow v9 decoding error").Inc()
			return nil
		}
		versionStr = "9"
		exportTime = uint64(binary.BigEndian.Uint32(payload[8:12]))
		obsDomainID = binary.BigEndian.Uint32(payload[16:20])
		offset = nfv9HeaderLength
	case 10:
		if len(payload) < ipfixHeaderLength {
			nd.metrics.errors.WithLabelValues(key, "IPFIX decoding error").Inc()
			return nil
		}
		versionStr = "10"
		exportTime = uint64(binary.BigEndian.Uint32(payload[4:8]))
		obsDomainID = binary.BigEndian.Uint32(payload[12:16])
		offset = ipfixHeaderLength
	default:
		return nil
	}
	nd.metrics.stats.WithLabelValues(key, versionStr).Inc()

	templateSetID := nfv9TemplateFlowSetID
	optionsSetID := nfv9OptionsTemplateFlowSetID
	if version == 10 {
		templateSetID = ipfixTemplateSetID
		optionsSetID = ipfixOptionsTemplateSetID
	}

	flowMessageSet := []*decoder.FlowMessage{}
	for offset+4 <= len(payload) {
		setID := int(binary.BigEndian.Uint16(payload[offset : offset+2]))
		setLength := int(binary.BigEndian.Uint16(payload[offset+2 : offset+4]))
		if setLength < 4 || offset+setLength > len(payload) {
			nd.metrics.errors.WithLabelValues(key, "invalid flowset length").Inc()
			nd.errLogger.Warn().
				Str("exporter", key).
				Int("set-id", setID).
				Int("set-length", setLength).
				Msg("invalid flowset length")
			break
		}
		set := payload[offset+4 : offset+setLength]
		offset += setLength

		switch {
		case setID == templateSetID:
			nd.metrics.setStatsSum.WithLabelValues(key, versionStr, "TemplateFlowSet").Inc()
			nd.metrics.setRecordsStatsSum.WithLabelValues(key, versionStr, "TemplateFlowSet").
				Add(float64(nd.decodeTemplateSet(key, version, templates, obsDomainID, set)))
		case setID == optionsSetID:
			// Options describe the export process, not
			// flows. Count and skip.
			nd.metrics.setStatsSum.WithLabelValues(key, versionStr, "OptionsTemplateFlowSet").Inc()
		case setID >= dataSetMinID:
			tpl := templates.get(obsDomainID, uint16(setID))
			if tpl == nil {
				nd.metrics.errors.WithLabelValues(key, "template not found").Inc()
				nd.errLogger.Debug().
					Str("exporter", key).
					Int("template-id", setID).
					Msg("skipping data set with unknown template")
				continue
			}
			records := nd.decodeDataSet(tpl, set, exportTime, &flowMessageSet)
			nd.metrics.setStatsSum.WithLabelValues(key, versionStr, "DataFlowSet").Inc()
			nd.metrics.setRecordsStatsSum.WithLabelValues(key, versionStr, "DataFlowSet").
				Add(float64(records))
		default:
			nd.metrics.errors.WithLabelValues(key, "unknown flowset").Inc()
		}
	}
	return flowMessageSet
}

// decodeTemplateSet parses the template records of a template set and
// stores them. It returns the number of templates parsed.
func (nd *Decoder) decodeTemplateSet(key string, version uint16, templates *templateSystem, obsDomainID uint32, set []byte) int {
	var count int
	for len(set) >= 4 {
		templateID := binary.BigEndian.Uint16(set[0:2])
		fieldCount := int(binary.BigEndian.Uint16(set[2:4]))
		set = set[4:]
		if fieldCount == 0 || len(set) < fieldCount*4 {
			// Padding or truncated template record.
			break
		}
		fields := make([]templateField, 0, fieldCount)
		for i := 0; i < fieldCount; i++ {
			fields = append(fields, templateField{
				Type:   binary.BigEndian.Uint16(set[i*4 : i*4+2]),
				Length: binary.BigEndian.Uint16(set[i*4+2 : i*4+4]),
			})
		}
		set = set[fieldCount*4:]
		templates.add(version, obsDomainID, templateID, fields)
		count++
	}
	return count
}

// decodeDataSet decodes the fixed-size records of a data set.
// Trailing bytes shorter than one record are padding and are ignored.
func (nd *Decoder) decodeDataSet(tpl *template, set []byte, exportTime uint64, flowMessageSet *[]*decoder.FlowMessage) int {
	if tpl.RecordLength == 0 {
		return 0
	}
	var count int
	recordLength := int(tpl.RecordLength)
	for offset := 0; offset+recordLength <= len(set); offset += recordLength {
		bf := decodeRecord(tpl, set[offset:offset+recordLength], exportTime)
		*flowMessageSet = append(*flowMessageSet, bf)
		count++
	}
	return count
}
