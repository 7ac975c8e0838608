// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package core

import "flowmill/inlet/flow/decoder"

// maxCounter bounds byte and packet counters. Larger values mean a
// template was misinterpreted.
const maxCounter = 1_000_000_000_000

// sanitizeFlow validates a decoded flow in place. A missing or
// invalid address rejects the whole record and the reason is
// returned. Out-of-range optional fields are cleared instead, keeping
// the record with a reduced field set; the number of cleared fields
// is returned. Ports, protocol, ToS and TCP flags are range-checked
// by the decoders since their storage types cannot hold out-of-range
// values.
func sanitizeFlow(flow *decoder.FlowMessage) (dropped int, reason string, ok bool) {
	if !flow.SrcAddr.IsValid() {
		return 0, "missing source address", false
	}
	if !flow.DstAddr.IsValid() {
		return 0, "missing destination address", false
	}
	if flow.Has(decoder.FieldBytes) && flow.Bytes >= maxCounter {
		flow.Bytes = 0
		flow.Clear(decoder.FieldBytes)
		dropped++
	}
	if flow.Has(decoder.FieldPackets) && flow.Packets >= maxCounter {
		flow.Packets = 0
		flow.Clear(decoder.FieldPackets)
		dropped++
	}
	if flow.Has(decoder.FieldTimeFlowStart|decoder.FieldTimeFlowEnd) &&
		flow.TimeFlowStart > flow.TimeFlowEnd {
		flow.TimeFlowStart = 0
		flow.TimeFlowEnd = 0
		flow.Clear(decoder.FieldTimeFlowStart | decoder.FieldTimeFlowEnd)
		dropped += 2
	}
	return dropped, "", true
}
