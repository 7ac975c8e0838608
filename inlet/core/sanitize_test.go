// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package core

import (
	"net/netip"
	"testing"

	"flowmill/common/helpers"
	"flowmill/inlet/flow/decoder"
)

func TestSanitizeFlow(t *testing.T) {
	valid := func() *decoder.FlowMessage {
		f := &decoder.FlowMessage{
			SrcAddr:       netip.MustParseAddr("::ffff:192.0.2.1"),
			DstAddr:       netip.MustParseAddr("::ffff:192.0.2.2"),
			Bytes:         1500,
			Packets:       10,
			TimeFlowStart: 1000,
			TimeFlowEnd:   1001,
		}
		f.Mark(decoder.FieldBytes | decoder.FieldPackets |
			decoder.FieldTimeFlowStart | decoder.FieldTimeFlowEnd)
		return f
	}

	t.Run("valid", func(t *testing.T) {
		f := valid()
		dropped, _, ok := sanitizeFlow(f)
		if !ok || dropped != 0 {
			t.Fatalf("sanitizeFlow() == (%d, %v), expected (0, true)", dropped, ok)
		}
	})

	t.Run("missing source address", func(t *testing.T) {
		f := valid()
		f.SrcAddr = netip.Addr{}
		_, reason, ok := sanitizeFlow(f)
		if ok || reason != "missing source address" {
			t.Fatalf("sanitizeFlow() == (%q, %v), expected rejection", reason, ok)
		}
	})

	t.Run("missing destination address", func(t *testing.T) {
		f := valid()
		f.DstAddr = netip.Addr{}
		_, reason, ok := sanitizeFlow(f)
		if ok || reason != "missing destination address" {
			t.Fatalf("sanitizeFlow() == (%q, %v), expected rejection", reason, ok)
		}
	})

	t.Run("absurd counters", func(t *testing.T) {
		f := valid()
		f.Bytes = maxCounter
		f.Packets = maxCounter + 1
		dropped, _, ok := sanitizeFlow(f)
		if !ok || dropped != 2 {
			t.Fatalf("sanitizeFlow() == (%d, %v), expected (2, true)", dropped, ok)
		}
		expected := valid()
		expected.Bytes = 0
		expected.Packets = 0
		expected.Clear(decoder.FieldBytes | decoder.FieldPackets)
		if diff := helpers.Diff(f, expected); diff != "" {
			t.Fatalf("sanitizeFlow() (-got, +want):\n%s", diff)
		}
	})

	t.Run("reversed timestamps", func(t *testing.T) {
		f := valid()
		f.TimeFlowStart = 2000
		f.TimeFlowEnd = 1000
		dropped, _, ok := sanitizeFlow(f)
		if !ok || dropped != 2 {
			t.Fatalf("sanitizeFlow() == (%d, %v), expected (2, true)", dropped, ok)
		}
		if f.Has(decoder.FieldTimeFlowStart) || f.Has(decoder.FieldTimeFlowEnd) {
			t.Fatal("sanitizeFlow() kept reversed timestamps")
		}
	})

	t.Run("end without start", func(t *testing.T) {
		f := valid()
		f.Clear(decoder.FieldTimeFlowStart)
		f.TimeFlowStart = 2000
		dropped, _, ok := sanitizeFlow(f)
		if !ok || dropped != 0 {
			t.Fatalf("sanitizeFlow() == (%d, %v), expected (0, true)", dropped, ok)
		}
	})
}
