// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow

import (
	"encoding/binary"
	"net"
	"net/netip"
	"testing"

	"flowmill/common/helpers"
	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
)

func appendUint16(buf []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(buf, v)
}

func appendUint32(buf []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(buf, v)
}

// nfv5Packet builds a NetFlow v5 packet with a single record.
func nfv5Packet(unixSecs uint32) []byte {
	buf := []byte{}
	buf = appendUint16(buf, 5)        // version
	buf = appendUint16(buf, 1)        // count
	buf = appendUint32(buf, 100000)   // sys_uptime
	buf = appendUint32(buf, unixSecs) // unix_secs
	buf = appendUint32(buf, 0)        // unix_nsecs
	buf = appendUint32(buf, 10)       // flow_sequence
	buf = append(buf, 0, 0)           // engine type/id
	buf = appendUint16(buf, 0)        // sampling interval
	// Record
	buf = append(buf, 192, 0, 2, 1) // src_addr
	buf = append(buf, 192, 0, 2, 2) // dst_addr
	buf = append(buf, 0, 0, 0, 0)   // next_hop
	buf = appendUint16(buf, 1)      // input_if
	buf = appendUint16(buf, 2)      // output_if
	buf = appendUint32(buf, 10)     // packets
	buf = appendUint32(buf, 1500)   // bytes
	buf = appendUint32(buf, 2000)   // first
	buf = appendUint32(buf, 3000)   // last
	buf = appendUint16(buf, 443)    // src_port
	buf = appendUint16(buf, 52000)  // dst_port
	buf = append(buf, 0)            // pad
	buf = append(buf, 0x10)         // tcp_flags
	buf = append(buf, 6)            // protocol
	buf = append(buf, 0)            // tos
	buf = appendUint16(buf, 64501)  // src_as
	buf = appendUint16(buf, 64502)  // dst_as
	buf = append(buf, 24, 24, 0, 0) // masks, pad
	return buf
}

func TestDecodeNFv5(t *testing.T) {
	r := reporter.NewMock(t)
	nfdecoder := New(r)

	got := nfdecoder.Decode(decoder.RawFlow{
		Payload: nfv5Packet(1000000),
		Source:  net.ParseIP("127.0.0.1"),
	})
	if got == nil {
		t.Fatalf("Decode() error on NetFlow v5 packet")
	}
	for _, f := range got {
		f.TimeReceived = 0
	}
	expected := []*decoder.FlowMessage{
		{
			ExporterAddress: netip.MustParseAddr("::ffff:127.0.0.1"),
			SrcAddr:         netip.MustParseAddr("::ffff:192.0.2.1"),
			DstAddr:         netip.MustParseAddr("::ffff:192.0.2.2"),
			EType:           decoder.ETypeIPv4,
			InIf:            1,
			OutIf:           2,
			Packets:         10,
			Bytes:           1500,
			TimeFlowStart:   1000002,
			TimeFlowEnd:     1000003,
			SrcPort:         443,
			DstPort:         52000,
			TCPFlags:        0x10,
			Proto:           6,
			SrcAS:           64501,
			DstAS:           64502,
			Fields: decoder.FieldSrcPort | decoder.FieldDstPort |
				decoder.FieldProto | decoder.FieldIPTos | decoder.FieldTCPFlags |
				decoder.FieldBytes | decoder.FieldPackets |
				decoder.FieldTimeFlowStart | decoder.FieldTimeFlowEnd,
		},
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}

	gotMetrics := r.GetMetrics("flowmill_inlet_flow_decoder_netflow_")
	expectedMetrics := map[string]string{
		`flows_total{exporter="127.0.0.1",version="5"}`:                    "1",
		`flowset_sum{exporter="127.0.0.1",type="PDU",version="5"}`:         "1",
		`flowset_records_sum{exporter="127.0.0.1",type="PDU",version="5"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestDecodeNFv5Truncated(t *testing.T) {
	r := reporter.NewMock(t)
	nfdecoder := New(r)

	payload := nfv5Packet(1000000)
	// Pretend there are two records while only one is present.
	binary.BigEndian.PutUint16(payload[2:4], 2)
	got := nfdecoder.Decode(decoder.RawFlow{Payload: payload, Source: net.ParseIP("127.0.0.1")})
	if got != nil {
		t.Fatalf("Decode() on truncated packet got %d flows", len(got))
	}

	gotMetrics := r.GetMetrics("flowmill_inlet_flow_decoder_netflow_", "errors_total")
	expectedMetrics := map[string]string{
		`errors_total{error="NetFlow v5 decoding error",exporter="127.0.0.1"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

// nfv9TemplatePacket announces template 256 with two fields:
// IPV4_SRC_ADDR and IN_BYTES, both 4 bytes.
func nfv9TemplatePacket() []byte {
	buf := nfv9Header(1)
	buf = appendUint16(buf, 0)  // flowset id: template
	buf = appendUint16(buf, 16) // flowset length
	buf = appendUint16(buf, 256)
	buf = appendUint16(buf, 2)
	buf = appendUint16(buf, fieldIPv4SrcAddr)
	buf = appendUint16(buf, 4)
	buf = appendUint16(buf, fieldInBytes)
	buf = appendUint16(buf, 4)
	return buf
}

// nfv9DataPacket references template 256 with one record.
func nfv9DataPacket() []byte {
	buf := nfv9Header(1)
	buf = appendUint16(buf, 256) // flowset id: data
	buf = appendUint16(buf, 12)  // flowset length
	buf = append(buf, 192, 0, 2, 1)
	buf = appendUint32(buf, 1500)
	return buf
}

func nfv9Header(count uint16) []byte {
	buf := []byte{}
	buf = appendUint16(buf, 9)
	buf = appendUint16(buf, count)
	buf = appendUint32(buf, 100000)  // sys_uptime
	buf = appendUint32(buf, 1000000) // unix_secs
	buf = appendUint32(buf, 10)      // package_sequence
	buf = appendUint32(buf, 42)      // source_id
	return buf
}

func TestTemplateBeforeData(t *testing.T) {
	r := reporter.NewMock(t)
	nfdecoder := New(r)

	got := nfdecoder.Decode(decoder.RawFlow{
		Payload: nfv9TemplatePacket(),
		Source:  net.ParseIP("127.0.0.1"),
	})
	if len(got) != 0 {
		t.Fatalf("Decode() on template packet got %d flows", len(got))
	}

	gotMetrics := r.GetMetrics("flowmill_inlet_flow_decoder_netflow_", "templates_total")
	expectedMetrics := map[string]string{
		`templates_total{exporter="127.0.0.1",obs_domain_id="42",template_id="256",type="template",version="9"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics after template (-got, +want):\n%s", diff)
	}

	got = nfdecoder.Decode(decoder.RawFlow{
		Payload: nfv9DataPacket(),
		Source:  net.ParseIP("127.0.0.1"),
	})
	for _, f := range got {
		f.TimeReceived = 0
	}
	expected := []*decoder.FlowMessage{
		{
			ExporterAddress: netip.MustParseAddr("::ffff:127.0.0.1"),
			SrcAddr:         netip.MustParseAddr("::ffff:192.0.2.1"),
			EType:           decoder.ETypeIPv4,
			Bytes:           1500,
			Fields:          decoder.FieldBytes,
		},
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
}

func TestDataBeforeTemplate(t *testing.T) {
	r := reporter.NewMock(t)
	nfdecoder := New(r)

	got := nfdecoder.Decode(decoder.RawFlow{
		Payload: nfv9DataPacket(),
		Source:  net.ParseIP("127.0.0.1"),
	})
	if len(got) != 0 {
		t.Fatalf("Decode() without template got %d flows", len(got))
	}

	gotMetrics := r.GetMetrics("flowmill_inlet_flow_decoder_netflow_", "errors_total")
	expectedMetrics := map[string]string{
		`errors_total{error="template not found",exporter="127.0.0.1"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestDecodeIPFIX(t *testing.T) {
	r := reporter.NewMock(t)
	nfdecoder := New(r)

	// A single packet holding both the template set and a data set.
	buf := []byte{}
	buf = appendUint16(buf, 10)      // version
	buf = appendUint16(buf, 0)       // length, fixed below
	buf = appendUint32(buf, 1000000) // export time
	buf = appendUint32(buf, 10)      // sequence number
	buf = appendUint32(buf, 5)       // observation domain id
	// Template set
	buf = appendUint16(buf, 2)  // set id
	buf = appendUint16(buf, 24) // set length
	buf = appendUint16(buf, 256)
	buf = appendUint16(buf, 4)
	buf = appendUint16(buf, fieldIPv4SrcAddr)
	buf = appendUint16(buf, 4)
	buf = appendUint16(buf, fieldIPv4DstAddr)
	buf = appendUint16(buf, 4)
	buf = appendUint16(buf, fieldFlowStartSeconds)
	buf = appendUint16(buf, 4)
	buf = appendUint16(buf, fieldFlowEndSeconds)
	buf = appendUint16(buf, 4)
	// Data set
	buf = appendUint16(buf, 256)
	buf = appendUint16(buf, 20)
	buf = append(buf, 192, 0, 2, 1)
	buf = append(buf, 192, 0, 2, 2)
	buf = appendUint32(buf, 999990)
	buf = appendUint32(buf, 999995)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(buf)))

	got := nfdecoder.Decode(decoder.RawFlow{Payload: buf, Source: net.ParseIP("2001:db8::1")})
	for _, f := range got {
		f.TimeReceived = 0
	}
	expected := []*decoder.FlowMessage{
		{
			ExporterAddress: netip.MustParseAddr("2001:db8::1"),
			SrcAddr:         netip.MustParseAddr("::ffff:192.0.2.1"),
			DstAddr:         netip.MustParseAddr("::ffff:192.0.2.2"),
			EType:           decoder.ETypeIPv4,
			TimeFlowStart:   999990,
			TimeFlowEnd:     999995,
			Fields:          decoder.FieldTimeFlowStart | decoder.FieldTimeFlowEnd,
		},
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
}

func TestOutOfRangePortDropped(t *testing.T) {
	r := reporter.NewMock(t)
	nfdecoder := New(r)

	// Template 257 declares a 4-byte source port, so the data
	// record can carry a value beyond the port range.
	buf := nfv9Header(1)
	buf = appendUint16(buf, 0)  // flowset id: template
	buf = appendUint16(buf, 16) // flowset length
	buf = appendUint16(buf, 257)
	buf = appendUint16(buf, 2)
	buf = appendUint16(buf, fieldIPv4SrcAddr)
	buf = appendUint16(buf, 4)
	buf = appendUint16(buf, fieldL4SrcPort)
	buf = appendUint16(buf, 4)
	if got := nfdecoder.Decode(decoder.RawFlow{Payload: buf, Source: net.ParseIP("127.0.0.1")}); len(got) != 0 {
		t.Fatalf("Decode() on template packet got %d flows", len(got))
	}

	buf = nfv9Header(1)
	buf = appendUint16(buf, 257)
	buf = appendUint16(buf, 12)
	buf = append(buf, 192, 0, 2, 1)
	buf = appendUint32(buf, 99999)
	got := nfdecoder.Decode(decoder.RawFlow{Payload: buf, Source: net.ParseIP("127.0.0.1")})
	for _, f := range got {
		f.TimeReceived = 0
	}
	expected := []*decoder.FlowMessage{
		{
			ExporterAddress: netip.MustParseAddr("::ffff:127.0.0.1"),
			SrcAddr:         netip.MustParseAddr("::ffff:192.0.2.1"),
			EType:           decoder.ETypeIPv4,
		},
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("Decode() (-got, +want):\n%s", diff)
	}
	if got[0].Has(decoder.FieldSrcPort) {
		t.Fatal("Decode() kept an out-of-range source port")
	}
}
