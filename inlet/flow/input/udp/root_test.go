// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package udp

import (
	"net"
	"testing"
	"time"

	"flowmill/common/daemon"
	"flowmill/common/helpers"
	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
	"flowmill/inlet/flow/input"
)

func TestUDPInput(t *testing.T) {
	r := reporter.NewMock(t)
	received := make(chan decoder.RawFlow, 10)
	configuration := DefaultConfiguration().(*Configuration)
	configuration.Listen = "127.0.0.1:0"
	in, err := configuration.New(r, daemon.NewMock(t), input.SendFunc(func(raw decoder.RawFlow) {
		received <- raw
	}))
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	helpers.StartStop(t, in)

	conn, err := net.Dial("udp", in.(*Input).LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial() error:\n%+v", err)
	}
	if _, err := conn.Write([]byte("hello world!")); err != nil {
		t.Fatalf("Write() error:\n%+v", err)
	}

	select {
	case raw := <-received:
		if string(raw.Payload) != "hello world!" {
			t.Errorf("received payload %q", raw.Payload)
		}
		if !raw.Source.IsLoopback() {
			t.Errorf("received source %s", raw.Source)
		}
	case <-time.After(time.Second):
		t.Fatal("no packet received")
	}

	gotMetrics := r.GetMetrics("flowmill_inlet_flow_input_udp_", "packets_total")
	found := false
	for metric := range gotMetrics {
		found = true
		if gotMetrics[metric] != "1" {
			t.Errorf("metric %s == %s, expected 1", metric, gotMetrics[metric])
		}
	}
	if !found {
		t.Error("no packets_total metric found")
	}
}
