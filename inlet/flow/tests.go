// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package flow

import (
	"net"
	"testing"

	"flowmill/common/daemon"
	"flowmill/common/helpers"
	"flowmill/common/httpserver"
	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
	"flowmill/inlet/flow/input/udp"
)

// NewMock creates a new flow component listening on a random port. It
// is autostarted.
func NewMock(t *testing.T, r *reporter.Reporter, config Configuration) *Component {
	t.Helper()
	if config.Inputs == nil {
		config.Inputs = []InputConfiguration{
			{
				Config: &udp.Configuration{
					Listen:  "127.0.0.1:0",
					Workers: 1,
				},
			},
		}
	}
	c, err := New(r, config, Dependencies{
		Daemon: daemon.NewMock(t),
		HTTP:   httpserver.NewMock(t, r),
	})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	helpers.StartStop(t, c)
	return c
}

// Inject injects the provided flow message, as if it was received
// and decoded.
func (c *Component) Inject(fmsg *decoder.FlowMessage) {
	c.incomingFlows <- fmsg
}

// LocalAddr returns the address of the first UDP input. Only valid
// after Start().
func (c *Component) LocalAddr(t *testing.T) net.Addr {
	t.Helper()
	for _, in := range c.inputs {
		if udpInput, ok := in.(*udp.Input); ok {
			return udpInput.LocalAddr()
		}
	}
	t.Fatal("no UDP input found")
	return nil
}
