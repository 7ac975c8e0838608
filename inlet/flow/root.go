// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package flow handles incoming NetFlow/IPFIX/sFlow datagrams: it
// owns the inputs, validates incoming packets, decodes them and
// exposes the resulting flow messages on a channel.
package flow

import (
	"errors"
	"net/netip"
	"sync"

	"gopkg.in/tomb.v2"

	"flowmill/common/daemon"
	"flowmill/common/httpserver"
	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
	"flowmill/inlet/flow/input"
)

// Component represents the flow component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	metrics  metrics
	inputs   []input.Input
	decoders map[decoder.ProtocolVersion]decoder.Decoder

	limitersLock sync.Mutex
	limiters     map[netip.Addr]*limiter

	// Channel for decoded flows.
	incomingFlows chan *decoder.FlowMessage
}

// Dependencies are the dependencies of the flow component.
type Dependencies struct {
	Daemon daemon.Component
	HTTP   *httpserver.Component
}

// New creates a new flow component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	if len(configuration.Inputs) == 0 {
		return nil, errors.New("no input configured")
	}

	c := Component{
		r:      r,
		d:      &dependencies,
		config: configuration,
		decoders: map[decoder.ProtocolVersion]decoder.Decoder{
			decoder.ProtocolNetFlowV5: netflowDecoder(r),
			decoder.ProtocolNetFlowV9: nil, // set below, shared with v5
			decoder.ProtocolIPFIX:     nil,
			decoder.ProtocolSFlowV4:   sflowDecoder(r),
			decoder.ProtocolSFlowV5:   nil,
		},
		limiters:      map[netip.Addr]*limiter{},
		inputs:        make([]input.Input, len(configuration.Inputs)),
		incomingFlows: make(chan *decoder.FlowMessage, configuration.QueueSize),
	}
	// NetFlow v5, v9 and IPFIX share one stateful decoder, as do
	// both sFlow versions.
	c.decoders[decoder.ProtocolNetFlowV9] = c.decoders[decoder.ProtocolNetFlowV5]
	c.decoders[decoder.ProtocolIPFIX] = c.decoders[decoder.ProtocolNetFlowV5]
	c.decoders[decoder.ProtocolSFlowV5] = c.decoders[decoder.ProtocolSFlowV4]
	c.initMetrics()

	// Initialize inputs
	for idx, inputConfig := range c.config.Inputs {
		var err error
		c.inputs[idx], err = inputConfig.Config.New(r, c.d.Daemon, c.send(inputConfig))
		if err != nil {
			return nil, err
		}
	}

	c.d.Daemon.Track(&c.t, "inlet/flow")
	return &c, nil
}

// Flows returns a channel to receive decoded flows.
func (c *Component) Flows() <-chan *decoder.FlowMessage {
	return c.incomingFlows
}

// send returns the callback invoked by an input for each datagram.
func (c *Component) send(config InputConfiguration) input.SendFunc {
	return func(in decoder.RawFlow) {
		c.processRawFlow(config, in)
	}
}

// Start starts the flow component.
func (c *Component) Start() error {
	for _, in := range c.inputs {
		err := in.Start()
		stopper := in.Stop
		if err != nil {
			return err
		}
		c.t.Go(func() error {
			<-c.t.Dying()
			stopper()
			return nil
		})
	}
	return nil
}

// Stop stops the flow component.
func (c *Component) Stop() error {
	defer func() {
		close(c.incomingFlows)
		c.r.Info().Msg("flow component stopped")
	}()
	c.r.Info().Msg("stopping flow component")
	c.t.Kill(nil)
	return c.t.Wait()
}
