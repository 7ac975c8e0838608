// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package input defines the interface of an input module for the
// flow component.
package input

import (
	"flowmill/common/daemon"
	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
)

// Input is the interface any input should meet
type Input interface {
	// Start instructs an input to start producing raw flows.
	Start() error
	// Stop instructs the input to stop producing raw flows.
	Stop() error
}

// SendFunc is the callback an input invokes for each received datagram.
type SendFunc func(in decoder.RawFlow)

// Configuration is the interface for the configuration of an input module.
type Configuration interface {
	// New instantiates a new input from its configuration.
	New(r *reporter.Reporter, daemon daemon.Component, send SendFunc) (Input, error)
}
