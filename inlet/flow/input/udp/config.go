// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package udp

import "flowmill/inlet/flow/input"

// Configuration describes UDP input configuration.
type Configuration struct {
	// Listen tells which port to listen to.
	Listen string `validate:"required,listen"`
	// Workers define the number of workers to use for receiving flows.
	Workers int `validate:"required,min=1"`
	// ReceiveBuffer is the value of the requested buffer size for
	// each listening socket. When 0, the value is left to the
	// default value set by the kernel.
	ReceiveBuffer uint
}

// DefaultConfiguration is the default configuration for this input
func DefaultConfiguration() input.Configuration {
	return &Configuration{
		Listen:  ":2055",
		Workers: 1,
	}
}
