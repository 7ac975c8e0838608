// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package flow

import (
	"golang.org/x/time/rate"

	"flowmill/common/helpers"
	"flowmill/inlet/flow/input"
	"flowmill/inlet/flow/input/file"
	"flowmill/inlet/flow/input/udp"
)

// Configuration describes the configuration for the flow component
type Configuration struct {
	// Inputs define a list of input modules to enable
	Inputs []InputConfiguration `validate:"dive"`
	// QueueSize defines the size of the channel used to
	// communicate decoded flows. 0 can be used to disable
	// buffering.
	QueueSize uint
	// RateLimit defines a rate limit on the number of flows per
	// second. The limit is per-exporter.
	RateLimit rate.Limit `validate:"isdefault|min=100"`
}

// DefaultConfiguration represents the default configuration for the flow component
func DefaultConfiguration() Configuration {
	return Configuration{
		Inputs: []InputConfiguration{{
			Config: udp.DefaultConfiguration(),
		}},
		QueueSize: 100000,
	}
}

// InputConfiguration represents the configuration for an input.
type InputConfiguration struct {
	// UseSrcAddrForExporterAddr replaces the exporter address by
	// the transport source address.
	UseSrcAddrForExporterAddr bool
	// Config is the actual configuration of the input.
	Config input.Configuration
}

var inputs = map[string](func() input.Configuration){
	"udp":  udp.DefaultConfiguration,
	"file": file.DefaultConfiguration,
}

func init() {
	helpers.RegisterMapstructureUnmarshallerHook(
		helpers.ParametrizedConfigurationUnmarshallerHook(InputConfiguration{}, inputs))
}
