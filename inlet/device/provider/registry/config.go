// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package registry

import "flowmill/inlet/device/provider"

// Configuration describes the configuration of the registry provider.
type Configuration struct {
	// Driver defines the driver for the database
	Driver string `validate:"required"`
	// DSN defines the DSN to connect to the database
	DSN string `validate:"required"`
}

// DefaultConfiguration is the default configuration of the registry provider.
func DefaultConfiguration() provider.Configuration {
	return Configuration{
		Driver: "sqlite",
		DSN:    "file::memory:?cache=shared",
	}
}
