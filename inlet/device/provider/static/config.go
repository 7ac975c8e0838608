// SPDX-FileCopyrightText: 2023 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package static

import "flowmill/inlet/device/provider"

// Configuration describes the configuration of the static provider.
type Configuration struct {
	// Devices maps an exporter IP to a device handle.
	Devices map[string]int64
	// Default is the handle returned for unknown exporters.
	Default int64
}

// DefaultConfiguration is the default configuration of the static provider.
func DefaultConfiguration() provider.Configuration {
	return Configuration{}
}
