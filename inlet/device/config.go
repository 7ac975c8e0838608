// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package device

import (
	"flowmill/common/helpers"
	"flowmill/inlet/device/provider"
	"flowmill/inlet/device/provider/registry"
	"flowmill/inlet/device/provider/static"
)

// Configuration describes the configuration for the device component.
type Configuration struct {
	// CacheSize is the maximum number of exporters kept in the cache.
	CacheSize int `validate:"min=1"`
	// MemoryThreshold is the resident memory size in bytes above
	// which a quarter of the cache is shed. 0 disables the check.
	MemoryThreshold uint64
	// Provider defines the provider to resolve devices with.
	Provider ProviderConfiguration
}

// DefaultConfiguration represents the default configuration for the
// device component.
func DefaultConfiguration() Configuration {
	return Configuration{
		CacheSize: 1000,
		Provider:  ProviderConfiguration{Config: registry.DefaultConfiguration()},
	}
}

// ProviderConfiguration represents the configuration for a provider.
type ProviderConfiguration struct {
	// Config is the actual configuration of the provider.
	Config provider.Configuration
}

var providers = map[string](func() provider.Configuration){
	"registry": registry.DefaultConfiguration,
	"static":   static.DefaultConfiguration,
}

func init() {
	helpers.RegisterMapstructureUnmarshallerHook(
		helpers.ParametrizedConfigurationUnmarshallerHook(ProviderConfiguration{}, providers))
}
