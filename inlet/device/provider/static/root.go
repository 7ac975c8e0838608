// SPDX-FileCopyrightText: 2023 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package static is a device provider using static configuration to
// answer to requests.
package static

import (
	"context"

	"flowmill/common/reporter"
	"flowmill/inlet/device/provider"
)

// Provider represents the static provider.
type Provider struct {
	r      *reporter.Reporter
	config Configuration
}

// New creates a new static provider from configuration.
func (configuration Configuration) New(r *reporter.Reporter) (provider.Provider, error) {
	return &Provider{
		r:      r,
		config: configuration,
	}, nil
}

// Resolve looks up the static configuration.
func (p *Provider) Resolve(_ context.Context, query provider.Query) (int64, error) {
	if id, ok := p.config.Devices[query.ExporterIP.Unmap().String()]; ok {
		return id, nil
	}
	return p.config.Default, nil
}
