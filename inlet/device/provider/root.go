// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package provider defines the interface of a provider module for
// device resolution.
package provider

import (
	"context"
	"net/netip"

	"flowmill/common/reporter"
)

// Query is the query sent to a provider.
type Query struct {
	// ExporterIP is the address of the device that exported flows.
	ExporterIP netip.Addr
	// FlowType is the flow protocol seen from this device.
	FlowType string
	// FlowVersion is the flow protocol version.
	FlowVersion int
}

// Provider is the interface any provider should meet.
type Provider interface {
	// Resolve returns the device handle for an exporter,
	// creating the device when not known yet. Resolution is
	// idempotent per IP and safe to call concurrently.
	Resolve(ctx context.Context, query Query) (int64, error)
}

// Configuration defines an interface to configure a provider.
type Configuration interface {
	// New instantiates a new provider from its configuration.
	New(r *reporter.Reporter) (Provider, error)
}
