// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package registry

import (
	"context"
	"net/netip"
	"testing"

	"flowmill/common/reporter"
	"flowmill/inlet/device/provider"
)

func TestResolve(t *testing.T) {
	r := reporter.NewMock(t)
	config := Configuration{Driver: "sqlite", DSN: "file::memory:"}
	p, err := config.New(r)
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}

	query := provider.Query{
		ExporterIP:  netip.MustParseAddr("192.0.2.1"),
		FlowType:    "netflow",
		FlowVersion: 5,
	}
	id1, err := p.Resolve(context.Background(), query)
	if err != nil {
		t.Fatalf("Resolve() error:\n%+v", err)
	}
	if id1 <= 0 {
		t.Fatalf("Resolve() == %d, expected a positive handle", id1)
	}

	// Resolution is idempotent.
	id2, err := p.Resolve(context.Background(), query)
	if err != nil {
		t.Fatalf("Resolve() error:\n%+v", err)
	}
	if id2 != id1 {
		t.Fatalf("Resolve() == %d, expected %d", id2, id1)
	}

	// Another exporter gets another handle.
	query.ExporterIP = netip.MustParseAddr("192.0.2.2")
	id3, err := p.Resolve(context.Background(), query)
	if err != nil {
		t.Fatalf("Resolve() error:\n%+v", err)
	}
	if id3 == id1 {
		t.Fatalf("Resolve() == %d for a different exporter", id3)
	}
}
