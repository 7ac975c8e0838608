// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package device

import (
	"context"
	"fmt"
	"net/netip"
	"testing"

	"flowmill/common/helpers"
	"flowmill/common/reporter"
	"flowmill/inlet/device/provider/static"
)

func TestLookupCache(t *testing.T) {
	r := reporter.NewMock(t)
	c := NewMock(t, r, Configuration{
		CacheSize: 10,
		Provider: ProviderConfiguration{Config: static.Configuration{
			Devices: map[string]int64{"192.0.2.1": 7},
			Default: 1,
		}},
	})

	exporter := netip.MustParseAddr("192.0.2.1")
	// Repeated lookups for the same exporter only miss once.
	for i := 0; i < 5; i++ {
		if id := c.Lookup(context.Background(), exporter, "netflow", 5); id != 7 {
			t.Fatalf("Lookup() == %d, expected 7", id)
		}
	}

	gotMetrics := r.GetMetrics("flowmill_inlet_device_", "cache_hits_total", "cache_misses_total")
	expectedMetrics := map[string]string{
		`cache_hits_total`:   "4",
		`cache_misses_total`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestCapacityEviction(t *testing.T) {
	r := reporter.NewMock(t)
	c := NewMock(t, r, Configuration{
		CacheSize: 3,
		Provider:  ProviderConfiguration{Config: static.Configuration{Default: 1}},
	})

	exporters := make([]netip.Addr, 4)
	for i := range exporters {
		exporters[i] = netip.MustParseAddr(fmt.Sprintf("192.0.2.%d", i+1))
	}
	for _, exporter := range exporters[:3] {
		c.Lookup(context.Background(), exporter, "netflow", 9)
	}
	// Touch the first exporter so the second one is the oldest.
	c.Lookup(context.Background(), exporters[0], "netflow", 9)
	// Insert a fourth exporter. Only the second one is evicted.
	c.Lookup(context.Background(), exporters[3], "netflow", 9)

	if c.cache.Len() != 3 {
		t.Fatalf("cache has %d entries, expected 3", c.cache.Len())
	}
	gotMetrics := r.GetMetrics("flowmill_inlet_device_", "cache_misses_total", "cache_evicted_total")
	expectedMetrics := map[string]string{
		`cache_misses_total`:                     "4",
		`cache_evicted_total{reason="capacity"}`: "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Fatalf("Metrics (-got, +want):\n%s", diff)
	}
	// The evicted exporter misses again.
	c.Lookup(context.Background(), exporters[1], "netflow", 9)
	gotMetrics = r.GetMetrics("flowmill_inlet_device_", "cache_misses_total")
	if gotMetrics["cache_misses_total"] != "5" {
		t.Fatalf("cache_misses_total == %s, expected 5", gotMetrics["cache_misses_total"])
	}
}

func TestMemoryPressureEviction(t *testing.T) {
	r := reporter.NewMock(t)
	c := NewMock(t, r, Configuration{
		CacheSize:       100,
		MemoryThreshold: 1,
		Provider:        ProviderConfiguration{Config: static.Configuration{Default: 1}},
	})
	// Pretend we are way above the threshold.
	c.rss = func() uint64 { return 1 << 40 }

	for i := 0; i < 20; i++ {
		c.Lookup(context.Background(), netip.MustParseAddr(fmt.Sprintf("192.0.2.%d", i+1)), "sflow", 5)
	}
	// Each insertion above 10 entries sheds a quarter of the
	// cache, so the count stays low.
	if got := c.cache.Len(); got > 11 {
		t.Fatalf("cache has %d entries under memory pressure", got)
	}
	gotMetrics := r.GetMetrics("flowmill_inlet_device_", "cache_evicted_total")
	if gotMetrics[`cache_evicted_total{reason="memory"}`] == "" {
		t.Fatal("no memory evictions recorded")
	}
}
