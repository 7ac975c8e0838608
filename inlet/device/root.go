// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package device maintains the mapping from exporter addresses to
// device handles. Lookups go through a bounded LRU cache in front of
// a provider; the cache sheds entries on capacity and on process
// memory pressure.
package device

import (
	"context"
	"net/netip"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/procfs"
	"gopkg.in/tomb.v2"

	"flowmill/common/daemon"
	"flowmill/common/helpers/lru"
	"flowmill/common/reporter"
	"flowmill/inlet/device/provider"
)

// Component represents the device component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	clock    clock.Clock
	provider provider.Provider
	cache    *lru.Cache[netip.Addr, int64]
	metrics  metrics

	// rss is the last observed resident memory size, refreshed
	// periodically. Only read when a memory threshold is set.
	rss func() uint64
}

// Dependencies define the dependencies of the device component.
type Dependencies struct {
	Daemon daemon.Component
}

// New creates a new device component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	p, err := configuration.Provider.Config.New(r)
	if err != nil {
		return nil, err
	}
	c := Component{
		r:        r,
		d:        &dependencies,
		config:   configuration,
		clock:    clock.New(),
		provider: p,
		cache:    lru.New[netip.Addr, int64](),
		rss:      residentMemory,
	}
	c.initMetrics()
	c.d.Daemon.Track(&c.t, "inlet/device")
	return &c, nil
}

// Start starts the device component.
func (c *Component) Start() error {
	c.r.Info().Msg("starting device component")
	c.t.Go(func() error {
		<-c.t.Dying()
		return nil
	})
	return nil
}

// Stop stops the device component.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("device component stopped")
	c.t.Kill(nil)
	return c.t.Wait()
}

// Lookup returns the device handle for an exporter. A negative
// handle means the device could not be resolved; such flows should
// not be forwarded to storage.
func (c *Component) Lookup(ctx context.Context, exporter netip.Addr, flowType string, flowVersion int) int64 {
	now := c.clock.Now()
	if id, ok := c.cache.Get(now, exporter); ok {
		c.metrics.hits.Inc()
		return id
	}
	c.metrics.misses.Inc()

	id, err := c.provider.Resolve(ctx, provider.Query{
		ExporterIP:  exporter,
		FlowType:    flowType,
		FlowVersion: flowVersion,
	})
	if err != nil {
		c.metrics.providerErrors.Inc()
		errLogger := c.r.Sample(reporter.BurstSampler(time.Minute, 3))
		errLogger.Err(err).
			Str("exporter", exporter.Unmap().String()).
			Msg("cannot resolve device")
		return -1
	}
	c.cache.Put(now, exporter, id)
	c.expire()
	return id
}

// expire enforces the eviction policy after an insertion.
func (c *Component) expire() {
	for c.cache.Len() > c.config.CacheSize {
		if _, ok := c.cache.EvictOldest(); !ok {
			break
		}
		c.metrics.evicted.WithLabelValues("capacity").Inc()
	}
	if c.config.MemoryThreshold > 0 && c.cache.Len() > 10 && c.rss() > c.config.MemoryThreshold {
		count := c.cache.EvictFraction(0.25)
		c.metrics.evicted.WithLabelValues("memory").Add(float64(count))
	}
}

// residentMemory returns the resident memory of the current process,
// or 0 when it cannot be determined.
func residentMemory() uint64 {
	proc, err := procfs.Self()
	if err != nil {
		return 0
	}
	stat, err := proc.Stat()
	if err != nil {
		return 0
	}
	return uint64(stat.ResidentMemory())
}
