// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package device

import "flowmill/common/reporter"

type metrics struct {
	hits           reporter.Counter
	misses         reporter.Counter
	providerErrors reporter.Counter
	evicted        *reporter.CounterVec
}

func (c *Component) initMetrics() {
	c.metrics.hits = c.r.Counter(
		reporter.CounterOpts{
			Name: "cache_hits_total",
			Help: "Number of lookups answered from the cache.",
		},
	)
	c.metrics.misses = c.r.Counter(
		reporter.CounterOpts{
			Name: "cache_misses_total",
			Help: "Number of lookups requiring the provider.",
		},
	)
	c.metrics.providerErrors = c.r.Counter(
		reporter.CounterOpts{
			Name: "provider_errors_total",
			Help: "Number of failed device resolutions.",
		},
	)
	c.metrics.evicted = c.r.CounterVec(
		reporter.CounterOpts{
			Name: "cache_evicted_total",
			Help: "Number of entries evicted from the cache.",
		},
		[]string{"reason"},
	)
	c.r.GaugeFunc(
		reporter.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries in the cache.",
		},
		func() float64 { return float64(c.cache.Len()) },
	)
}
