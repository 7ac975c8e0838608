// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package core plumbs all the other components together: it drains
// decoded flows, sanitizes them, attaches a device handle and batches
// them for storage.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"gopkg.in/tomb.v2"

	"flowmill/common/daemon"
	"flowmill/common/reporter"
	"flowmill/inlet/device"
	"flowmill/inlet/flow"
	"flowmill/inlet/storage"
)

// Store is the part of the storage component the core relies on.
type Store interface {
	StoreBatch(ctx context.Context, items []storage.BatchItem) (int, error)
}

// Component represents the core component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	metrics metrics

	clock        clock.Clock
	batcher      *batcher
	flushTrigger chan struct{}
	healthy      chan reporter.ChannelHealthcheckFunc
	errLogger    reporter.Logger
}

// Dependencies define the dependencies of the core component.
type Dependencies struct {
	Daemon  daemon.Component
	Flow    *flow.Component
	Device  *device.Component
	Storage Store
}

// New creates a new core component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	clk := clock.New()
	c := Component{
		r:      r,
		d:      &dependencies,
		config: configuration,

		clock:        clk,
		batcher:      newBatcher(configuration, clk),
		flushTrigger: make(chan struct{}, 1),
		healthy:      make(chan reporter.ChannelHealthcheckFunc),
		errLogger:    r.Sample(reporter.BurstSampler(10*time.Second, 3)),
	}
	c.d.Daemon.Track(&c.t, "inlet/core")
	c.initMetrics()
	return &c, nil
}

// Start starts the core component.
func (c *Component) Start() error {
	c.r.Info().Msg("starting core component")
	for i := 0; i < c.config.Workers; i++ {
		workerID := i
		c.t.Go(func() error {
			return c.runWorker(workerID)
		})
	}
	c.t.Go(c.runFlusher)

	c.r.RegisterHealthcheck("core", c.channelHealthcheck())
	return nil
}

// runWorker drains the flow channel. Each flow is sanitized, gets a
// device handle and lands in the pending queue. A worker failing on
// one flow keeps processing the next ones.
func (c *Component) runWorker(workerID int) error {
	c.r.Debug().Int("worker", workerID).Msg("starting core worker")
	ctx := c.t.Context(context.Background())

	for {
		select {
		case <-c.t.Dying():
			c.r.Debug().Int("worker", workerID).Msg("stopping core worker")
			return nil
		case cb, ok := <-c.healthy:
			if ok {
				cb(reporter.HealthcheckOK, fmt.Sprintf("worker %d ok", workerID))
			}
		case fmsg := <-c.d.Flow.Flows():
			if fmsg == nil {
				c.r.Info().Int("worker", workerID).Msg("no more flow available, stopping")
				return nil
			}
			c.processFlow(ctx, fmsg)
		}
	}
}

// processFlow handles a single decoded flow.
func (c *Component) processFlow(ctx context.Context, fmsg *flow.Message) {
	exporter := fmsg.ExporterAddress.Unmap().String()
	c.metrics.flowsReceived.WithLabelValues(exporter).Inc()

	dropped, reason, ok := sanitizeFlow(fmsg)
	if !ok {
		c.metrics.flowsRejected.WithLabelValues(exporter, reason).Inc()
		return
	}
	if dropped > 0 {
		c.metrics.fieldsDropped.Add(float64(dropped))
	}

	deviceID := c.d.Device.Lookup(ctx, fmsg.ExporterAddress,
		fmsg.Protocol.Type(), fmsg.Protocol.Version())
	if deviceID < 0 {
		c.metrics.flowsRejected.WithLabelValues(exporter, "device not resolved").Inc()
		return
	}

	c.metrics.flowsForwarded.WithLabelValues(exporter).Inc()
	if c.batcher.add(storage.BatchItem{
		Flow:            fmsg,
		DeviceID:        deviceID,
		FlowTypeVersion: fmsg.Protocol.String(),
		Timestamp:       c.clock.Now(),
	}) {
		select {
		case c.flushTrigger <- struct{}{}:
		default:
		}
	}
}

// runFlusher is the only goroutine handing batches to storage, so at
// most one flush is in flight at a time.
func (c *Component) runFlusher() error {
	ticker := c.clock.Ticker(c.config.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.t.Dying():
			c.flushPending("shutdown", true)
			return nil
		case <-ticker.C:
			c.flushPending("interval", false)
		case <-c.flushTrigger:
			c.flushPending("size", false)
		}
	}
}

// flushPending flushes the pending queue. With drainAll, it loops
// until the queue is empty; otherwise it stops once less than a full
// batch remains.
func (c *Component) flushPending(trigger string, drainAll bool) {
	for {
		items, remaining := c.batcher.flush()
		if len(items) == 0 {
			return
		}
		start := c.clock.Now()
		stored, err := c.d.Storage.StoreBatch(context.Background(), items)
		c.batcher.recordFlushTime(c.clock.Since(start))

		c.metrics.flushes.WithLabelValues(trigger).Inc()
		c.metrics.flushedItems.Add(float64(stored))
		c.metrics.batchSizes.Observe(float64(len(items)))
		if err != nil {
			c.errLogger.Err(err).
				Str("trigger", trigger).
				Int("items", len(items)).
				Msg("batch handoff to storage failed")
		}

		if drainAll && remaining > 0 {
			continue
		}
		if remaining >= c.batcher.size() {
			continue
		}
		return
	}
}

// Stop stops the core component. Pending items are flushed before
// returning.
func (c *Component) Stop() error {
	defer func() {
		close(c.healthy)
		c.r.Info().Msg("core component stopped")
	}()
	c.r.Info().Msg("stopping core component")
	c.t.Kill(nil)
	err := c.t.Wait()
	// Workers may have enqueued items after the flusher drained.
	c.flushPending("shutdown", true)
	return err
}

func (c *Component) channelHealthcheck() reporter.HealthcheckFunc {
	return reporter.ChannelHealthcheck(c.t.Context(nil), c.healthy)
}
