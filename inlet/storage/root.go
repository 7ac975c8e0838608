// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package storage hands validated flow records over to ClickHouse.
// Batches are preferred; on batch failure each item is retried
// individually once before being discarded.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cenkalti/backoff/v4"
	"gopkg.in/tomb.v2"

	"flowmill/common/clickhousedb"
	"flowmill/common/daemon"
	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
)

// BatchItem is one flow record ready for storage.
type BatchItem struct {
	// Flow is the sanitized flow record.
	Flow *decoder.FlowMessage
	// DeviceID is the handle of the exporting device. Items with
	// a negative handle must not reach storage.
	DeviceID int64
	// FlowTypeVersion identifies the protocol and version the
	// flow was decoded from, for example "netflow-v5".
	FlowTypeVersion string
	// Timestamp is the time the item was built.
	Timestamp time.Time
}

// Component represents the storage component.
type Component struct {
	r      *reporter.Reporter
	d      *Dependencies
	t      tomb.Tomb
	config Configuration

	metrics metrics

	// Seams for tests.
	exec     func(ctx context.Context, query string, args ...any) error
	newBatch func(ctx context.Context, query string) (flowBatch, error)
}

// flowBatch is the part of a ClickHouse batch we rely on.
type flowBatch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

// Dependencies define the dependencies of the storage component.
type Dependencies struct {
	Daemon     daemon.Component
	ClickHouse *clickhousedb.Component
}

// New creates a new storage component.
func New(r *reporter.Reporter, configuration Configuration, dependencies Dependencies) (*Component, error) {
	c := Component{
		r:      r,
		d:      &dependencies,
		config: configuration,
	}
	c.exec = func(ctx context.Context, query string, args ...any) error {
		return c.d.ClickHouse.Exec(ctx, query, args...)
	}
	c.newBatch = func(ctx context.Context, query string) (flowBatch, error) {
		batch, err := c.d.ClickHouse.PrepareBatch(ctx, query, driver.WithReleaseConnection())
		if err != nil {
			return nil, err
		}
		return batch, nil
	}
	c.initMetrics()
	c.d.Daemon.Track(&c.t, "inlet/storage")
	return &c, nil
}

// Start creates the flow table if needed.
func (c *Component) Start() error {
	c.r.Info().Msg("starting storage component")
	ctx, cancel := context.WithTimeout(c.t.Context(context.Background()), c.config.Timeout)
	defer cancel()
	if err := c.exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
 time_received DateTime,
 device_id Int64,
 flow_type LowCardinality(String),
 exporter_address LowCardinality(String),
 src_addr String,
 dst_addr String,
 src_port UInt16,
 dst_port UInt16,
 proto UInt8,
 ip_tos UInt8,
 tcp_flags UInt8,
 bytes UInt64,
 packets UInt64,
 time_flow_start DateTime,
 time_flow_end DateTime
)
ENGINE = MergeTree
PARTITION BY toYYYYMMDD(time_received)
ORDER BY (device_id, time_received)`, c.config.Table)); err != nil {
		return fmt.Errorf("cannot create table %s: %w", c.config.Table, err)
	}
	return nil
}

// Stop stops the storage component.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("storage component stopped")
	c.t.Kill(nil)
	return c.t.Wait()
}

// StoreBatch stores a batch of items. An empty batch is a no-op. On
// batch failure, each item is stored individually; items failing the
// individual path are discarded. It returns the number of items
// stored.
func (c *Component) StoreBatch(ctx context.Context, items []BatchItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	start := time.Now()
	err := c.storeAll(ctx, items)
	c.metrics.batchDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		c.metrics.batches.WithLabelValues("success").Inc()
		c.metrics.items.WithLabelValues("success").Add(float64(len(items)))
		return len(items), nil
	}
	c.metrics.batches.WithLabelValues("failure").Inc()
	c.r.Err(err).Int("items", len(items)).Msg("batch insert failed, falling back to per-item inserts")

	var stored int
	for idx := range items {
		if c.StoreOne(ctx, items[idx]) {
			stored++
		}
	}
	return stored, err
}

// StoreOne stores a single item, retrying once before giving up.
func (c *Component) StoreOne(ctx context.Context, item BatchItem) bool {
	err := backoff.Retry(func() error {
		return c.storeAll(ctx, []BatchItem{item})
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx))
	if err != nil {
		c.metrics.items.WithLabelValues("failure").Inc()
		return false
	}
	c.metrics.items.WithLabelValues("success").Inc()
	return true
}

func (c *Component) storeAll(ctx context.Context, items []BatchItem) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	batch, err := c.newBatch(ctx, fmt.Sprintf(`
INSERT INTO %s (time_received, device_id, flow_type, exporter_address,
 src_addr, dst_addr, src_port, dst_port, proto, ip_tos, tcp_flags,
 bytes, packets, time_flow_start, time_flow_end)`, c.config.Table))
	if err != nil {
		return fmt.Errorf("cannot prepare batch: %w", err)
	}
	for idx := range items {
		item := &items[idx]
		flow := item.Flow
		if err := batch.Append(
			item.Timestamp,
			item.DeviceID,
			item.FlowTypeVersion,
			flow.ExporterAddress.Unmap().String(),
			flow.SrcAddr.Unmap().String(),
			flow.DstAddr.Unmap().String(),
			flow.SrcPort,
			flow.DstPort,
			flow.Proto,
			flow.IPTos,
			flow.TCPFlags,
			flow.Bytes,
			flow.Packets,
			time.Unix(int64(flow.TimeFlowStart), 0),
			time.Unix(int64(flow.TimeFlowEnd), 0),
		); err != nil {
			batch.Abort()
			return fmt.Errorf("cannot append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("cannot send batch: %w", err)
	}
	return nil
}
