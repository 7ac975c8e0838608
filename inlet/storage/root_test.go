// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"flowmill/common/clickhousedb"
	"flowmill/common/daemon"
	"flowmill/common/helpers"
	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
)

type fakeBatches struct {
	mu       sync.Mutex
	sent     [][]any
	sendErrs []error
	aborted  int
}

type fakeBatch struct {
	parent *fakeBatches
	rows   [][]any
}

func (f *fakeBatches) newBatch(_ context.Context, _ string) (flowBatch, error) {
	return &fakeBatch{parent: f}, nil
}

func (b *fakeBatch) Append(v ...any) error {
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Send() error {
	b.parent.mu.Lock()
	defer b.parent.mu.Unlock()
	if len(b.parent.sendErrs) > 0 {
		err := b.parent.sendErrs[0]
		b.parent.sendErrs = b.parent.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	b.parent.sent = append(b.parent.sent, b.rows...)
	return nil
}

func (b *fakeBatch) Abort() error {
	b.parent.mu.Lock()
	defer b.parent.mu.Unlock()
	b.parent.aborted++
	return nil
}

func testComponent(t *testing.T, r *reporter.Reporter) (*Component, *fakeBatches) {
	t.Helper()
	c, err := New(r, DefaultConfiguration(), Dependencies{
		Daemon:     daemon.NewMock(t),
		ClickHouse: clickhousedb.NewMock(t, r),
	})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	batches := fakeBatches{}
	c.newBatch = batches.newBatch
	c.exec = func(_ context.Context, _ string, _ ...any) error { return nil }
	helpers.StartStop(t, c)
	return c, &batches
}

func testItem(srcAddr string) BatchItem {
	return BatchItem{
		Flow: &decoder.FlowMessage{
			ExporterAddress: netip.MustParseAddr("192.0.2.1"),
			SrcAddr:         netip.MustParseAddr(srcAddr),
			DstAddr:         netip.MustParseAddr("198.51.100.1"),
			SrcPort:         443,
			DstPort:         49152,
			Proto:           6,
			Bytes:           1400,
			Packets:         2,
			TimeFlowStart:   1000,
			TimeFlowEnd:     1001,
		},
		DeviceID:        7,
		FlowTypeVersion: "netflow-v5",
		Timestamp:       time.Date(2022, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestStartCreatesTable(t *testing.T) {
	r := reporter.NewMock(t)
	c, err := New(r, DefaultConfiguration(), Dependencies{
		Daemon:     daemon.NewMock(t),
		ClickHouse: clickhousedb.NewMock(t, r),
	})
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	var got string
	c.exec = func(_ context.Context, query string, _ ...any) error {
		got = query
		return nil
	}
	helpers.StartStop(t, c)
	if !strings.Contains(got, "CREATE TABLE IF NOT EXISTS flows") {
		t.Errorf("Start() did not create the flow table:\n%s", got)
	}
	if !strings.Contains(got, "ENGINE = MergeTree") {
		t.Errorf("Start() did not use the expected engine:\n%s", got)
	}
}

func TestStoreBatch(t *testing.T) {
	r := reporter.NewMock(t)
	c, batches := testComponent(t, r)

	items := []BatchItem{testItem("203.0.113.1"), testItem("203.0.113.2"), testItem("203.0.113.3")}
	stored, err := c.StoreBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("StoreBatch() error:\n%+v", err)
	}
	if stored != 3 {
		t.Errorf("StoreBatch() stored %d items, expected 3", stored)
	}
	if len(batches.sent) != 3 {
		t.Errorf("StoreBatch() sent %d rows, expected 3", len(batches.sent))
	}
	if batches.sent[0][4] != "203.0.113.1" {
		t.Errorf("StoreBatch() first row src_addr %v, expected 203.0.113.1", batches.sent[0][4])
	}

	gotMetrics := r.GetMetrics("flowmill_inlet_storage_", "batches_total", "items_total")
	expectedMetrics := map[string]string{
		`batches_total{status="success"}`: "1",
		`items_total{status="success"}`:   "3",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Errorf("Metrics (-got, +want):\n%s", diff)
	}
}

func TestStoreBatchEmpty(t *testing.T) {
	r := reporter.NewMock(t)
	c, batches := testComponent(t, r)
	stored, err := c.StoreBatch(context.Background(), nil)
	if err != nil || stored != 0 {
		t.Errorf("StoreBatch() == (%d, %v), expected (0, nil)", stored, err)
	}
	if len(batches.sent) != 0 {
		t.Errorf("StoreBatch() sent %d rows, expected none", len(batches.sent))
	}
}

func TestStoreBatchFallback(t *testing.T) {
	r := reporter.NewMock(t)
	c, batches := testComponent(t, r)

	// Batch insert fails, then the first item succeeds while the
	// second fails its initial attempt and its retry.
	boom := errors.New("broken pipe")
	batches.sendErrs = []error{boom, nil, boom, boom}

	items := []BatchItem{testItem("203.0.113.1"), testItem("203.0.113.2")}
	stored, err := c.StoreBatch(context.Background(), items)
	if err == nil {
		t.Fatal("StoreBatch() did not report the batch failure")
	}
	if stored != 1 {
		t.Errorf("StoreBatch() stored %d items, expected 1", stored)
	}
	if len(batches.sent) != 1 {
		t.Errorf("StoreBatch() sent %d rows, expected 1", len(batches.sent))
	}

	gotMetrics := r.GetMetrics("flowmill_inlet_storage_", "batches_total", "items_total")
	expectedMetrics := map[string]string{
		`batches_total{status="failure"}`: "1",
		`items_total{status="success"}`:   "1",
		`items_total{status="failure"}`:   "1",
	}
	if diff := helpers.Diff(gotMetrics, expectedMetrics); diff != "" {
		t.Errorf("Metrics (-got, +want):\n%s", diff)
	}
}
