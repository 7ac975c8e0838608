// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package core

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"flowmill/inlet/storage"
)

func testBatcherConfiguration() Configuration {
	config := DefaultConfiguration()
	config.MinBatchSize = 10
	config.MaxBatchSize = 1000
	config.TargetFlushLatency = 100 * time.Millisecond
	return config
}

func TestControllerShrinksOnSlowFlushes(t *testing.T) {
	b := newBatcher(testBatcherConfiguration(), clock.NewMock())
	if b.size() != 100 {
		t.Fatalf("initial batch size %d, expected 100", b.size())
	}
	previous := b.size()
	for i := 0; i < 10; i++ {
		b.recordFlushTime(200 * time.Millisecond)
		if current := b.size(); current >= previous {
			t.Fatalf("sample %d: batch size %d did not decrease from %d", i, current, previous)
		} else {
			previous = current
		}
	}
	if previous < 10 {
		t.Fatalf("batch size %d fell below the minimum", previous)
	}
}

func TestControllerGrowsOnFastFlushes(t *testing.T) {
	b := newBatcher(testBatcherConfiguration(), clock.NewMock())
	b.current = 20
	previous := b.size()
	for i := 0; i < 20; i++ {
		b.recordFlushTime(20 * time.Millisecond)
		if current := b.size(); current <= previous {
			t.Fatalf("sample %d: batch size %d did not increase from %d", i, current, previous)
		} else if current > 1000 {
			t.Fatalf("sample %d: batch size %d exceeded the maximum", i, current)
		} else {
			previous = current
		}
	}
}

func TestControllerStableNearTarget(t *testing.T) {
	b := newBatcher(testBatcherConfiguration(), clock.NewMock())
	// Between half the target and the target, the size holds.
	for i := 0; i < 10; i++ {
		b.recordFlushTime(70 * time.Millisecond)
	}
	if b.size() != 100 {
		t.Fatalf("batch size %d, expected 100", b.size())
	}
}

func TestFlushKeepsRemainder(t *testing.T) {
	b := newBatcher(testBatcherConfiguration(), clock.NewMock())
	b.current = 5
	for i := 0; i < 8; i++ {
		b.add(storage.BatchItem{DeviceID: int64(i)})
	}
	items, remaining := b.flush()
	if len(items) != 5 || remaining != 3 {
		t.Fatalf("flush() == (%d items, %d remaining), expected (5, 3)", len(items), remaining)
	}
	if items[0].DeviceID != 0 || items[4].DeviceID != 4 {
		t.Fatalf("flush() did not drain in FIFO order: %v", items)
	}
	items, remaining = b.flush()
	if len(items) != 3 || remaining != 0 {
		t.Fatalf("flush() == (%d items, %d remaining), expected (3, 0)", len(items), remaining)
	}
	if items[0].DeviceID != 5 {
		t.Fatalf("flush() did not resume at the right item: %v", items)
	}
	items, _ = b.flush()
	if items != nil {
		t.Fatalf("flush() on empty queue got %d items", len(items))
	}
}

func TestAddSignalsFullBatch(t *testing.T) {
	clk := clock.NewMock()
	b := newBatcher(testBatcherConfiguration(), clk)
	b.current = 3
	if b.add(storage.BatchItem{}) {
		t.Fatal("add() signaled a flush on the first item")
	}
	b.add(storage.BatchItem{})
	if !b.add(storage.BatchItem{}) {
		t.Fatal("add() did not signal a flush on a full batch")
	}
}

func TestAddSignalsStaleQueue(t *testing.T) {
	clk := clock.NewMock()
	b := newBatcher(testBatcherConfiguration(), clk)
	if b.add(storage.BatchItem{}) {
		t.Fatal("add() signaled a flush on a fresh queue")
	}
	clk.Add(6 * time.Second)
	if !b.add(storage.BatchItem{}) {
		t.Fatal("add() did not signal a flush on a stale queue")
	}
}
