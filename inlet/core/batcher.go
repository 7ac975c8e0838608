// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package core

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"flowmill/inlet/storage"
)

// flushWindow is the number of flush duration samples the controller
// averages over.
const flushWindow = 10

// batcher accumulates batch items and adapts its batch size to the
// observed flush latency. Enqueue and drain share one lock so a flush
// can never double-drain, but the storage call itself happens off the
// lock.
type batcher struct {
	mu        sync.Mutex
	clock     clock.Clock
	pending   []storage.BatchItem
	lastFlush time.Time
	window    []time.Duration

	current  int
	min, max int
	target   time.Duration
	interval time.Duration
}

func newBatcher(config Configuration, clk clock.Clock) *batcher {
	initial := 100
	if initial > config.MaxBatchSize {
		initial = config.MaxBatchSize
	}
	if initial < config.MinBatchSize {
		initial = config.MinBatchSize
	}
	return &batcher{
		clock:     clk,
		lastFlush: clk.Now(),
		window:    make([]time.Duration, 0, flushWindow),
		current:   initial,
		min:       config.MinBatchSize,
		max:       config.MaxBatchSize,
		target:    config.TargetFlushLatency,
		interval:  config.FlushInterval,
	}
}

// add appends an item to the pending queue. It returns true when a
// flush is due, either because a full batch is pending or because the
// last flush is too old.
func (b *batcher) add(item storage.BatchItem) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, item)
	return len(b.pending) >= b.current || b.clock.Now().Sub(b.lastFlush) > b.interval
}

// flush drains up to one batch worth of items. Items beyond the
// current batch size stay queued. It also returns the number of items
// left in the queue.
func (b *batcher) flush() ([]storage.BatchItem, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFlush = b.clock.Now()
	n := len(b.pending)
	if n == 0 {
		return nil, 0
	}
	if n > b.current {
		n = b.current
	}
	items := make([]storage.BatchItem, n)
	copy(items, b.pending)
	remaining := copy(b.pending, b.pending[n:])
	for i := remaining; i < len(b.pending); i++ {
		b.pending[i] = storage.BatchItem{}
	}
	b.pending = b.pending[:remaining]
	return items, remaining
}

// recordFlushTime feeds one flush duration to the controller. When
// the mean over the window exceeds the target, the batch size shrinks
// by 10%; when it stays below half the target, it grows by 10%. The
// size is clamped to [min, max].
func (b *batcher) recordFlushTime(duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.window) == flushWindow {
		copy(b.window, b.window[1:])
		b.window = b.window[:flushWindow-1]
	}
	b.window = append(b.window, duration)

	var total time.Duration
	for _, sample := range b.window {
		total += sample
	}
	mean := total / time.Duration(len(b.window))
	switch {
	case mean > b.target && b.current > b.min:
		next := b.current * 90 / 100
		if next >= b.current {
			next = b.current - 1
		}
		if next < b.min {
			next = b.min
		}
		b.current = next
	case mean < b.target/2 && b.current < b.max:
		next := b.current * 110 / 100
		if next <= b.current {
			next = b.current + 1
		}
		if next > b.max {
			next = b.max
		}
		b.current = next
	}
}

// size returns the current batch size.
func (b *batcher) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
