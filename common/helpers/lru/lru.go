// SPDX-FileCopyrightText: 2023 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package lru implements a thread-safe key/value store with strict
// least-recently-used ordering. Both lookups and updates move an
// entry to the front.
package lru

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a thread-safe LRU key/value store.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*list.Element
	order *list.List // front is most recently used
}

// entry is what the eviction list holds.
type entry[K comparable, V any] struct {
	Key      K
	Object   V
	LastSeen int64
}

// New creates a new instance of the cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]*list.Element),
		order: list.New(),
	}
}

// Put adds an object to the cache, or refreshes it when already
// present. In both cases the entry becomes the most recently used.
func (c *Cache[K, V]) Put(now time.Time, key K, object V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.Object = object
		e.LastSeen = now.Unix()
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{
		Key:      key,
		Object:   object,
		LastSeen: now.Unix(),
	})
}

// Get retrieves an object from the cache and marks it as the most
// recently used.
func (c *Cache[K, V]) Get(now time.Time, key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	e.LastSeen = now.Unix()
	c.order.MoveToFront(el)
	return e.Object, true
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// EvictOldest removes the least-recently-used entry and returns its
// key. It returns false when the cache is empty.
func (c *Cache[K, V]) EvictOldest() (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictOldestLocked()
}

// EvictFraction removes the given fraction of entries, oldest first,
// and returns how many were removed.
func (c *Cache[K, V]) EvictFraction(fraction float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := int(float64(c.order.Len()) * fraction)
	for i := 0; i < count; i++ {
		if _, ok := c.evictOldestLocked(); !ok {
			return i
		}
	}
	return count
}

func (c *Cache[K, V]) evictOldestLocked() (K, bool) {
	el := c.order.Back()
	if el == nil {
		var zero K
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	c.order.Remove(el)
	delete(c.items, e.Key)
	return e.Key, true
}
