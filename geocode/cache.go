// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"fmt"
	"sync"

	"github.com/jcodagnone/geobatch/spatial"
	"github.com/jcodagnone/geobatch/utils"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Repeated
// addresses in large batches are common, and providers bill per call.
type CachedGeocoder struct {
	inner Geocoder
	cache *lruCache
}

// Cached creates a cache decorator around a geocoder.
func Cached(inner Geocoder, maxEntries int) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

// Geocode implements Geocoder. Address keys are accent-folded and
// lowercased so trivially different spellings share an entry.
func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	key := "fwd:" + utils.LowerASCIIFolding(address)
	if res, ok := c.cache.get(key); ok {
		return res, nil
	}

	res, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return res, err
	}

	// Only cache hits so transient "not found" responses can be retried.
	if res != nil {
		c.cache.put(key, res)
	}

	return res, nil
}

// Reverse implements Geocoder.
func (c *CachedGeocoder) Reverse(ctx context.Context, point spatial.Point) (*Result, error) {
	key := fmt.Sprintf("rev:%.6f,%.6f", point.Lat, point.Lng)
	if res, ok := c.cache.get(key); ok {
		return res, nil
	}

	res, err := c.inner.Reverse(ctx, point)
	if err != nil {
		return res, err
	}

	if res != nil {
		c.cache.put(key, res)
	}

	return res, nil
}

// lruCache is a small thread-safe LRU over raw results.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *Result
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	c.moveToFront(e)

	return e.value, true
}

func (c *lruCache) put(key string, value *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)

		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}

	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil

	if c.head != nil {
		c.head.prev = e
	}

	c.head = e

	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}

	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
