/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"sync"
	"time"
)

// Clock supplies the current time to caches
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Entry is a cached value and the moment it was stored
type Entry[T any] struct {
	Value    T
	StoredAt time.Time
}

// Keyed is a map cache guarded by a single lock. Entries never expire; the
// cache is a fallback, callers decide how stale is acceptable.
type Keyed[K comparable, V any] struct {
	mu      sync.Mutex
	clock   Clock
	entries map[K]Entry[V]
}

func NewKeyed[K comparable, V any](clock Clock) *Keyed[K, V] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Keyed[K, V]{
		clock:   clock,
		entries: make(map[K]Entry[V]),
	}
}

func (c *Keyed[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[V]{Value: value, StoredAt: c.clock.Now()}
}

func (c *Keyed[K, V]) Get(key K) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Keyed[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// BalanceCache holds the last known lamport balance per address
type BalanceCache = Keyed[string, uint64]

func NewBalanceCache(clock Clock) *BalanceCache {
	return NewKeyed[string, uint64](clock)
}

// TTL holds a single value that is fresh for a fixed duration after it is stored
type TTL[T any] struct {
	mu       sync.Mutex
	clock    Clock
	ttl      time.Duration
	value    T
	storedAt time.Time
	set      bool
}

func NewTTL[T any](ttl time.Duration, clock Clock) *TTL[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TTL[T]{ttl: ttl, clock: clock}
}

// Fresh returns the value if one is stored and has not expired
func (c *TTL[T]) Fresh() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set || c.clock.Now().Sub(c.storedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Last returns the most recently stored value regardless of age
func (c *TTL[T]) Last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

func (c *TTL[T]) Store(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.storedAt = c.clock.Now()
	c.set = true
}
