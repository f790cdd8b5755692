// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheConfig sizes the resolver's DNS cache.
type CacheConfig struct {
	// Capacity is the number of positive entries held.
	Capacity int

	// NegativeCapacity is the number of no-record outcomes held.
	// Negative entries stop repeated lookups of absent records;
	// transient network failures are never cached.
	NegativeCapacity int

	// TTL bounds the lifetime of every entry, positive and negative.
	TTL time.Duration
}

// DefaultCacheConfig returns the standard sizing: 20000 positive
// entries, 300 negative slots, 300-second TTL.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Capacity:         20000,
		NegativeCapacity: 300,
		TTL:              300 * time.Second,
	}
}

// Cache is the resolver's lookup cache. One instance is shared by
// every caller of a resolver, so a poisoned or stale entry is visible
// to all of them until its TTL passes; that trade is deliberate
// (lookups of trust records are hot and identical across callers).
// Safe for concurrent use.
type Cache struct {
	positive *expirable.LRU[string, []string]
	negative *expirable.LRU[string, struct{}]
}

// NewCache builds a cache with the given sizing. Zero-value fields
// fall back to the defaults.
func NewCache(cfg CacheConfig) *Cache {
	defaults := DefaultCacheConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaults.Capacity
	}
	if cfg.NegativeCapacity <= 0 {
		cfg.NegativeCapacity = defaults.NegativeCapacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	return &Cache{
		positive: expirable.NewLRU[string, []string](cfg.Capacity, nil, cfg.TTL),
		negative: expirable.NewLRU[string, struct{}](cfg.NegativeCapacity, nil, cfg.TTL),
	}
}

// lookup returns the cached values for a key, or negative=true when
// the key is cached as having no record.
func (c *Cache) lookup(key string) (values []string, negative, ok bool) {
	if values, ok := c.positive.Get(key); ok {
		return values, false, true
	}
	if _, ok := c.negative.Get(key); ok {
		return nil, true, true
	}
	return nil, false, false
}

// store records a successful lookup.
func (c *Cache) store(key string, values []string) {
	c.negative.Remove(key)
	c.positive.Add(key, values)
}

// storeNegative records a no-record outcome.
func (c *Cache) storeNegative(key string) {
	c.positive.Remove(key)
	c.negative.Add(key, struct{}{})
}
