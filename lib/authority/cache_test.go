// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"fmt"
	"slices"
	"testing"
)

func TestCacheMiss(t *testing.T) {
	cache := NewCache(CacheConfig{})

	values, negative, ok := cache.lookup("txt:missing.example.com.")
	if ok || negative || values != nil {
		t.Errorf("lookup on empty cache = %v, %v, %v, want nil, false, false", values, negative, ok)
	}
}

func TestCacheStoreAndLookup(t *testing.T) {
	cache := NewCache(CacheConfig{})
	cache.store("txt:a.example.com.", []string{"one", "two"})

	values, negative, ok := cache.lookup("txt:a.example.com.")
	if !ok || negative {
		t.Fatalf("lookup = negative=%v, ok=%v, want positive hit", negative, ok)
	}
	if want := []string{"one", "two"}; !slices.Equal(values, want) {
		t.Errorf("lookup values = %v, want %v", values, want)
	}
}

func TestCacheNegative(t *testing.T) {
	cache := NewCache(CacheConfig{})
	cache.storeNegative("txt:gone.example.com.")

	values, negative, ok := cache.lookup("txt:gone.example.com.")
	if !ok || !negative || values != nil {
		t.Errorf("lookup = %v, %v, %v, want nil, true, true", values, negative, ok)
	}
}

func TestCacheStoreReplacesNegative(t *testing.T) {
	cache := NewCache(CacheConfig{})
	cache.storeNegative("txt:a.example.com.")
	cache.store("txt:a.example.com.", []string{"appeared"})

	values, negative, ok := cache.lookup("txt:a.example.com.")
	if !ok || negative || len(values) != 1 || values[0] != "appeared" {
		t.Errorf("lookup = %v, %v, %v, want positive hit", values, negative, ok)
	}
}

func TestCacheNegativeReplacesStore(t *testing.T) {
	cache := NewCache(CacheConfig{})
	cache.store("txt:a.example.com.", []string{"was here"})
	cache.storeNegative("txt:a.example.com.")

	values, negative, ok := cache.lookup("txt:a.example.com.")
	if !ok || !negative || values != nil {
		t.Errorf("lookup = %v, %v, %v, want negative hit", values, negative, ok)
	}
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	cache := NewCache(CacheConfig{Capacity: 2})
	for i := 0; i < 3; i++ {
		cache.store(fmt.Sprintf("txt:%d.example.com.", i), []string{"v"})
	}

	if _, _, ok := cache.lookup("txt:0.example.com."); ok {
		t.Error("oldest entry survived past capacity")
	}
	if _, _, ok := cache.lookup("txt:2.example.com."); !ok {
		t.Error("newest entry missing")
	}
}

func TestDefaultCacheConfig(t *testing.T) {
	cfg := DefaultCacheConfig()
	if cfg.Capacity <= 0 || cfg.NegativeCapacity <= 0 || cfg.TTL <= 0 {
		t.Errorf("defaults not positive: %+v", cfg)
	}
	if cfg.NegativeCapacity >= cfg.Capacity {
		t.Errorf("negative capacity %d should be far below positive %d", cfg.NegativeCapacity, cfg.Capacity)
	}
}
