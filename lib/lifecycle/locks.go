// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"sync"

	"github.com/caisson-foundation/caisson/lib/partition"
)

// objectLocks serializes message processing per logical object across
// every task in the process. Exactly one object lock is held at a time
// on the dispatch path and no other lock is taken under it, so this
// table cannot deadlock with itself.
var objectLocks = &lockTable{entries: make(map[objectLockKey]*lockEntry)}

type objectLockKey struct {
	partition partition.Key
	id        partition.ID
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lockTable hands out per-key mutexes on demand and retires them when
// the last holder releases, so the table only ever holds entries for
// objects currently being processed or waited on.
type lockTable struct {
	mu      sync.Mutex
	entries map[objectLockKey]*lockEntry
}

// acquire blocks until the key's lock is held and returns the release
// function. Release must be called exactly once.
func (t *lockTable) acquire(key objectLockKey) (release func()) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok {
		entry = &lockEntry{}
		t.entries[key] = entry
	}
	entry.refs++
	t.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		t.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(t.entries, key)
		}
		t.mu.Unlock()
	}
}

// held returns the number of live entries, for tests.
func (t *lockTable) held() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// lockObject takes the process-wide exclusive lock for one object.
func lockObject(pk partition.Key, id partition.ID) (release func()) {
	return objectLocks.acquire(objectLockKey{partition: pk, id: id})
}
