// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"testing"
	"time"

	"github.com/caisson-foundation/caisson/lib/partition"
	"github.com/caisson-foundation/caisson/lib/testutil"
)

// waitForRefs polls until the key's entry shows the expected holder
// count, proving a contending goroutine has reached the lock.
func waitForRefs(t *testing.T, table *lockTable, key objectLockKey, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		table.mu.Lock()
		entry, ok := table.entries[key]
		refs := 0
		if ok {
			refs = entry.refs
		}
		table.mu.Unlock()
		if refs == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("lock entry never reached %d holders", want)
}

func TestLockTableMutualExclusion(t *testing.T) {
	table := &lockTable{entries: make(map[objectLockKey]*lockEntry)}
	key := objectLockKey{partition: partition.NewKey("orders", 0), id: partition.NewID()}

	release := table.acquire(key)

	acquired := make(chan struct{})
	go func() {
		second := table.acquire(key)
		close(acquired)
		second()
	}()

	waitForRefs(t, table, key, 2)
	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while the lock was held")
	default:
	}

	release()
	testutil.RequireClosed(t, acquired, 5*time.Second, "lock not granted after release")
}

func TestLockTableKeysIndependent(t *testing.T) {
	table := &lockTable{entries: make(map[objectLockKey]*lockEntry)}
	pk := partition.NewKey("orders", 0)
	first := objectLockKey{partition: pk, id: partition.NewID()}
	second := objectLockKey{partition: pk, id: partition.NewID()}

	release := table.acquire(first)
	defer release()

	acquired := make(chan struct{})
	go func() {
		releaseSecond := table.acquire(second)
		close(acquired)
		releaseSecond()
	}()
	testutil.RequireClosed(t, acquired, 5*time.Second, "unrelated key blocked")
}

func TestLockTableRetiresIdleEntries(t *testing.T) {
	table := &lockTable{entries: make(map[objectLockKey]*lockEntry)}
	pk := partition.NewKey("orders", 0)

	for i := 0; i < 3; i++ {
		release := table.acquire(objectLockKey{partition: pk, id: partition.NewID()})
		release()
	}
	if got := table.held(); got != 0 {
		t.Errorf("%d entries survive with no holders, want 0", got)
	}
}

func TestLockObjectUsesSharedTable(t *testing.T) {
	pk := partition.NewKey("orders", 9)
	id := partition.NewID()
	before := objectLocks.held()

	release := lockObject(pk, id)
	if got := objectLocks.held(); got != before+1 {
		t.Errorf("held = %d while locked, want %d", got, before+1)
	}
	release()
	if got := objectLocks.held(); got != before {
		t.Errorf("held = %d after release, want %d", got, before)
	}
}
