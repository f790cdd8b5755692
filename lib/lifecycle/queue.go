// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"sync"
	"time"

	"github.com/caisson-foundation/caisson/lib/clock"
)

// queue is the task's unbounded producer/consumer buffer. Every pushed
// message is drained exactly once, in FIFO order as observed by a
// single producer. Concurrent producers race for positions, and a
// drain boundary splits whatever order the race produced; the queue
// never re-orders what it holds, but callers must not assume strict
// commit-log order across a batch boundary under producer races.
type queue struct {
	mu    sync.Mutex
	items []Message

	// wake coalesces producer notifications: one pending signal is
	// enough, the consumer drains everything it finds.
	wake chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

// push appends a message and wakes the consumer. Safe for concurrent
// producers.
func (q *queue) push(msg Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
	q.notify()
}

func (q *queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain removes and returns up to limit messages, oldest first.
func (q *queue) drain(limit int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	take := min(limit, len(q.items))
	if take == 0 {
		return nil
	}
	batch := make([]Message, take)
	copy(batch, q.items[:take])

	remaining := copy(q.items, q.items[take:])
	for i := remaining; i < len(q.items); i++ {
		q.items[i] = Message{}
	}
	q.items = q.items[:remaining]
	return batch
}

// size returns the number of buffered messages.
func (q *queue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// await blocks until a producer notifies, the timeout elapses on clk,
// or cancel closes. Spurious wakeups are fine; the caller re-checks
// its own conditions.
func (q *queue) await(clk clock.Clock, timeout time.Duration, cancel <-chan struct{}) {
	select {
	case <-q.wake:
	case <-clk.After(timeout):
	case <-cancel:
	}
}
