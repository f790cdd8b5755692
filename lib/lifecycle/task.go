// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caisson-foundation/caisson/lib/clock"
	"github.com/caisson-foundation/caisson/lib/keyring"
	"github.com/caisson-foundation/caisson/lib/partition"
	"github.com/caisson-foundation/caisson/lib/rights"
)

const (
	// maxBatch bounds one drain so a flooded queue cannot starve the
	// tick and idle callbacks.
	maxBatch = 1000

	// maxIdleWait bounds the empty-queue block so the worker re-checks
	// its running flag and tick bookkeeping at least once per second.
	maxIdleWait = time.Second
)

// DefaultIdleThreshold is how long a partition must stay quiet before
// the warm and idle callbacks fire, unless configured otherwise.
const DefaultIdleThreshold = 30 * time.Second

// Options assembles a task. Partition, Callback, and Data are
// required; everything else has a working default.
type Options[T any] struct {
	// Partition is the commit-log partition this task subscribes to.
	Partition partition.Key

	// Callback receives the lifecycle events.
	Callback Callback[T]

	// Data is the partition data layer (snapshot, warm, payload
	// materialization).
	Data Data[T]

	// Authorization gates delivery per object. Nil allows everything.
	Authorization Authorization

	// Identity is who the task runs as. Its read and write keys are
	// seeded into Keys after the catch-up snapshot so payload access
	// checks succeed. Nil runs anonymous.
	Identity *rights.Identity

	// Keys is the key store seeded with the identity's rights. Nil
	// skips seeding.
	Keys keyring.Store

	// IdleThreshold is the quiet span after which the warm and idle
	// callbacks fire. Defaults to DefaultIdleThreshold.
	IdleThreshold time.Duration

	// Clock drives idle timing and the bounded waits. Defaults to the
	// real clock.
	Clock clock.Clock

	// Logger receives step faults and skip diagnostics. Defaults to
	// discard.
	Logger *slog.Logger
}

// Task delivers one partition's commit-log messages, filtered to one
// object type, to a subscriber's lifecycle callbacks. One dedicated
// worker goroutine owns every callback invocation; per-object
// exclusive locks serialize it against other tasks processing the
// same logical object.
//
// Delivery is exactly once per queued message, in batches of at most
// 1000. FIFO order holds per producer, but concurrent producers race
// for queue positions and a batch boundary splits whatever order the
// race produced; callers must not assume strict commit-log order
// across batch boundaries. Faults in one message or callback are
// logged and isolated, never aborting the batch or the worker.
type Task[T any] struct {
	partition     partition.Key
	callback      Callback[T]
	data          Data[T]
	auth          Authorization
	identity      *rights.Identity
	keys          keyring.Store
	idleThreshold time.Duration
	clk           clock.Clock
	logger        *slog.Logger

	queue *queue

	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}
}

// New builds a task in the Created state. Nothing runs until Start.
func New[T any](opts Options[T]) (*Task[T], error) {
	if opts.Partition.IsZero() {
		return nil, fmt.Errorf("lifecycle: Partition is required")
	}
	if opts.Callback == nil {
		return nil, fmt.Errorf("lifecycle: Callback is required")
	}
	if opts.Data == nil {
		return nil, fmt.Errorf("lifecycle: Data is required")
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = DefaultIdleThreshold
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Task[T]{
		partition:     opts.Partition,
		callback:      opts.Callback,
		data:          opts.Data,
		auth:          opts.Authorization,
		identity:      opts.Identity,
		keys:          opts.Keys,
		idleThreshold: opts.IdleThreshold,
		clk:           opts.Clock,
		logger:        opts.Logger,
		queue:         newQueue(),
		state:         Created,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// Partition returns the partition this task subscribes to.
func (t *Task[T]) Partition() partition.Key {
	return t.partition
}

// State returns where the task stands in its lifecycle.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Pending returns the number of queued, undelivered messages.
func (t *Task[T]) Pending() int {
	return t.queue.size()
}

// Add queues a message for delivery and wakes the worker. Safe for
// concurrent producers, before or after Start; messages queued on a
// stopped task are never delivered.
func (t *Task[T]) Add(msg Message) {
	t.queue.push(msg)
}

// Start spawns the worker goroutine. Only the first call on a Created
// task does anything.
func (t *Task[T]) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Created {
		return
	}
	t.state = Starting
	go t.run()
}

// Stop asks the worker to finish and blocks until it has. The message
// in flight completes; cancellation is cooperative, observed at the
// next loop check. Stopping a never-started task just marks it
// Stopped.
func (t *Task[T]) Stop() {
	t.mu.Lock()
	switch t.state {
	case Created:
		t.state = Stopped
		close(t.done)
		t.mu.Unlock()
		return
	case Stopped:
		t.mu.Unlock()
		return
	case Stopping:
		t.mu.Unlock()
		<-t.done
		return
	}
	t.state = Stopping
	close(t.stop)
	t.mu.Unlock()
	<-t.done
}

// transition advances the state unless a stop has already begun.
func (t *Task[T]) transition(next State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Stopping || t.state == Stopped {
		return
	}
	t.state = next
}

func (t *Task[T]) run() {
	defer func() {
		t.mu.Lock()
		t.state = Stopped
		t.mu.Unlock()
		close(t.done)
	}()
	t.transition(RunningUninitialized)

	lastIdle := t.clk.Now()
	initialized := false

	for t.State().running() {
		if !initialized {
			if initialized = t.initialize(); initialized {
				t.transition(RunningInitialized)
			}
		}

		t.step("tick", func(ctx context.Context) error {
			return t.callback.OnTick(ctx, t)
		})

		batch := t.queue.drain(maxBatch)
		if len(batch) > 0 {
			for _, msg := range batch {
				t.process(msg)
			}
			continue
		}

		if t.clk.Since(lastIdle) >= t.idleThreshold {
			t.step("idle", func(ctx context.Context) error {
				if err := t.data.Warm(ctx, t.partition); err != nil {
					t.logger.Warn("partition warm failed",
						"partition", t.partition.String(),
						"error", err,
					)
				}
				return t.callback.OnIdle(ctx, t)
			})
			lastIdle = t.clk.Now()
		}
		t.queue.await(t.clk, min(t.idleThreshold, maxIdleWait), t.stop)
	}
}

// initialize delivers the catch-up snapshot, then seeds the identity's
// keys into the partition's key store so later payload access checks
// succeed. A failed snapshot read leaves the task uninitialized and is
// retried on the next iteration; a callback fault does not (the
// snapshot was delivered).
func (t *Task[T]) initialize() (initialized bool) {
	t.step("init", func(ctx context.Context) error {
		snapshot, err := t.data.All(ctx, t.partition)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		initialized = true
		return t.callback.OnInit(ctx, snapshot, t)
	})
	if initialized {
		t.step("seed", t.seedRights)
	}
	return initialized
}

// seedRights merges every key the identity holds into the partition's
// key store, self-unlocking, skipping keys already present.
func (t *Task[T]) seedRights(ctx context.Context) error {
	if t.identity == nil || t.keys == nil {
		return nil
	}
	for _, key := range t.identity.Keys() {
		held, err := t.keys.Exists(ctx, t.partition, key.SecretHash(), key.Public().Hash())
		if err != nil {
			return fmt.Errorf("seeding key %s: %w", key.Public().Hash(), err)
		}
		if held {
			continue
		}
		if err := t.keys.Put(ctx, t.partition, key, key.Public().Hash()); err != nil {
			return fmt.Errorf("seeding key %s: %w", key.Public().Hash(), err)
		}
	}
	return nil
}

// process delivers one message under the object's exclusive lock.
func (t *Task[T]) process(msg Message) {
	t.step("message", func(ctx context.Context) error {
		release := lockObject(t.partition, msg.TargetID)
		defer release()

		// A tombstone is a removal no matter what else the header
		// says.
		if msg.Tombstone() {
			return t.callback.OnRemove(ctx, msg.Address(t.partition), t)
		}
		if t.auth != nil && !t.auth.CanRead(ctx, t.partition, msg.TargetID) {
			t.logger.Debug("unreadable target skipped",
				"partition", t.partition.String(),
				"id", msg.TargetID.String(),
			)
			return nil
		}
		obj, ok, err := t.data.FromMessage(ctx, t.partition, msg, false)
		if err != nil {
			return fmt.Errorf("materializing %s: %w", msg.TargetID, err)
		}
		if !ok {
			t.logger.Debug("undecodable payload skipped",
				"partition", t.partition.String(),
				"id", msg.TargetID.String(),
			)
			return nil
		}
		if msg.PreviousVersion == uuid.Nil {
			return t.callback.OnCreate(ctx, obj, t)
		}
		return t.callback.OnUpdate(ctx, obj, t)
	})
}

// step runs one unit of worker work under a fresh scope with fault
// isolation: an error or panic is logged and the worker moves on. The
// scope context is canceled when the unit returns, so nothing captured
// inside a callback stays usable across invocations.
func (t *Task[T]) step(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = WithScope(ctx, Scope{Partition: t.partition, Identity: t.identityAlias()})

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("task step panicked",
				"step", name,
				"partition", t.partition.String(),
				"panic", r,
			)
		}
	}()

	if err := fn(ctx); err != nil {
		t.logger.Error("task step failed",
			"step", name,
			"partition", t.partition.String(),
			"error", err,
		)
	}
}

func (t *Task[T]) identityAlias() string {
	if t.identity == nil {
		return ""
	}
	return t.identity.Alias
}
