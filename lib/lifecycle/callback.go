// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"

	"github.com/caisson-foundation/caisson/lib/partition"
)

// Callback is the subscriber contract. Every method is invoked
// synchronously from the task's own worker goroutine, one call at a
// time, under a context carrying the task's Scope. A returned error
// (or a panic) is logged and isolated; it never stops the worker.
//
// The type parameter fixes the subscribed object type at compile
// time, so a subscriber never sees a payload of the wrong type.
type Callback[T any] interface {
	// OnInit delivers the catch-up snapshot of every object of the
	// subscribed type already known in the partition. Called exactly
	// once, before any other callback.
	OnInit(ctx context.Context, snapshot []T, task *Task[T]) error

	// OnCreate delivers an object's first write.
	OnCreate(ctx context.Context, obj T, task *Task[T]) error

	// OnUpdate delivers a write that follows a previous version.
	OnUpdate(ctx context.Context, obj T, task *Task[T]) error

	// OnRemove delivers a tombstone. Only the address survives the
	// deletion, not the object.
	OnRemove(ctx context.Context, address partition.Address, task *Task[T]) error

	// OnTick is the heartbeat, invoked once per worker iteration
	// whether or not messages arrived.
	OnTick(ctx context.Context, task *Task[T]) error

	// OnIdle is periodic bookkeeping, invoked at most once per idle
	// interval while no messages arrive, always after the partition
	// data has been warmed.
	OnIdle(ctx context.Context, task *Task[T]) error
}

// Data is the partition data layer a task reads through.
type Data[T any] interface {
	// All snapshots every known object of the subscribed type in the
	// partition.
	All(ctx context.Context, pk partition.Key) ([]T, error)

	// Merge upserts an object into the partition's materialized view.
	Merge(ctx context.Context, pk partition.Key, obj T) error

	// Warm pre-touches the partition so the idle callback runs
	// against loaded data.
	Warm(ctx context.Context, pk partition.Key) error

	// FromMessage materializes a message's payload. ok=false means
	// the payload does not decode to the subscribed type; under
	// strict the same condition is an error instead.
	FromMessage(ctx context.Context, pk partition.Key, msg Message, strict bool) (T, bool, error)
}

// Authorization gates message delivery.
type Authorization interface {
	// CanRead reports whether the task's identity may read the
	// object. False is a silent skip, never an error.
	CanRead(ctx context.Context, pk partition.Key, id partition.ID) bool
}
