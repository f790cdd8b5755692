// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package entity provides the versioned base that every object stored in
// a Caisson partition embeds. The base carries the object's identity
// (id, optional parent id, owning partition), an optimistic-concurrency
// version chain, and a one-way immutability freeze.
//
// The version chain is the conflict-detection primitive of the store:
// each successful commit calls [Base.NewVersion], which records the
// prior version as the previous version and assigns a fresh random one.
// A writer that holds previousVersion P and finds the stored head is no
// longer P has lost a race.
//
// Entities are owned by one logical thread of execution until frozen.
// The base performs no internal locking; cross-goroutine sharing before
// [Base.Immutalize] is a caller bug.
package entity

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/caisson-foundation/caisson/lib/partition"
)

// ErrPartitionUnbound is returned by [Base.PartitionKey] when the
// entity has no bound partition and no resolver to derive one.
var ErrPartitionUnbound = errors.New("entity: partition not bound and no resolver attached")

// PartitionResolver derives the partition that owns an object. The
// store's placement layer implements this; entities hold it only to
// resolve their own partition lazily on first use.
type PartitionResolver interface {
	PartitionOf(id partition.ID) (partition.Key, error)
}

// ImmutabilityError is the panic value raised when a mutating call
// reaches a frozen entity. Freezing is one-way and mutation afterwards
// is a programming-contract violation, so this fails fast rather than
// surfacing as a recoverable error.
type ImmutabilityError struct {
	// Entity is the id of the frozen entity.
	Entity partition.ID
	// Operation names the rejected mutation.
	Operation string
}

func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("entity %s is frozen: %s called after Immutalize", e.Entity, e.Operation)
}

// Identifiable is the minimal surface [Same] needs: anything carrying
// an object id.
type Identifiable interface {
	ID() partition.ID
}

// Same reports whether a and b denote the same stored object: the
// identical concrete type carrying the identical id. Two entities of
// different dynamic types are never the same object, even with equal
// ids; topics may reuse id spaces across object kinds.
func Same(a, b Identifiable) bool {
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return a.ID() == b.ID()
}

// Base is the embeddable versioned core of a stored object:
//
//	type Order struct {
//		entity.Base
//		Total int64
//	}
//
// The zero Base is not valid; construct with [NewBase].
type Base struct {
	id       partition.ID
	parentID partition.ID

	key      partition.Key
	keyBound bool
	resolver PartitionResolver

	version         uuid.UUID
	previousVersion uuid.UUID

	immutable bool
}

// NewBase constructs a mutable base with the given object id and no
// version history.
func NewBase(id partition.ID) Base {
	return Base{id: id}
}

// ID returns the object id.
func (b *Base) ID() partition.ID {
	return b.id
}

// ParentID returns the parent object id and whether one is set.
func (b *Base) ParentID() (partition.ID, bool) {
	return b.parentID, !b.parentID.IsZero()
}

// SetParentID records the parent object. Mutating call.
func (b *Base) SetParentID(parent partition.ID) {
	b.AssertMutable("SetParentID")
	b.parentID = parent
}

// BindPartition fixes the owning partition directly, bypassing lazy
// resolution. Mutating call.
func (b *Base) BindPartition(key partition.Key) {
	b.AssertMutable("BindPartition")
	b.key = key
	b.keyBound = true
}

// SetResolver attaches the collaborator used for lazy partition
// resolution. Plumbing, not object state: the data layer re-attaches
// resolvers when it materializes entities, frozen or not.
func (b *Base) SetResolver(resolver PartitionResolver) {
	b.resolver = resolver
}

// PartitionKey returns the partition that owns this entity. If no
// partition was bound it derives one through the attached resolver and
// caches the result. The cache is derived identity, exempt from the
// freeze: resolution of a frozen entity still caches.
func (b *Base) PartitionKey() (partition.Key, error) {
	if b.keyBound {
		return b.key, nil
	}
	if b.resolver == nil {
		return partition.Key{}, ErrPartitionUnbound
	}
	key, err := b.resolver.PartitionOf(b.id)
	if err != nil {
		return partition.Key{}, fmt.Errorf("resolving partition of %s: %w", b.id, err)
	}
	b.key = key
	b.keyBound = true
	return key, nil
}

// Address returns the entity's global object address. Fails when the
// partition cannot be determined.
func (b *Base) Address() (partition.Address, error) {
	key, err := b.PartitionKey()
	if err != nil {
		return partition.Address{}, err
	}
	return partition.NewAddress(key, b.id), nil
}

// Version returns the current version and whether the entity has ever
// been committed.
func (b *Base) Version() (uuid.UUID, bool) {
	return b.version, b.version != uuid.UUID{}
}

// PreviousVersion returns the prior version and whether one exists. A
// first write has no previous version; the log classifies it as a
// create rather than an update.
func (b *Base) PreviousVersion() (uuid.UUID, bool) {
	return b.previousVersion, b.previousVersion != uuid.UUID{}
}

// NewVersion advances the version chain: the current version (absent on
// a never-committed entity) becomes the previous version and a fresh
// random version takes its place. Called once per successful commit.
// Mutating call.
func (b *Base) NewVersion() {
	b.AssertMutable("NewVersion")
	b.previousVersion = b.version
	b.version = uuid.New()
}

// Immutalize freezes the entity. Idempotent and one-way: there is no
// unfreeze. Types that own mutable sub-structures shadow Immutalize to
// snapshot them (copy-on-write) before calling the embedded Base's, so
// external references retain a consistent pre-freeze view.
func (b *Base) Immutalize() {
	b.immutable = true
}

// IsImmutable reports whether the entity has been frozen.
func (b *Base) IsImmutable() bool {
	return b.immutable
}

// AssertMutable panics with an [*ImmutabilityError] if the entity is
// frozen. Every mutating method calls this first, before touching any
// field, so a failed mutation leaves observable state unchanged. The
// operation parameter names the rejected call in the panic message.
func (b *Base) AssertMutable(operation string) {
	if !b.immutable {
		return
	}
	if operation == "" {
		operation = "mutate"
	}
	panic(&ImmutabilityError{Entity: b.id, Operation: operation})
}
