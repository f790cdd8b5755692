// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package memstore is the in-memory materialized view of a partition's
// objects: the data layer a task reads through. It keeps one map per
// partition keyed by object id, snapshots it for catch-up, and
// materializes log payloads through the codec pipeline (unseal when a
// master key is configured, unpack, CBOR-decode).
//
// The store is a stand-in for an external data layer with the same
// contract; anything implementing lifecycle.Data can replace it.
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/caisson-foundation/caisson/lib/codec"
	"github.com/caisson-foundation/caisson/lib/lifecycle"
	"github.com/caisson-foundation/caisson/lib/partition"
	"github.com/caisson-foundation/caisson/lib/secret"
)

// Config assembles a Store.
type Config[T any] struct {
	// Identify extracts the object id a stored value is keyed by.
	// Required.
	Identify func(T) partition.ID

	// Master enables sealed mode. Payloads are opened with a key
	// derived from this master secret per partition before unpacking;
	// EncodePayload seals symmetrically. Nil reads and writes
	// plaintext payloads. The caller keeps ownership of the buffer.
	Master *secret.Buffer

	// Logger receives skip diagnostics. Defaults to discard.
	Logger *slog.Logger
}

// Store materializes objects of one type across partitions. Safe for
// concurrent use by tasks and producers.
type Store[T any] struct {
	identify func(T) partition.ID
	master   *secret.Buffer
	logger   *slog.Logger

	mu         sync.RWMutex
	partitions map[partition.Key]map[partition.ID]T
	sealKeys   map[partition.Key]*secret.Buffer
}

var _ lifecycle.Data[struct{}] = (*Store[struct{}])(nil)

// New builds an empty store.
func New[T any](cfg Config[T]) (*Store[T], error) {
	if cfg.Identify == nil {
		return nil, fmt.Errorf("memstore: Identify is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store[T]{
		identify:   cfg.Identify,
		master:     cfg.Master,
		logger:     cfg.Logger,
		partitions: make(map[partition.Key]map[partition.ID]T),
		sealKeys:   make(map[partition.Key]*secret.Buffer),
	}, nil
}

// Close releases the derived partition keys. The master buffer stays
// with its owner. The object maps survive; Close only drops key
// material.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pk, key := range s.sealKeys {
		key.Close()
		delete(s.sealKeys, pk)
	}
	return nil
}

// All snapshots every object known in the partition, ordered by id so
// catch-up delivery is deterministic.
func (s *Store[T]) All(_ context.Context, pk partition.Key) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects := s.partitions[pk]
	snapshot := make([]T, 0, len(objects))
	for _, obj := range objects {
		snapshot = append(snapshot, obj)
	}
	slices.SortFunc(snapshot, func(a, b T) int {
		return s.identify(a).Compare(s.identify(b))
	})
	return snapshot, nil
}

// Merge upserts an object into its partition's view.
func (s *Store[T]) Merge(_ context.Context, pk partition.Key, obj T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.partitions[pk]
	if !ok {
		objects = make(map[partition.ID]T)
		s.partitions[pk] = objects
	}
	objects[s.identify(obj)] = obj
	return nil
}

// Get returns the stored object with the given id.
func (s *Store[T]) Get(pk partition.Key, id partition.ID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.partitions[pk][id]
	return obj, ok
}

// Remove drops an object from its partition's view, reporting whether
// it was present. Subscribers call this from their tombstone handler.
func (s *Store[T]) Remove(pk partition.Key, id partition.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects := s.partitions[pk]
	if _, ok := objects[id]; !ok {
		return false
	}
	delete(objects, id)
	return true
}

// Len returns the number of objects known in the partition.
func (s *Store[T]) Len(pk partition.Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions[pk])
}

// Warm prepares the partition for processing: in sealed mode it
// derives and caches the partition's key, the expensive part of the
// read path.
func (s *Store[T]) Warm(_ context.Context, pk partition.Key) error {
	if s.master == nil {
		return nil
	}
	if _, err := s.sealKey(pk); err != nil {
		return fmt.Errorf("warming %s: %w", pk, err)
	}
	return nil
}

// sealKey returns the partition's derived key, deriving and caching it
// on first use.
func (s *Store[T]) sealKey(pk partition.Key) (*secret.Buffer, error) {
	s.mu.RLock()
	key, ok := s.sealKeys[pk]
	s.mu.RUnlock()
	if ok {
		return key, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.sealKeys[pk]; ok {
		return key, nil
	}
	key, err := codec.DerivePartitionKey(s.master, pk)
	if err != nil {
		return nil, err
	}
	s.sealKeys[pk] = key
	return key, nil
}

// FromMessage materializes a log payload: unseal when sealed mode is
// on, unpack, CBOR-decode. ok=false covers payloads that do not
// decode to the stored type; under strict the same conditions are
// errors. A tombstone never materializes.
func (s *Store[T]) FromMessage(_ context.Context, pk partition.Key, msg lifecycle.Message, strict bool) (T, bool, error) {
	var zero T
	if msg.Tombstone() {
		if strict {
			return zero, false, fmt.Errorf("materializing %s: tombstone has no payload", msg.TargetID)
		}
		return zero, false, nil
	}

	payload := msg.Payload
	if s.master != nil {
		key, err := s.sealKey(pk)
		if err != nil {
			return zero, false, err
		}
		payload, err = codec.Open(payload, key, msg.Address(pk))
		if err != nil {
			return s.reject(strict, msg, "unsealing", err)
		}
	}

	unpacked, err := codec.Unpack(payload)
	if err != nil {
		return s.reject(strict, msg, "unpacking", err)
	}

	var obj T
	if err := codec.Unmarshal(unpacked, &obj); err != nil {
		return s.reject(strict, msg, "decoding", err)
	}
	return obj, true, nil
}

// reject turns a materialization failure into a strict error or a
// lenient skip.
func (s *Store[T]) reject(strict bool, msg lifecycle.Message, stage string, err error) (T, bool, error) {
	var zero T
	if strict {
		return zero, false, fmt.Errorf("%s payload for %s: %w", stage, msg.TargetID, err)
	}
	s.logger.Debug("payload rejected",
		"stage", stage,
		"id", msg.TargetID.String(),
		"error", err,
	)
	return zero, false, nil
}

// EncodePayload is the producer-side inverse of FromMessage: CBOR
// encode, pack with the given compression tag, and seal when sealed
// mode is on. The result is ready to travel as a Message payload
// addressed to id within pk.
func (s *Store[T]) EncodePayload(pk partition.Key, id partition.ID, obj T, tag codec.Tag) ([]byte, error) {
	encoded, err := codec.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encoding payload for %s: %w", id, err)
	}
	packed, err := codec.Pack(encoded, tag)
	if err != nil {
		return nil, fmt.Errorf("packing payload for %s: %w", id, err)
	}
	if s.master == nil {
		return packed, nil
	}
	key, err := s.sealKey(pk)
	if err != nil {
		return nil, err
	}
	sealed, err := codec.Seal(packed, key, partition.NewAddress(pk, id))
	if err != nil {
		return nil, fmt.Errorf("sealing payload for %s: %w", id, err)
	}
	return sealed, nil
}
