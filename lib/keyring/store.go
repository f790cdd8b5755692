// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"context"
	"sync"

	"github.com/caisson-foundation/caisson/lib/partition"
	"github.com/caisson-foundation/caisson/lib/secret"
)

// Store is the secure key repository: secret key material filed per
// partition, unlockable only by the holder of a designated public key.
// Absence is a normal outcome everywhere, reported as a false boolean
// rather than an error; errors are reserved for storage faults.
type Store interface {
	// Get returns the secret material filed under secretHash, but
	// only when access holds the keypair whose public hash matches
	// the entry's unlocker. A missing entry and a denied access are
	// indistinguishable to the caller: both return ok=false.
	Get(ctx context.Context, pk partition.Key, secretHash Hash, access *PrivateKey) ([]byte, bool, error)

	// Put files key in the partition, unlockable by the holder of
	// the public key whose hash is unlocker. Re-putting the same key
	// replaces the entry (merge semantics).
	Put(ctx context.Context, pk partition.Key, key *PrivateKey, unlocker Hash) error

	// Exists reports whether an entry with the given secret hash and
	// unlocker is present.
	Exists(ctx context.Context, pk partition.Key, secretHash, unlocker Hash) (bool, error)

	// Lookup finds the public half of a stored key by its own public
	// hash. This is how a hash published in a DNS record becomes a
	// usable key.
	Lookup(ctx context.Context, pk partition.Key, publicHash Hash) (*PublicKey, bool, error)

	// Erase removes every entry filed under secretHash, reporting
	// whether anything was removed. Erasure is immediate and
	// unconditional: compliance deletion does not consult unlockers
	// and survives any replay of the commit log.
	Erase(ctx context.Context, pk partition.Key, secretHash Hash) (bool, error)
}

// memoryEntry holds one stored key. The secret is a plain heap copy:
// the in-memory store offers no at-rest protection and is intended for
// tests and single-process deployments. Use SQLiteStore for sealed
// persistence.
type memoryEntry struct {
	alias      string
	material   []byte
	secretHash Hash
	unlocker   Hash
	secret     []byte
}

// MemoryStore is an in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	// partitions maps partition -> stored key's own public hash ->
	// entry. Secret-hash access scans the partition; partitions hold
	// few keys so the scan beats a second index.
	partitions map[partition.Key]map[Hash]memoryEntry
}

// NewMemoryStore returns an empty in-process key repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{partitions: make(map[partition.Key]map[Hash]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, pk partition.Key, secretHash Hash, access *PrivateKey) ([]byte, bool, error) {
	if access == nil {
		return nil, false, nil
	}
	accessHash := access.Public().Hash()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.partitions[pk] {
		if entry.secretHash != secretHash || entry.unlocker != accessHash {
			continue
		}
		material := make([]byte, len(entry.secret))
		copy(material, entry.secret)
		return material, true, nil
	}
	return nil, false, nil
}

func (s *MemoryStore) Put(ctx context.Context, pk partition.Key, key *PrivateKey, unlocker Hash) error {
	entry := memoryEntry{
		alias:      key.Public().Alias(),
		material:   key.Public().Material(),
		secretHash: key.SecretHash(),
		unlocker:   unlocker,
		secret:     key.SecretBytes(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.partitions[pk]
	if keys == nil {
		keys = make(map[Hash]memoryEntry)
		s.partitions[pk] = keys
	}
	keys[key.Public().Hash()] = entry
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, pk partition.Key, secretHash, unlocker Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.partitions[pk] {
		if entry.secretHash == secretHash && entry.unlocker == unlocker {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Lookup(ctx context.Context, pk partition.Key, publicHash Hash) (*PublicKey, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.partitions[pk][publicHash]
	if !ok {
		return nil, false, nil
	}
	return NewPublicKey(entry.alias, entry.material), true, nil
}

func (s *MemoryStore) Erase(ctx context.Context, pk partition.Key, secretHash Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	erased := false
	for publicHash, entry := range s.partitions[pk] {
		if entry.secretHash != secretHash {
			continue
		}
		secret.Zero(entry.secret)
		delete(s.partitions[pk], publicHash)
		erased = true
	}
	return erased, nil
}
