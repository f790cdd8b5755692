// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package rights models what a caller is allowed to touch: the key
// rights an identity currently holds. Read rights decrypt, write
// rights sign and publish. The task engine seeds both sets into a
// partition's key store before processing, and the authority resolver
// falls back to the write set when a published hash matches a key the
// caller already holds.
package rights

import (
	"github.com/caisson-foundation/caisson/lib/keyring"
)

// Identity is one caller's alias plus held key rights. The zero value
// is a valid identity with no rights.
type Identity struct {
	// Alias is the human-facing name carried into scopes and logs.
	Alias string

	// Read holds the keys this identity may decrypt with.
	Read []*keyring.PrivateKey

	// Write holds the keys this identity may publish under.
	Write []*keyring.PrivateKey
}

// FindWriteKey returns the held write key whose public hash matches,
// if any.
func (id *Identity) FindWriteKey(publicHash keyring.Hash) (*keyring.PrivateKey, bool) {
	if id == nil {
		return nil, false
	}
	for _, key := range id.Write {
		if key.Public().Hash() == publicHash {
			return key, true
		}
	}
	return nil, false
}

// Keys returns the identity's read and write keys with duplicates
// removed (a key granted in both sets appears once). Order is reads
// first, then writes, each in held order.
func (id *Identity) Keys() []*keyring.PrivateKey {
	if id == nil {
		return nil
	}
	seen := make(map[keyring.Hash]struct{}, len(id.Read)+len(id.Write))
	keys := make([]*keyring.PrivateKey, 0, len(id.Read)+len(id.Write))
	for _, set := range [][]*keyring.PrivateKey{id.Read, id.Write} {
		for _, key := range set {
			hash := key.Public().Hash()
			if _, duplicate := seen[hash]; duplicate {
				continue
			}
			seen[hash] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}
