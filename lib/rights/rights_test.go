// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package rights

import (
	"testing"

	"github.com/caisson-foundation/caisson/lib/keyring"
)

func generateKey(t *testing.T, alias string) *keyring.PrivateKey {
	t.Helper()
	key, err := keyring.Generate(alias)
	if err != nil {
		t.Fatalf("Generate(%q) failed: %v", alias, err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func TestFindWriteKey(t *testing.T) {
	readOnly := generateKey(t, "read-only")
	writer := generateKey(t, "writer")
	identity := &Identity{
		Alias: "worker",
		Read:  []*keyring.PrivateKey{readOnly},
		Write: []*keyring.PrivateKey{writer},
	}

	found, ok := identity.FindWriteKey(writer.Public().Hash())
	if !ok {
		t.Fatal("FindWriteKey missed a held write key")
	}
	if found != writer {
		t.Error("FindWriteKey returned a different key")
	}

	// Read rights do not satisfy a write-key search.
	if _, ok := identity.FindWriteKey(readOnly.Public().Hash()); ok {
		t.Error("FindWriteKey matched a read-only key")
	}

	if _, ok := identity.FindWriteKey(keyring.HashPublicKey([]byte("unknown"))); ok {
		t.Error("FindWriteKey matched an unheld hash")
	}
}

func TestFindWriteKeyNilIdentity(t *testing.T) {
	var identity *Identity
	if _, ok := identity.FindWriteKey(keyring.HashPublicKey([]byte("x"))); ok {
		t.Error("nil identity reported a held key")
	}
}

func TestKeysDeduplicates(t *testing.T) {
	reader := generateKey(t, "reader")
	writer := generateKey(t, "writer")
	both := generateKey(t, "both")
	identity := &Identity{
		Read:  []*keyring.PrivateKey{reader, both},
		Write: []*keyring.PrivateKey{both, writer},
	}

	keys := identity.Keys()
	if len(keys) != 3 {
		t.Fatalf("Keys returned %d keys, want 3", len(keys))
	}
	// Reads first, then the writes not already seen.
	want := []*keyring.PrivateKey{reader, both, writer}
	for i, key := range keys {
		if key != want[i] {
			t.Errorf("Keys[%d] = %s, want %s", i, key.Public().Alias(), want[i].Public().Alias())
		}
	}
}

func TestKeysEmpty(t *testing.T) {
	if keys := (&Identity{}).Keys(); len(keys) != 0 {
		t.Errorf("empty identity returned %d keys", len(keys))
	}
	var identity *Identity
	if keys := identity.Keys(); keys != nil {
		t.Error("nil identity returned a non-nil key slice")
	}
}
