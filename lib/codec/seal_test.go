// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/caisson-foundation/caisson/lib/partition"
	"github.com/caisson-foundation/caisson/lib/secret"
)

func newMasterKey(t *testing.T) *secret.Buffer {
	t.Helper()
	material := make([]byte, KeySize)
	if _, err := rand.Read(material); err != nil {
		t.Fatalf("reading random key material: %v", err)
	}
	master, err := secret.NewFromBytes(material)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	t.Cleanup(func() { master.Close() })
	return master
}

func derivedKey(t *testing.T, master *secret.Buffer, pk partition.Key) *secret.Buffer {
	t.Helper()
	key, err := DerivePartitionKey(master, pk)
	if err != nil {
		t.Fatalf("DerivePartitionKey failed: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	master := newMasterKey(t)
	pk := partition.NewKey("orders", 3)
	key := derivedKey(t, master, pk)
	addr := partition.NewAddress(pk, partition.NewID())
	plaintext := []byte(strings.Repeat("sealed payload contents ", 20))

	sealed, err := Seal(plaintext, key, addr)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if len(sealed) != len(plaintext)+sealedOverhead {
		t.Errorf("sealed length = %d, want %d", len(sealed), len(plaintext)+sealedOverhead)
	}
	if bytes.Contains(sealed, plaintext[:16]) {
		t.Error("sealed output leaks plaintext")
	}

	opened, err := Open(sealed, key, addr)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Error("round trip changed the payload")
	}
}

func TestSealFreshNonces(t *testing.T) {
	master := newMasterKey(t)
	pk := partition.NewKey("orders", 0)
	key := derivedKey(t, master, pk)
	addr := partition.NewAddress(pk, partition.NewID())

	first, err := Seal([]byte("same input"), key, addr)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	second, err := Seal([]byte("same input"), key, addr)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("two seals of the same payload produced identical bytes; nonce reuse")
	}
}

func TestOpenRejectsWrongAddress(t *testing.T) {
	master := newMasterKey(t)
	pk := partition.NewKey("orders", 0)
	key := derivedKey(t, master, pk)
	addr := partition.NewAddress(pk, partition.NewID())
	other := partition.NewAddress(pk, partition.NewID())

	sealed, err := Seal([]byte("bound to one object"), key, addr)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := Open(sealed, key, other); err == nil {
		t.Error("Open succeeded with a different target address")
	}
}

func TestOpenRejectsWrongPartitionKey(t *testing.T) {
	master := newMasterKey(t)
	home := partition.NewKey("orders", 0)
	elsewhere := partition.NewKey("orders", 1)
	addr := partition.NewAddress(home, partition.NewID())

	sealed, err := Seal([]byte("partition-scoped"), derivedKey(t, master, home), addr)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := Open(sealed, derivedKey(t, master, elsewhere), addr); err == nil {
		t.Error("Open succeeded with another partition's derived key")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	master := newMasterKey(t)
	pk := partition.NewKey("orders", 0)
	key := derivedKey(t, master, pk)
	addr := partition.NewAddress(pk, partition.NewID())

	sealed, err := Seal([]byte("authenticated payload"), key, addr)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	t.Run("version_byte", func(t *testing.T) {
		tampered := bytes.Clone(sealed)
		tampered[0] = 0x02
		if _, err := Open(tampered, key, addr); err == nil {
			t.Error("Open accepted an unknown version byte")
		}
	})

	t.Run("ciphertext_bit", func(t *testing.T) {
		tampered := bytes.Clone(sealed)
		tampered[len(tampered)-1] ^= 0x01
		if _, err := Open(tampered, key, addr); err == nil {
			t.Error("Open accepted tampered ciphertext")
		}
	})

	t.Run("truncated", func(t *testing.T) {
		if _, err := Open(sealed[:sealedOverhead-1], key, addr); err == nil {
			t.Error("Open accepted a truncated payload")
		}
	})
}

func TestDerivePartitionKeysDistinct(t *testing.T) {
	master := newMasterKey(t)
	first := derivedKey(t, master, partition.NewKey("orders", 0))
	second := derivedKey(t, master, partition.NewKey("orders", 1))
	third := derivedKey(t, master, partition.NewKey("invoices", 0))

	if bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("adjacent partition indexes derived the same key")
	}
	if bytes.Equal(first.Bytes(), third.Bytes()) {
		t.Error("different topics derived the same key")
	}
	if len(first.Bytes()) != KeySize {
		t.Errorf("derived key is %d bytes, want %d", len(first.Bytes()), KeySize)
	}
}
