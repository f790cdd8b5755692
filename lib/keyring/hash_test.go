// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestHashDomainsAreDistinct(t *testing.T) {
	// The same material hashed in the public and secret domains must
	// produce unrelated digests.
	material := []byte("identical input for both domains")

	publicHash := HashPublicKey(material)
	secretHash := HashSecretKey(material)

	if publicHash == secretHash {
		t.Error("public and secret domains produced the same hash for identical input")
	}
}

func TestHashDeterministic(t *testing.T) {
	material := []byte("deterministic input")

	if HashPublicKey(material) != HashPublicKey(material) {
		t.Error("HashPublicKey produced different results for the same input")
	}
	if HashSecretKey(material) != HashSecretKey(material) {
		t.Error("HashSecretKey produced different results for the same input")
	}
}

func TestHashDomainKeysReadable(t *testing.T) {
	// The domain keys are protocol constants spelled as ASCII names.
	// A copy-paste error here would silently fork the trust layer.
	if publicKeyDomain == secretKeyDomain {
		t.Fatal("public and secret domain keys are identical")
	}

	prefix := "caisson.key."
	if got := string(publicKeyDomain[:len(prefix)]); got != prefix {
		t.Errorf("public domain key prefix = %q, want %q", got, prefix)
	}
	if got := string(secretKeyDomain[:len(prefix)]); got != prefix {
		t.Errorf("secret domain key prefix = %q, want %q", got, prefix)
	}
}

func TestHashEmptyInput(t *testing.T) {
	// Keyed hashing of empty material is still a valid, non-zero hash,
	// and nil versus empty slice must not matter.
	fromNil := HashPublicKey(nil)
	fromEmpty := HashPublicKey([]byte{})

	if fromNil.IsZero() {
		t.Error("HashPublicKey(nil) returned the zero hash")
	}
	if fromNil != fromEmpty {
		t.Error("HashPublicKey(nil) != HashPublicKey([]byte{})")
	}
}

func TestHashStringParseRoundTrip(t *testing.T) {
	original := HashPublicKey([]byte("round trip material"))
	text := original.String()

	if len(text) != 64 {
		t.Fatalf("String() length = %d, want 64", len(text))
	}
	if _, err := hex.DecodeString(text); err != nil {
		t.Fatalf("String() produced invalid hex: %v", err)
	}

	parsed, err := ParseHash(text)
	if err != nil {
		t.Fatalf("ParseHash failed: %v", err)
	}
	if parsed != original {
		t.Errorf("round trip mismatch: got %s, want %s", parsed, original)
	}
}

func TestParseHashErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too_short", "abcdef"},
		{"too_long", strings.Repeat("ab", 33)},
		{"invalid_hex", strings.Repeat("zz", 32)},
		{"odd_length", strings.Repeat("a", 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseHash(tt.input); err == nil {
				t.Errorf("ParseHash(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestHashIsZero(t *testing.T) {
	var zero Hash
	if !zero.IsZero() {
		t.Error("zero-value Hash reports IsZero() == false")
	}
	if HashPublicKey([]byte("x")).IsZero() {
		t.Error("computed hash reports IsZero() == true")
	}
}
