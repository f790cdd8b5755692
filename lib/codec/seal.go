// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/caisson-foundation/caisson/lib/partition"
	"github.com/caisson-foundation/caisson/lib/secret"
)

// KeySize is the size in bytes of the symmetric keys used for payload
// sealing: the store master key and every derived per-partition key.
const KeySize = 32

// sealedVersion is the version byte prepended to every sealed
// payload. It participates in the AEAD additional authenticated data,
// so tampering with it fails authentication.
const sealedVersion byte = 0x01

// sealedOverhead is the fixed byte overhead of a sealed payload:
// 1 (version) + 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305 tag).
const sealedOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoPartition is the HKDF-SHA256 info prefix for per-partition
// key derivation. Changing it invalidates every sealed payload.
var hkdfInfoPartition = []byte("caisson.partition.seal.v1")

// DerivePartitionKey derives the sealing key for one partition from
// the store master key. Every partition gets its own key, so leaking
// one partition's key exposes nothing about the others.
//
// The masterKey is borrowed (read via Bytes) and not closed. The
// returned buffer must be closed by the caller.
func DerivePartitionKey(masterKey *secret.Buffer, pk partition.Key) (*secret.Buffer, error) {
	encoded := pk.EncodeString()
	info := make([]byte, len(hkdfInfoPartition)+len(encoded))
	copy(info, hkdfInfoPartition)
	copy(info[len(hkdfInfoPartition):], encoded)

	// Nil salt per RFC 5869: the master key is already uniformly
	// random, so the extract phase with a zero key is appropriate.
	reader := hkdf.New(sha256.New, masterKey.Bytes(), nil, info)
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	return secret.NewFromBytes(derived)
}

// Seal encrypts a payload with XChaCha20-Poly1305 and returns the
// sealed form:
//
//	[version: 1 byte] [nonce: 24 bytes, random] [ciphertext+tag]
//
// The version byte and the target object address are the additional
// authenticated data. Binding to the address means a sealed payload
// lifted from one object's log entry cannot be replayed against
// another object, even inside the same partition.
//
// The key is borrowed and not closed. It must be KeySize bytes (the
// output of DerivePartitionKey).
func Seal(plaintext []byte, key *secret.Buffer, addr partition.Address) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}

	sealed := make([]byte, 1+chacha20poly1305.NonceSizeX, len(plaintext)+sealedOverhead)
	sealed[0] = sealedVersion
	copy(sealed[1:], nonce[:])

	return aead.Seal(sealed, nonce[:], plaintext, sealAAD(sealedVersion, addr)), nil
}

// Open decrypts a payload produced by Seal, verifying the version
// byte and the address binding. Any of wrong key, tampered bytes, or
// mismatched address fails authentication.
//
// The key is borrowed and not closed.
func Open(sealed []byte, key *secret.Buffer, addr partition.Address) ([]byte, error) {
	if len(sealed) < sealedOverhead {
		return nil, fmt.Errorf("sealed payload is %d bytes, minimum is %d (version + nonce + tag)",
			len(sealed), sealedOverhead)
	}

	version := sealed[0]
	if version != sealedVersion {
		return nil, fmt.Errorf("sealed payload version %d is not supported (expected %d)",
			version, sealedVersion)
	}

	nonce := sealed[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[1+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, sealAAD(version, addr))
	if err != nil {
		return nil, fmt.Errorf("payload authentication failed (wrong key, tampered data, or mismatched address): %w", err)
	}
	return plaintext, nil
}

// sealAAD builds the additional authenticated data: the version byte
// followed by the canonical address encoding.
func sealAAD(version byte, addr partition.Address) []byte {
	encoded := addr.String()
	aad := make([]byte, 1+len(encoded))
	aad[0] = version
	copy(aad[1:], encoded)
	return aad
}
