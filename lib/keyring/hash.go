// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest of key material. Key hashes are the
// currency of the trust layer: DNS TXT records publish them, the key
// repository indexes by them, and authorization compares them.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation keeps a public-key hash from ever colliding with a
// secret-key hash of the same bytes.
type domainKey [32]byte

// Domain separation keys. Protocol constants: changing them
// invalidates every published hash in that domain. The bytes are the
// ASCII domain name, zero-padded to 32, readable in hex dumps; BLAKE3
// keyed mode treats the key as opaque either way.
var (
	publicKeyDomain = domainKey{
		'c', 'a', 'i', 's', 's', 'o', 'n', '.', 'k', 'e', 'y', '.',
		'p', 'u', 'b', 'l', 'i', 'c', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	secretKeyDomain = domainKey{
		'c', 'a', 'i', 's', 's', 'o', 'n', '.', 'k', 'e', 'y', '.',
		's', 'e', 'c', 'r', 'e', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// HashPublicKey computes the public-domain hash of public key
// material. This is the hash published in DNS trust records.
func HashPublicKey(material []byte) Hash {
	return keyedHash(publicKeyDomain, material)
}

// HashSecretKey computes the secret-domain hash of secret key
// material. Repository entries index their sealed secrets by it.
func HashSecretKey(material []byte) Hash {
	return keyedHash(secretKeyDomain, material)
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the canonical lowercase hex form used in TXT records,
// logs, and CLI output.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash parses the 64-character hex form back into a Hash.
func ParseHash(text string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return hash, fmt.Errorf("parsing key hash: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("key hash is %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}

// keyedHash computes the BLAKE3 keyed hash under the given domain key.
// NewKeyed fails only for a wrong key length, which domainKey rules
// out.
func keyedHash(key domainKey, data []byte) Hash {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("keyring: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
