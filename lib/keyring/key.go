// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/caisson-foundation/caisson/lib/secret"
)

// PublicKey is the shareable half of a trust anchor: opaque key
// material plus a human-facing alias. Instances are immutable once
// constructed, and the resolver hands out clones rather than its
// cached originals, so holding one across goroutines is safe.
type PublicKey struct {
	alias    string
	material []byte
	hash     Hash
}

// NewPublicKey constructs a public key from raw material. The material
// is copied; the hash is computed eagerly in the public-key domain.
func NewPublicKey(alias string, material []byte) *PublicKey {
	owned := make([]byte, len(material))
	copy(owned, material)
	return &PublicKey{
		alias:    alias,
		material: owned,
		hash:     HashPublicKey(owned),
	}
}

// Alias returns the human-facing name. Often a DNS domain when the key
// came from the implicit-authority resolver.
func (k *PublicKey) Alias() string { return k.alias }

// Hash returns the public-domain hash of the material.
func (k *PublicKey) Hash() Hash { return k.hash }

// Material returns a copy of the raw key material.
func (k *PublicKey) Material() []byte {
	copied := make([]byte, len(k.material))
	copy(copied, k.material)
	return copied
}

// WithAlias returns a clone carrying the given alias. The receiver is
// untouched: aliases are caller-local naming, and shared instances
// (resolver cache, embedded manifest) must never mutate.
func (k *PublicKey) WithAlias(alias string) *PublicKey {
	clone := NewPublicKey(alias, k.material)
	return clone
}

// Equal reports whether both keys carry identical material. Aliases do
// not participate: the same anchor under two names is one anchor.
func (k *PublicKey) Equal(other *PublicKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return bytes.Equal(k.material, other.material)
}

// PrivateKey pairs a public key with its secret half. The secret lives
// in protected memory (see lib/secret); callers that are done with the
// key call Close.
type PrivateKey struct {
	public     *PublicKey
	secretBuf  *secret.Buffer
	secretHash Hash
}

// Generate creates a fresh X25519 keypair (age format) under the given
// alias. The secret is moved into protected memory immediately.
func Generate(alias string) (*PrivateKey, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}
	return newPrivateKey(alias, []byte(identity.String()), identity.Recipient().String())
}

// ParsePrivateKey reconstructs a keypair from identity text (the
// AGE-SECRET-KEY-1... form, as stored in an identity file). The
// identityText slice is zeroed in place once copied into protected
// memory.
func ParsePrivateKey(alias string, identityText []byte) (*PrivateKey, error) {
	identity, err := age.ParseX25519Identity(string(bytes.TrimSpace(identityText)))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return newPrivateKey(alias, identityText, identity.Recipient().String())
}

func newPrivateKey(alias string, identityText []byte, recipient string) (*PrivateKey, error) {
	trimmed := bytes.TrimSpace(identityText)
	secretHash := HashSecretKey(trimmed)
	buffer, err := secret.NewFromBytes(trimmed)
	secret.Zero(identityText)
	if err != nil {
		return nil, fmt.Errorf("protecting identity: %w", err)
	}
	return &PrivateKey{
		public:     NewPublicKey(alias, []byte(recipient)),
		secretBuf:  buffer,
		secretHash: secretHash,
	}, nil
}

// Public returns the shareable half.
func (k *PrivateKey) Public() *PublicKey { return k.public }

// SecretHash returns the secret-domain hash, the index under which the
// repository files this key's sealed secret.
func (k *PrivateKey) SecretHash() Hash { return k.secretHash }

// SecretBytes returns a heap copy of the secret material for handing
// to a repository or sealer. The caller wipes it with secret.Zero when
// done.
func (k *PrivateKey) SecretBytes() []byte {
	protected := k.secretBuf.Bytes()
	copied := make([]byte, len(protected))
	copy(copied, protected)
	return copied
}

// Close releases the protected secret memory. Idempotent.
func (k *PrivateKey) Close() error {
	return k.secretBuf.Close()
}

// Seal encrypts plaintext so that any one of the recipients can open
// it. Recipient material must be age X25519 public keys (everything
// [Generate] produces qualifies; embedded manifest anchors with
// foreign material do not).
func Seal(plaintext []byte, recipients ...*PublicKey) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("sealing: at least one recipient is required")
	}
	parsed := make([]age.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		ageRecipient, err := age.ParseX25519Recipient(string(recipient.Material()))
		if err != nil {
			return nil, fmt.Errorf("sealing: recipient %q is not an X25519 key: %w", recipient.Alias(), err)
		}
		parsed = append(parsed, ageRecipient)
	}

	var sealed bytes.Buffer
	writer, err := age.Encrypt(&sealed, parsed...)
	if err != nil {
		return nil, fmt.Errorf("sealing: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealing: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealing: %w", err)
	}
	return sealed.Bytes(), nil
}

// Unseal decrypts ciphertext produced by [Seal] using the private
// key. The key is borrowed, not closed.
func Unseal(ciphertext []byte, key *PrivateKey) ([]byte, error) {
	identity, err := age.ParseX25519Identity(key.secretBuf.String())
	if err != nil {
		return nil, fmt.Errorf("unsealing: parsing identity: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("unsealing: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("unsealing: %w", err)
	}
	return plaintext, nil
}
