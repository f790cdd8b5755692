// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package identityfile reads and writes private key identity files. It
// wraps filippo.io/age for the two operations Caisson needs on disk:
// store an identity in the clear with tight permissions, or sealed to
// a passphrase so the file alone is useless.
//
// A protected file is a standard age encryption to an scrypt
// recipient, recognizable by the age header. Load detects the form
// automatically and only requires the passphrase for protected files.
//
// Identity text passes through heap memory briefly at the age API
// boundary; durable copies live in protected memory (lib/secret) via
// keyring.PrivateKey.
package identityfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"

	"github.com/caisson-foundation/caisson/lib/keyring"
	"github.com/caisson-foundation/caisson/lib/secret"
)

// protectedHeader opens every age-encrypted file (binary form).
const protectedHeader = "age-encryption.org/v1"

// maxIdentitySize bounds how much of an identity file Load will read.
// Identity text is under 200 bytes; anything near the limit is not an
// identity file.
const maxIdentitySize = 1 << 16

// Save writes key's identity text to path with owner-only permissions.
// A non-empty passphrase seals the text to an scrypt recipient first,
// making the file unreadable without it. The passphrase is borrowed,
// not zeroed.
func Save(path string, key *keyring.PrivateKey, passphrase []byte) error {
	identityText := key.SecretBytes()
	defer secret.Zero(identityText)

	if len(passphrase) == 0 {
		line := make([]byte, 0, len(identityText)+1)
		line = append(line, identityText...)
		line = append(line, '\n')
		defer secret.Zero(line)
		return writeFileExclusive(path, line)
	}

	recipient, err := age.NewScryptRecipient(string(passphrase))
	if err != nil {
		return fmt.Errorf("deriving passphrase recipient: %w", err)
	}

	var sealed bytes.Buffer
	writer, err := age.Encrypt(&sealed, recipient)
	if err != nil {
		return fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(identityText); err != nil {
		return fmt.Errorf("sealing identity: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing seal: %w", err)
	}

	return writeFileExclusive(path, sealed.Bytes())
}

// Load reads an identity file written by [Save] and reconstructs the
// keypair under the given alias. Protected files need the passphrase;
// plaintext files ignore it. The passphrase is borrowed, not zeroed.
func Load(path, alias string, passphrase []byte) (*keyring.PrivateKey, error) {
	data, err := readBounded(path)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(data, []byte(protectedHeader)) {
		return keyring.ParsePrivateKey(alias, data)
	}

	if len(passphrase) == 0 {
		secret.Zero(data)
		return nil, fmt.Errorf("identity file %s is passphrase protected", path)
	}

	identity, err := age.NewScryptIdentity(string(passphrase))
	if err != nil {
		secret.Zero(data)
		return nil, fmt.Errorf("deriving passphrase identity: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		secret.Zero(data)
		return nil, fmt.Errorf("unsealing %s: %w", path, err)
	}
	identityText, err := io.ReadAll(io.LimitReader(reader, maxIdentitySize))
	if err != nil {
		secret.Zero(data)
		return nil, fmt.Errorf("reading unsealed identity: %w", err)
	}
	secret.Zero(data)

	// ParsePrivateKey zeroes identityText once it is copied into
	// protected memory.
	return keyring.ParsePrivateKey(alias, identityText)
}

// IsProtected reports whether the file at path is passphrase sealed.
func IsProtected(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	header := make([]byte, len(protectedHeader))
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	return bytes.Equal(header[:n], []byte(protectedHeader)), nil
}

// readBounded reads the whole file, rejecting anything too large to be
// an identity file.
func readBounded(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxIdentitySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) > maxIdentitySize {
		return nil, fmt.Errorf("%s is too large to be an identity file", path)
	}
	return data, nil
}

// writeFileExclusive writes data to path with 0600 permissions,
// refusing to overwrite an existing file. Losing a key to an
// accidental overwrite is unrecoverable, so overwriting needs an
// explicit remove first.
func writeFileExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing identity file: %w", err)
	}
	return nil
}
