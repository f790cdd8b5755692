// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyring implements key material handling for the object
// store: typed public/private keys, domain-separated hashing, and the
// secure key repository that files secrets per partition.
//
// The package is organized in layers:
//
//   - Hashing: BLAKE3 in keyed mode with two ASCII domain keys, one
//     for public key material and one for secret material. The same
//     bytes hashed in different domains produce unrelated digests, so
//     a published public hash can never be confused with the index of
//     a stored secret. Hashes render as lowercase hex.
//
//   - Keys: PublicKey pairs opaque material with a human-facing alias
//     and is immutable once constructed (WithAlias clones). PrivateKey
//     adds the secret half, held in mlocked memory via lib/secret and
//     released with Close. Generation and parsing produce age X25519
//     identities, which also power the Seal/Unseal helpers.
//
//   - Repository: the Store interface files secrets per partition,
//     indexed by the secret hash and guarded by an unlocker, the
//     public hash of the key allowed to read the entry back. Lookup
//     resolves a stored key's own public hash to its public half,
//     which is how a hash published in DNS becomes a usable trust
//     anchor. Erase removes entries outright, independent of any
//     commit-log history, for compliance deletion.
//
// Two Store implementations ship: MemoryStore (plain heap copies, for
// tests and single-process use) and SQLiteStore (WAL-mode SQLite via
// lib/sqlitepool, every secret sealed to the repository's service key
// before it reaches disk).
package keyring
