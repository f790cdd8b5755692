// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the payload pipeline for commit-log messages and
// stored records. Three independent layers:
//
//   - CBOR: Core Deterministic Encoding (RFC 8949 §4.2) via a single
//     shared encoder configuration, so every package encodes
//     identically and the same logical object always produces the
//     same bytes. Decoding ignores unknown fields for forward
//     compatibility.
//
//   - Compression: a packed form carrying its own algorithm tag
//     (none, lz4, zstd) and declared uncompressed size, so a payload
//     is self-describing wherever it travels. Incompressible data
//     falls back to the untagged-size none form automatically.
//
//   - Sealing: XChaCha20-Poly1305 over the packed bytes, with keys
//     derived per partition from a store master key (HKDF-SHA256) and
//     the target object address bound in as authenticated data.
//
// Writers apply the layers inside out, readers reverse them:
//
//	sealed := codec.Seal(packed, key, addr)   // packed := codec.Pack(codec.Marshal(obj))
//	packed, _ := codec.Open(sealed, key, addr)
//
// Compression precedes sealing because ciphertext does not compress.
// The sealing layer is what the data layer treats as its opaque
// decryption capability: everything above it only sees plaintext or
// absence.
package codec
