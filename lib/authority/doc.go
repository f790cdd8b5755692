// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package authority resolves trust from DNS. Domain ownership is the
// root of authority: whoever controls a domain's records controls
// which public key speaks for that domain, so possession of the
// matching private key proves the right to act for it. No certificate
// chain and no registration step, just a TXT record.
//
// The package is organized in layers, each usable independently:
//
//   - Transport: raw DNS over TCP (miekg/dns) against the system
//     resolvers from resolv.conf or an explicit server list. TXT and
//     A/AAAA queries only. NXDOMAIN and empty answers are definitive
//     absence; network trouble is transient and reported as an error.
//
//   - Cache: bounded TTL caches (hashicorp expirable LRU), one for
//     positive results and a smaller one for definitive absence.
//     Transient failures are never cached, so a flaky network heals
//     on the next call.
//
//   - Overrides: a runtime-mutable map consulted before the cache and
//     the network. Tests pin records with it; deployments use it to
//     pre-seed trust for air-gapped domains.
//
//   - Bundled anchors: a small set of well-known public keys compiled
//     into the binary from keys/manifest.yaml, the resolution floor
//     available before any store exists.
//
//   - Resolver: the lookup API. DomainText fetches a TXT payload,
//     DomainAddresses resolves host addresses, and DomainKey chains
//     the two worlds: fetch the hash a domain published, then find
//     the key that hashes to it among the caller's override, the key
//     store, the bundled anchors, and the caller's held write rights.
//
// Every lookup runs in one of two modes. Relaxed treats absence as a
// quiet miss (false, nil error) and logs at debug. Strict turns the
// same absence into an error naming the domain and, for key lookups,
// the unresolvable hash. Callers probing optional records use
// relaxed; callers about to trust a key use strict.
//
// Published records come in two forms. The full form produced by
// GenerateTXTRecord is "partition:hash", a base64url partition key, a
// colon, and the hex BLAKE3 hash of the public key, which also tells
// resolvers which partition of the key store holds the key. A bare
// hex hash is accepted too for records written by hand.
package authority
