// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Caisson is the CLI for working with a Caisson deployment. It
// provides subcommands for identity key management (key), DNS trust
// record publication and resolution (dns), and partition address
// encoding (address).
package main
