// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete Caisson CLI command tree.
package commands

import (
	"fmt"

	addresscmd "github.com/caisson-foundation/caisson/cmd/caisson/address"
	"github.com/caisson-foundation/caisson/cmd/caisson/cli"
	dnscmd "github.com/caisson-foundation/caisson/cmd/caisson/dns"
	keycmd "github.com/caisson-foundation/caisson/cmd/caisson/key"
	"github.com/caisson-foundation/caisson/lib/version"
)

// Root builds and returns the complete Caisson CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "caisson",
		Description: `Caisson: partitioned, cryptographically secured object store tooling.

Generate and inspect identity keys, publish and resolve DNS trust
records, and work with partition addresses.`,
		Subcommands: []*cli.Command{
			keycmd.Command(),
			dnscmd.Command(),
			addresscmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("caisson %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Generate a publisher identity protected by a passphrase",
				Command:     "caisson key generate --alias publisher --out publisher.key --protect",
			},
			{
				Description: "Print the DNS trust record for an identity",
				Command:     "caisson dns record --identity publisher.key --topic ledger.trust --index 2",
			},
			{
				Description: "Resolve the signing key published for a domain",
				Command:     "caisson dns resolve example.com",
			},
			{
				Description: "Decode a partition address from a log line",
				Command:     "caisson address decode BgAAb3JkZXJzAAAAAw",
			},
		},
	}
}
