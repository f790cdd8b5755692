// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package key implements the "caisson key" command group: keypair
// generation and hash inspection for trust keys.
package key

import (
	"fmt"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/caisson-foundation/caisson/cmd/caisson/cli"
	"github.com/caisson-foundation/caisson/lib/identityfile"
	"github.com/caisson-foundation/caisson/lib/keyring"
	"github.com/caisson-foundation/caisson/lib/secret"
)

// Command returns the "key" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "key",
		Summary: "Generate and inspect trust keys",
		Description: `Manage the X25519 keypairs that anchor Caisson's trust chains.

A keypair's public hash is what DNS trust records carry; the secret
half stays in an identity file on disk, optionally sealed to a
passphrase.`,
		Subcommands: []*cli.Command{
			generateCommand(),
			hashCommand(),
		},
	}
}

func generateCommand() *cli.Command {
	var (
		alias   string
		out     string
		protect bool
	)

	return &cli.Command{
		Name:    "generate",
		Summary: "Generate a new X25519 keypair",
		Description: `Generate a fresh X25519 keypair (age format) and write its identity
file. With --protect, the file is sealed to a passphrase prompted on
stderr; without it, the file holds the identity text in the clear with
owner-only permissions.

The command refuses to overwrite an existing identity file.`,
		Usage: "caisson key generate --alias <name> --out <path> [--protect]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("generate", pflag.ContinueOnError)
			flags.StringVar(&alias, "alias", "", "human-facing key alias (required)")
			flags.StringVar(&out, "out", "", "identity file to write (required)")
			flags.BoolVar(&protect, "protect", false, "seal the identity file to a passphrase")
			return flags
		},
		Examples: []cli.Example{
			{
				Description: "Generate an unprotected service key",
				Command:     "caisson key generate --alias ingest --out ingest.key",
			},
			{
				Description: "Generate a passphrase-sealed key",
				Command:     "caisson key generate --alias publisher --out publisher.key --protect",
			},
		},
		Run: func(args []string) error {
			return runGenerate(alias, out, protect)
		},
	}
}

func runGenerate(alias, out string, protect bool) error {
	if alias == "" {
		return fmt.Errorf("--alias is required")
	}
	if out == "" {
		return fmt.Errorf("--out is required")
	}

	key, err := keyring.Generate(alias)
	if err != nil {
		return err
	}
	defer key.Close()

	var passphrase []byte
	if protect {
		passphrase, err = cli.ReadPassphrase(true)
		if err != nil {
			return err
		}
		defer secret.Zero(passphrase)
	}

	if err := identityfile.Save(out, key, passphrase); err != nil {
		return err
	}

	printKey(key, out, protect)
	return nil
}

func printKey(key *keyring.PrivateKey, path string, protected bool) {
	pub := key.Public()
	fmt.Printf("alias:       %s\n", pub.Alias())
	fmt.Printf("public key:  %s\n", string(pub.Material()))
	fmt.Printf("public hash: %s\n", pub.Hash())
	fmt.Printf("secret hash: %s\n", key.SecretHash())
	if path != "" {
		form := "plaintext"
		if protected {
			form = "passphrase protected"
		}
		fmt.Printf("identity:    %s (%s)\n", path, form)
	}
}

func hashCommand() *cli.Command {
	var identity string

	return &cli.Command{
		Name:    "hash",
		Summary: "Print the hashes a key is known by",
		Description: `Print the public-domain hash of a key, the value DNS trust records and
the key repository index it under.

With a positional age public key (age1...), prints its public hash.
With --identity, loads the identity file (prompting for the passphrase
when protected) and prints both the public and secret hashes.`,
		Usage: "caisson key hash [<age-public-key>] [--identity <path>]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("hash", pflag.ContinueOnError)
			flags.StringVar(&identity, "identity", "", "identity file to inspect")
			return flags
		},
		Examples: []cli.Example{
			{
				Description: "Hash a public key",
				Command:     "caisson key hash age1ql3z7hjy54pw3hyww5ayyfg7zqgvc7w3j2elw8zmrj2kg5sfn9aqmcac8p",
			},
			{
				Description: "Hash the key in an identity file",
				Command:     "caisson key hash --identity ingest.key",
			},
		},
		Run: func(args []string) error {
			return runHash(args, identity)
		},
	}
}

func runHash(args []string, identity string) error {
	switch {
	case identity != "" && len(args) > 0:
		return fmt.Errorf("pass either a public key or --identity, not both")

	case identity != "":
		key, err := cli.LoadIdentity(identity, cli.IdentityAlias(identity))
		if err != nil {
			return err
		}
		defer key.Close()
		printKey(key, "", false)
		return nil

	case len(args) == 1:
		if _, err := age.ParseX25519Recipient(args[0]); err != nil {
			return fmt.Errorf("invalid age public key: %w", err)
		}
		pub := keyring.NewPublicKey("", []byte(args[0]))
		fmt.Printf("public hash: %s\n", pub.Hash())
		return nil

	case len(args) == 0:
		return fmt.Errorf("pass a public key or --identity")

	default:
		return fmt.Errorf("expected one public key, got %d arguments", len(args))
	}
}
