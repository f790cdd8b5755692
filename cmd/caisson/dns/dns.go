// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package dns implements the "caisson dns" command group: publishing
// and resolving the DNS trust records that bind domains to keys.
package dns

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/caisson-foundation/caisson/cmd/caisson/cli"
	"github.com/caisson-foundation/caisson/lib/authority"
	"github.com/caisson-foundation/caisson/lib/config"
	"github.com/caisson-foundation/caisson/lib/keyring"
	"github.com/caisson-foundation/caisson/lib/partition"
)

// commandTimeout bounds every network-touching CLI operation.
const commandTimeout = 30 * time.Second

// Command returns the "dns" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "dns",
		Summary: "Publish and resolve DNS trust records",
		Description: `Work with the TXT records that anchor Caisson's implicit trust:
a record under a domain names the partition and key hash the domain
vouches for. Ownership of the DNS zone is the authority.`,
		Subcommands: []*cli.Command{
			recordCommand(),
			resolveCommand(),
			addressesCommand(),
		},
	}
}

func recordCommand() *cli.Command {
	var (
		identity   string
		alias      string
		topic      string
		index      int32
		register   bool
		service    string
		configPath string
	)

	return &cli.Command{
		Name:    "record",
		Summary: "Produce the TXT record for a key",
		Description: `Compute the TXT record text that publishes a key's hash under a
domain. Publish the output at the chosen name in your zone (for
example _caisson.example.com) and resolvers that trust the zone will
trust the key.

With --register, the key is also merged into the configured key
repository (unlocking the repository with --service) so this node can
resolve records naming it.`,
		Usage: "caisson dns record --identity <path> --topic <topic> --index <n> [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("record", pflag.ContinueOnError)
			flags.StringVar(&identity, "identity", "", "identity file of the key being published (required)")
			flags.StringVar(&alias, "alias", "", "alias for the key (default: identity file name)")
			flags.StringVar(&topic, "topic", "", "partition topic holding the key (required)")
			flags.Int32Var(&index, "index", 0, "partition index within the topic")
			flags.BoolVar(&register, "register", false, "also merge the key into the configured repository")
			flags.StringVar(&service, "service", "", "service identity unlocking the repository (with --register)")
			flags.StringVar(&configPath, "config", "", "configuration file (default: CAISSON_CONFIG)")
			return flags
		},
		Examples: []cli.Example{
			{
				Description: "Produce a record for the publisher key",
				Command:     "caisson dns record --identity publisher.key --topic ledger.trust --index 0",
			},
			{
				Description: "Produce and register in the local repository",
				Command:     "caisson dns record --identity publisher.key --topic ledger.trust --register --service node.key",
			},
		},
		Run: func(args []string) error {
			return runRecord(identity, alias, topic, index, register, service, configPath)
		},
	}
}

func runRecord(identityPath, alias, topic string, index int32, register bool, servicePath, configPath string) error {
	if identityPath == "" {
		return fmt.Errorf("--identity is required")
	}
	pk, err := cli.PartitionFromFlags(topic, index)
	if err != nil {
		return err
	}

	if alias == "" {
		alias = cli.IdentityAlias(identityPath)
	}
	key, err := cli.LoadIdentity(identityPath, alias)
	if err != nil {
		return err
	}
	defer key.Close()

	record := authority.FormatTXTRecord(pk, key.Public().Hash())

	if register {
		if servicePath == "" {
			return fmt.Errorf("--register needs --service to unlock the repository")
		}
		cfg, err := cli.LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger := cli.NewCommandLogger(false).With("command", "dns/record")

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		resolver, cleanup, err := buildResolver(cfg, servicePath, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		record, err = resolver.GenerateTXTRecord(ctx, key, pk)
		if err != nil {
			return err
		}
	}

	fmt.Println(record)
	return nil
}

func resolveCommand() *cli.Command {
	var (
		strict     bool
		topic      string
		index      int32
		service    string
		txt        string
		configPath string
		verbose    bool
	)

	return &cli.Command{
		Name:    "resolve",
		Summary: "Resolve a domain's key through its trust record",
		Description: `Look up a domain's TXT trust record and resolve the key hash it
names: first through the configured key repository, then through the
bundled anchors. The result is the public key the domain vouches for.

With one argument, the record is read at the domain itself; with two,
the first argument is a name prefix (the record lives at
<prefix>.<domain>).

--strict turns a missing record or unknown hash into an error;
without it, absence exits quietly with a miss message.`,
		Usage: "caisson dns resolve [<prefix>] <domain> [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
			flags.BoolVar(&strict, "strict", false, "treat absence as an error")
			flags.StringVar(&topic, "topic", "", "restrict repository lookup to this partition topic")
			flags.Int32Var(&index, "index", 0, "partition index within the topic")
			flags.StringVar(&service, "service", "", "service identity unlocking the repository")
			flags.StringVar(&txt, "txt", "", "use this record text instead of querying DNS")
			flags.StringVar(&configPath, "config", "", "configuration file (default: CAISSON_CONFIG)")
			flags.BoolVar(&verbose, "verbose", false, "log resolution steps")
			return flags
		},
		Examples: []cli.Example{
			{
				Description: "Resolve the key example.com vouches for",
				Command:     "caisson dns resolve example.com",
			},
			{
				Description: "Resolve a prefixed record, strictly",
				Command:     "caisson dns resolve _caisson example.com --strict",
			},
		},
		Run: func(args []string) error {
			return runResolve(args, strict, topic, index, service, txt, configPath, verbose)
		},
	}
}

func runResolve(args []string, strict bool, topic string, index int32, servicePath, txt, configPath string, verbose bool) error {
	var prefix, domain string
	switch len(args) {
	case 1:
		domain = args[0]
	case 2:
		prefix, domain = args[0], args[1]
	default:
		return fmt.Errorf("expected [<prefix>] <domain>, got %d arguments", len(args))
	}

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := cli.NewCommandLogger(verbose).With("command", "dns/resolve")

	resolver, cleanup, err := buildResolver(cfg, servicePath, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if txt != "" {
		name := domain
		if prefix != "" {
			name = prefix + "." + domain
		}
		resolver.Overrides().SetText(name, txt)
	}

	query := authority.KeyQuery{
		Prefix: prefix,
		Domain: domain,
		Strict: strict,
	}
	if topic != "" {
		scope, err := cli.PartitionFromFlags(topic, index)
		if err != nil {
			return err
		}
		query.Partition = &scope
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, ok, err := resolver.DomainKey(ctx, query)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no key resolved")
		return nil
	}

	fmt.Printf("alias:       %s\n", result.Alias())
	fmt.Printf("public key:  %s\n", materialText(result.Material()))
	fmt.Printf("public hash: %s\n", result.Hash())
	return nil
}

// materialText renders key material for display. Generated keys carry
// age recipient text; bundled anchors carry raw bytes, shown base64.
func materialText(material []byte) string {
	for _, b := range material {
		if b < ' ' || b > '~' {
			return base64.StdEncoding.EncodeToString(material)
		}
	}
	return string(material)
}

func addressesCommand() *cli.Command {
	var (
		strict     bool
		configPath string
	)

	return &cli.Command{
		Name:    "addresses",
		Summary: "Resolve a domain's endpoint addresses",
		Description: `Resolve the A/AAAA records of a domain the way Caisson nodes do:
IP literals and loopback names short-circuit, ports are stripped, and
the result is sorted and deduplicated with IPv6 addresses bracketed.`,
		Usage: "caisson dns addresses <domain> [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("addresses", pflag.ContinueOnError)
			flags.BoolVar(&strict, "strict", false, "treat absence as an error")
			flags.StringVar(&configPath, "config", "", "configuration file (default: CAISSON_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			return runAddresses(args, strict, configPath)
		},
	}
}

func runAddresses(args []string, strict bool, configPath string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected <domain>, got %d arguments", len(args))
	}

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := cli.NewCommandLogger(false).With("command", "dns/addresses")

	resolver, cleanup, err := buildResolver(cfg, "", logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	addresses, err := resolver.DomainAddresses(ctx, args[0], strict)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		fmt.Println("no addresses")
		return nil
	}
	for _, address := range addresses {
		fmt.Println(address)
	}
	return nil
}

// buildResolver assembles a trust resolver from the configuration.
// With a service identity path, the configured SQLite repository backs
// hash resolution; without one, only bundled anchors and overrides do.
// The returned cleanup releases the repository and service key.
func buildResolver(cfg *config.Config, servicePath string, logger *slog.Logger) (*authority.Resolver, func(), error) {
	// Validated by LoadConfig; parse errors cannot reach here.
	timeout, _ := cfg.QueryTimeout()
	ttl, _ := cfg.CacheTTL()

	transport, err := authority.NewDNSTransport(authority.DNSConfig{
		Servers:        cfg.DNS.Servers,
		ResolvConfPath: cfg.DNS.ResolvConf,
		Timeout:        timeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building DNS transport: %w", err)
	}

	cleanup := func() {}
	var keys keyring.Store
	if servicePath != "" {
		if cfg.Keyring.Path == "" {
			return nil, nil, fmt.Errorf("keyring.path is not configured")
		}
		service, err := cli.LoadIdentity(servicePath, cli.IdentityAlias(servicePath))
		if err != nil {
			return nil, nil, err
		}
		if err := cfg.EnsureKeyringDir(); err != nil {
			service.Close()
			return nil, nil, err
		}
		store, err := keyring.OpenSQLiteStore(keyring.SQLiteConfig{
			Path:     cfg.Keyring.Path,
			Service:  service,
			PoolSize: cfg.Keyring.PoolSize,
			Logger:   logger,
		})
		if err != nil {
			service.Close()
			return nil, nil, fmt.Errorf("opening key repository: %w", err)
		}
		keys = store
		cleanup = func() {
			store.Close()
			service.Close()
		}
	}

	resolver, err := authority.New(authority.Config{
		Transport: transport,
		Cache: authority.NewCache(authority.CacheConfig{
			Capacity:         cfg.DNS.CacheEntries,
			NegativeCapacity: cfg.DNS.NegativeEntries,
			TTL:              ttl,
		}),
		Keys:            keys,
		GlobalPartition: partition.NewKey(cfg.Trust.Topic, cfg.Trust.Index),
		Logger:          logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return resolver, cleanup, nil
}

