// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package address implements the "caisson address" command group:
// encoding and decoding partition and object addresses.
package address

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/caisson-foundation/caisson/cmd/caisson/cli"
	"github.com/caisson-foundation/caisson/lib/partition"
)

// Command returns the "address" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "address",
		Summary: "Encode and decode partition addresses",
		Description: `Convert between the canonical string form of partition keys and
object addresses and their components. The canonical form travels in
trust records, logs, and configuration; these commands make it
readable.`,
		Subcommands: []*cli.Command{
			encodeCommand(),
			decodeCommand(),
			idCommand(),
		},
	}
}

func encodeCommand() *cli.Command {
	var (
		topic string
		index int32
		id    string
	)

	return &cli.Command{
		Name:    "encode",
		Summary: "Encode a partition key or object address",
		Description: `Print the canonical string form of a partition key, or of a full
object address when --id is given.`,
		Usage: "caisson address encode --topic <topic> --index <n> [--id <uuid>]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("encode", pflag.ContinueOnError)
			flags.StringVar(&topic, "topic", "", "partition topic (required)")
			flags.Int32Var(&index, "index", 0, "partition index within the topic")
			flags.StringVar(&id, "id", "", "object id for a full address")
			return flags
		},
		Examples: []cli.Example{
			{
				Description: "Encode a partition key",
				Command:     "caisson address encode --topic orders --index 3",
			},
			{
				Description: "Encode a full object address",
				Command:     "caisson address encode --topic orders --index 3 --id 018f4a7e-1df2-7cde-9b1a-0242ac120002",
			},
		},
		Run: func(args []string) error {
			return runEncode(topic, index, id)
		},
	}
}

func runEncode(topic string, index int32, id string) error {
	pk, err := cli.PartitionFromFlags(topic, index)
	if err != nil {
		return err
	}

	if id == "" {
		fmt.Println(pk.EncodeString())
		return nil
	}

	objectID, err := partition.ParseID(id)
	if err != nil {
		return fmt.Errorf("parsing --id: %w", err)
	}
	fmt.Println(partition.NewAddress(pk, objectID).String())
	return nil
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:    "decode",
		Summary: "Decode a canonical address string",
		Description: `Decode the canonical string form of an object address or partition
key and print its components.`,
		Usage: "caisson address decode <encoded>",
		Examples: []cli.Example{
			{
				Description: "Decode an address",
				Command:     "caisson address decode BgAAb3JkZXJzAAAAAwGPSn4d8nzemxoCQqwSAAI",
			},
		},
		Run: runDecode,
	}
}

func runDecode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected <encoded>, got %d arguments", len(args))
	}
	encoded := args[0]

	if addr, err := partition.ParseAddress(encoded); err == nil {
		fmt.Printf("topic: %s\n", addr.Key.Topic)
		fmt.Printf("index: %d\n", addr.Key.Index)
		fmt.Printf("id:    %s\n", addr.ID)
		return nil
	}

	pk, err := partition.DecodeKeyString(encoded)
	if err != nil {
		return fmt.Errorf("%q is neither an object address nor a partition key", encoded)
	}
	fmt.Printf("topic: %s\n", pk.Topic)
	fmt.Printf("index: %d\n", pk.Index)
	return nil
}

func idCommand() *cli.Command {
	return &cli.Command{
		Name:    "id",
		Summary: "Mint a fresh object id",
		Description: `Print a fresh random object id, suitable for addressing a new
object within a partition.`,
		Usage: "caisson address id",
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("id takes no arguments")
			}
			fmt.Println(partition.NewID())
			return nil
		},
	}
}
