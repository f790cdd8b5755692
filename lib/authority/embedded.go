// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	_ "embed"
	"encoding/base64"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/caisson-foundation/caisson/lib/keyring"
)

// The bundled trust anchors ship inside the binary. They are loaded
// eagerly at package init and indexed by their computed public hash,
// so resolution never depends on DNS, a key store, or the filesystem
// being reachable.

//go:embed keys/manifest.yaml
var embeddedManifest []byte

// embeddedKeys indexes the bundled anchors by public hash. Built once
// at init; never mutated afterward.
var embeddedKeys = loadEmbeddedKeys(embeddedManifest)

type manifestEntry struct {
	Alias    string `yaml:"alias"`
	Material string `yaml:"material"`
}

type manifest struct {
	Keys []manifestEntry `yaml:"keys"`
}

// loadEmbeddedKeys parses the manifest and computes each anchor's
// hash. The manifest is a build artifact: any defect in it is a
// broken build, so failures panic rather than returning an error
// nobody can handle.
func loadEmbeddedKeys(raw []byte) map[keyring.Hash]*keyring.PublicKey {
	var parsed manifest
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		panic("authority: embedded key manifest is malformed: " + err.Error())
	}

	keys := make(map[keyring.Hash]*keyring.PublicKey, len(parsed.Keys))
	for _, entry := range parsed.Keys {
		if entry.Alias == "" {
			panic("authority: embedded key manifest entry has no alias")
		}
		material, err := base64.StdEncoding.DecodeString(entry.Material)
		if err != nil {
			panic(fmt.Sprintf("authority: embedded key %q has malformed material: %v", entry.Alias, err))
		}
		if len(material) == 0 {
			panic(fmt.Sprintf("authority: embedded key %q has empty material", entry.Alias))
		}
		key := keyring.NewPublicKey(entry.Alias, material)
		if _, duplicate := keys[key.Hash()]; duplicate {
			panic(fmt.Sprintf("authority: embedded key %q duplicates another anchor", entry.Alias))
		}
		keys[key.Hash()] = key
	}
	return keys
}

// EmbeddedKey returns the bundled anchor with the given public hash,
// if the binary ships one.
func EmbeddedKey(hash keyring.Hash) (*keyring.PublicKey, bool) {
	key, ok := embeddedKeys[hash]
	return key, ok
}

// EmbeddedKeys returns every bundled anchor. The slice is fresh; the
// keys themselves are the shared immutable instances.
func EmbeddedKeys() []*keyring.PublicKey {
	keys := make([]*keyring.PublicKey, 0, len(embeddedKeys))
	for _, key := range embeddedKeys {
		keys = append(keys, key)
	}
	return keys
}
