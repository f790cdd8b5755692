// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caisson-foundation/caisson/lib/partition"
)

// PartitionFromFlags builds a partition key from --topic/--index flag
// values, validating the range up front so flag mistakes surface as
// errors rather than panics.
func PartitionFromFlags(topic string, index int32) (partition.Key, error) {
	if topic == "" {
		return partition.Key{}, fmt.Errorf("--topic is required")
	}
	if index < 0 || index > 65535 {
		return partition.Key{}, fmt.Errorf("--index must be between 0 and 65535, got %d", index)
	}
	return partition.NewKey(topic, index), nil
}

// IdentityAlias derives a default key alias from an identity file
// path: the base name without its extension.
func IdentityAlias(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
