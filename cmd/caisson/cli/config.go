// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"

	"github.com/caisson-foundation/caisson/lib/config"
)

// LoadConfig resolves the effective configuration for a command: the
// --config flag path when given, otherwise CAISSON_CONFIG when set,
// otherwise built-in defaults. The result is validated.
func LoadConfig(flagPath string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case flagPath != "":
		cfg, err = config.LoadFile(flagPath)
	case os.Getenv("CAISSON_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
