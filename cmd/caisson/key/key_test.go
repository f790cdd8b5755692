// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package key

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/caisson-foundation/caisson/lib/identityfile"
	"github.com/caisson-foundation/caisson/lib/keyring"
)

func TestRunGenerateWritesLoadableIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.key")

	if err := runGenerate("service", path, false); err != nil {
		t.Fatalf("runGenerate failed: %v", err)
	}

	key, err := identityfile.Load(path, "service", nil)
	if err != nil {
		t.Fatalf("generated identity does not load: %v", err)
	}
	defer key.Close()

	if key.Public().Alias() != "service" {
		t.Errorf("loaded alias: got %q, want %q", key.Public().Alias(), "service")
	}
}

func TestRunGenerateValidatesFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.key")

	err := runGenerate("", path, false)
	if err == nil || !strings.Contains(err.Error(), "--alias is required") {
		t.Errorf("missing alias: got %v", err)
	}

	err = runGenerate("x", "", false)
	if err == nil || !strings.Contains(err.Error(), "--out is required") {
		t.Errorf("missing out: got %v", err)
	}
}

func TestRunGenerateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.key")

	if err := runGenerate("service", path, false); err != nil {
		t.Fatalf("first runGenerate failed: %v", err)
	}
	if err := runGenerate("service", path, false); err == nil {
		t.Error("second runGenerate over an existing file: got nil error")
	}
}

func TestRunHashAcceptsPublicKey(t *testing.T) {
	key, err := keyring.Generate("probe")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer key.Close()

	if err := runHash([]string{string(key.Public().Material())}, ""); err != nil {
		t.Errorf("runHash with a valid public key: %v", err)
	}
}

func TestRunHashInputValidation(t *testing.T) {
	if err := runHash(nil, ""); err == nil {
		t.Error("runHash with no input: got nil error")
	}
	if err := runHash([]string{"age1x"}, "some.key"); err == nil {
		t.Error("runHash with both inputs: got nil error")
	}
	if err := runHash([]string{"not-an-age-key"}, ""); err == nil {
		t.Error("runHash with garbage key: got nil error")
	}
}
