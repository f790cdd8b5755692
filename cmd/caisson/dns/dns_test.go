// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package dns

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caisson-foundation/caisson/lib/authority"
	"github.com/caisson-foundation/caisson/lib/identityfile"
	"github.com/caisson-foundation/caisson/lib/keyring"
	"github.com/caisson-foundation/caisson/lib/partition"
)

func writeIdentity(t *testing.T, alias string) (string, *keyring.PrivateKey) {
	t.Helper()
	key, err := keyring.Generate(alias)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	t.Cleanup(func() { key.Close() })

	path := filepath.Join(t.TempDir(), alias+".key")
	if err := identityfile.Save(path, key, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path, key
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	orig := os.Stdout
	read, write, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = write

	runErr := fn()

	write.Close()
	os.Stdout = orig
	output, err := io.ReadAll(read)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	return string(output), runErr
}

func TestRunRecordPrintsParseableRecord(t *testing.T) {
	path, key := writeIdentity(t, "publisher")

	output, err := captureStdout(t, func() error {
		return runRecord(path, "publisher", "ledger.trust", 2, false, "", "")
	})
	if err != nil {
		t.Fatalf("runRecord failed: %v", err)
	}

	record := strings.TrimSpace(output)
	pk, hash, err := authority.ParseTXTRecord(record)
	if err != nil {
		t.Fatalf("printed record does not parse: %v", err)
	}
	if want := partition.NewKey("ledger.trust", 2); pk != want {
		t.Errorf("record partition: got %s, want %s", pk, want)
	}
	if hash != key.Public().Hash() {
		t.Errorf("record hash: got %s, want %s", hash, key.Public().Hash())
	}
}

func TestRunRecordValidation(t *testing.T) {
	path, _ := writeIdentity(t, "publisher")

	err := runRecord("", "", "ledger.trust", 0, false, "", "")
	if err == nil || !strings.Contains(err.Error(), "--identity is required") {
		t.Errorf("missing identity: got %v", err)
	}

	err = runRecord(path, "", "", 0, false, "", "")
	if err == nil || !strings.Contains(err.Error(), "--topic is required") {
		t.Errorf("missing topic: got %v", err)
	}

	err = runRecord(path, "", "ledger.trust", 70000, false, "", "")
	if err == nil || !strings.Contains(err.Error(), "--index must be between") {
		t.Errorf("index out of range: got %v", err)
	}

	err = runRecord(path, "", "ledger.trust", 0, true, "", "")
	if err == nil || !strings.Contains(err.Error(), "--register needs --service") {
		t.Errorf("register without service: got %v", err)
	}
}

func TestRunResolveArgValidation(t *testing.T) {
	if err := runResolve(nil, false, "", 0, "", "", "", false); err == nil {
		t.Error("no args: got nil error")
	}
	if err := runResolve([]string{"a", "b", "c"}, false, "", 0, "", "", "", false); err == nil {
		t.Error("three args: got nil error")
	}
}

func TestRunAddressesArgValidation(t *testing.T) {
	if err := runAddresses(nil, false, ""); err == nil {
		t.Error("no args: got nil error")
	}
}

