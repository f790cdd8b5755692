// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/caisson-foundation/caisson/lib/identityfile"
	"github.com/caisson-foundation/caisson/lib/keyring"
	"github.com/caisson-foundation/caisson/lib/secret"
)

// ReadPassphrase obtains a passphrase from stdin. An interactive
// terminal prompts on stderr with echo disabled, twice when confirm is
// set; piped stdin reads a single line without prompting. The caller
// zeroes the result with secret.Zero when done.
func ReadPassphrase(confirm bool) ([]byte, error) {
	stdinFd := int(os.Stdin.Fd())

	if !term.IsTerminal(stdinFd) {
		// Stdin is piped. Read one line without prompting.
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return nil, fmt.Errorf("passphrase is empty")
		}
		return []byte(line), nil
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	if len(first) == 0 {
		return nil, fmt.Errorf("passphrase is empty")
	}
	if !confirm {
		return first, nil
	}

	fmt.Fprint(os.Stderr, "Confirm passphrase: ")
	second, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		secret.Zero(first)
		return nil, fmt.Errorf("reading passphrase confirmation: %w", err)
	}

	match := bytes.Equal(first, second)
	secret.Zero(second)
	if !match {
		secret.Zero(first)
		return nil, fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

// LoadIdentity loads an identity file under the given alias, prompting
// for the passphrase when the file is protected. The caller closes the
// returned key.
func LoadIdentity(path, alias string) (*keyring.PrivateKey, error) {
	protected, err := identityfile.IsProtected(path)
	if err != nil {
		return nil, fmt.Errorf("inspecting identity file: %w", err)
	}

	var passphrase []byte
	if protected {
		passphrase, err = ReadPassphrase(false)
		if err != nil {
			return nil, err
		}
		defer secret.Zero(passphrase)
	}

	return identityfile.Load(path, alias, passphrase)
}
