// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"slices"
	"testing"
)

func TestOverridesCanonicalizeDomains(t *testing.T) {
	overrides := NewOverrides()
	overrides.SetText("  PAY.Example.COM  ", "payload")

	for _, query := range []string{"pay.example.com", "pay.example.com.", "PAY.EXAMPLE.COM"} {
		text, ok := overrides.lookupText(canonicalFQDN(query))
		if !ok || text != "payload" {
			t.Errorf("lookupText(%q) = %q, %v, want %q, true", query, text, ok, "payload")
		}
	}
}

func TestOverridesClear(t *testing.T) {
	overrides := NewOverrides()
	overrides.SetText("a.example.com", "text")
	overrides.SetAddresses("a.example.com", "10.0.0.1")

	overrides.ClearText("a.example.com")
	if _, ok := overrides.lookupText("a.example.com."); ok {
		t.Error("text override survived ClearText")
	}
	if _, ok := overrides.lookupAddresses("a.example.com."); !ok {
		t.Error("ClearText removed the address override too")
	}

	overrides.ClearAddresses("a.example.com")
	if _, ok := overrides.lookupAddresses("a.example.com."); ok {
		t.Error("address override survived ClearAddresses")
	}
}

func TestOverridesCopyAddresses(t *testing.T) {
	overrides := NewOverrides()
	input := []string{"10.0.0.1", "10.0.0.2"}
	overrides.SetAddresses("a.example.com", input...)
	input[0] = "changed"

	got, ok := overrides.lookupAddresses("a.example.com.")
	if !ok {
		t.Fatal("override missing")
	}
	if want := []string{"10.0.0.1", "10.0.0.2"}; !slices.Equal(got, want) {
		t.Fatalf("stored addresses = %v, want %v", got, want)
	}

	got[0] = "mutated"
	again, _ := overrides.lookupAddresses("a.example.com.")
	if again[0] != "10.0.0.1" {
		t.Error("mutating a lookup result corrupted the stored override")
	}
}

func TestCanonicalFQDN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com."},
		{"example.com.", "example.com."},
		{"  MIXED.Case.ORG ", "mixed.case.org."},
		{"localhost", "localhost."},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := canonicalFQDN(tt.in); got != tt.want {
			t.Errorf("canonicalFQDN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
