// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"

	"github.com/caisson-foundation/caisson/lib/partition"
)

func TestMarshalDeterministic(t *testing.T) {
	// Core Deterministic Encoding sorts map keys, so two maps with
	// the same contents encode identically regardless of insertion
	// order.
	first := map[string]int{}
	for _, key := range []string{"alpha", "beta", "gamma", "delta"} {
		first[key] = len(key)
	}
	second := map[string]int{}
	for _, key := range []string{"delta", "gamma", "beta", "alpha"} {
		second[key] = len(key)
	}

	encodedFirst, err := Marshal(first)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	encodedSecond, err := Marshal(second)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(encodedFirst, encodedSecond) {
		t.Error("same logical map produced different bytes")
	}
}

func TestRoundTripStruct(t *testing.T) {
	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
		Tags  []string
	}
	original := record{Name: "orders", Count: 42, Tags: []string{"a", "b"}}

	encoded, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded record
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Name != original.Name || decoded.Count != original.Count {
		t.Errorf("round trip: got %+v, want %+v", decoded, original)
	}
	if len(decoded.Tags) != 2 || decoded.Tags[0] != "a" || decoded.Tags[1] != "b" {
		t.Errorf("round trip tags: got %v", decoded.Tags)
	}
}

func TestAddressEncodesAsText(t *testing.T) {
	// Addresses must travel as their canonical string, the same form
	// ParseAddress accepts, not as a structural map of Key and ID.
	addr := partition.NewAddress(partition.NewKey("orders", 5), partition.NewID())

	encoded, err := Marshal(addr)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var asAny any
	if err := Unmarshal(encoded, &asAny); err != nil {
		t.Fatalf("Unmarshal into any failed: %v", err)
	}
	text, ok := asAny.(string)
	if !ok {
		t.Fatalf("address encoded as %T, want string", asAny)
	}
	if text != addr.String() {
		t.Errorf("encoded text = %q, want %q", text, addr.String())
	}

	var decoded partition.Address
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal into Address failed: %v", err)
	}
	if decoded != addr {
		t.Errorf("round trip: got %v, want %v", decoded, addr)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	wide := struct {
		Kept    string `json:"kept"`
		Dropped string `json:"dropped"`
	}{Kept: "value", Dropped: "future field"}

	encoded, err := Marshal(wide)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var narrow struct {
		Kept string `json:"kept"`
	}
	if err := Unmarshal(encoded, &narrow); err != nil {
		t.Fatalf("Unmarshal with unknown field failed: %v", err)
	}
	if narrow.Kept != "value" {
		t.Errorf("Kept = %q, want %q", narrow.Kept, "value")
	}
}

func TestUnmarshalAnyMapType(t *testing.T) {
	encoded, err := Marshal(map[string]any{"inner": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded any
	if err := Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded as %T, want map[string]any", decoded)
	}
	if _, ok := outer["inner"].(map[string]any); !ok {
		t.Fatalf("inner decoded as %T, want map[string]any", outer["inner"])
	}
}
