// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"testing"

	"github.com/google/uuid"

	"github.com/caisson-foundation/caisson/lib/codec"
	"github.com/caisson-foundation/caisson/lib/partition"
)

func TestMessageTombstone(t *testing.T) {
	if !(Message{TargetID: partition.NewID()}).Tombstone() {
		t.Error("message without payload is not a tombstone")
	}
	if !(Message{Payload: []byte{}}).Tombstone() {
		t.Error("message with empty payload is not a tombstone")
	}
	if (Message{Payload: []byte{1}}).Tombstone() {
		t.Error("message with payload reported as tombstone")
	}
}

func TestMessageAddress(t *testing.T) {
	pk := partition.NewKey("orders", 4)
	msg := Message{TargetID: partition.NewID()}

	addr := msg.Address(pk)
	if addr.Key != pk || addr.ID != msg.TargetID {
		t.Errorf("Address = %+v, want key %v id %s", addr, pk, msg.TargetID)
	}
}

func TestMessageWireRoundTrip(t *testing.T) {
	original := Message{
		TargetID:        partition.NewID(),
		PreviousVersion: uuid.New(),
		Payload:         []byte("packed object bytes"),
	}

	encoded, err := codec.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Message
	if err := codec.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.TargetID != original.TargetID {
		t.Errorf("TargetID = %s, want %s", decoded.TargetID, original.TargetID)
	}
	if decoded.PreviousVersion != original.PreviousVersion {
		t.Errorf("PreviousVersion = %s, want %s", decoded.PreviousVersion, original.PreviousVersion)
	}
	if string(decoded.Payload) != string(original.Payload) {
		t.Errorf("Payload = %q, want %q", decoded.Payload, original.Payload)
	}
}

func TestMessageWireTombstone(t *testing.T) {
	original := Message{TargetID: partition.NewID()}

	encoded, err := codec.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Message
	if err := codec.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Tombstone() {
		t.Error("tombstone lost its meaning over the wire")
	}
	if decoded.PreviousVersion != uuid.Nil {
		t.Errorf("PreviousVersion = %s, want zero", decoded.PreviousVersion)
	}
}
