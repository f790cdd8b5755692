// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"github.com/google/uuid"

	"github.com/caisson-foundation/caisson/lib/partition"
)

// Message is one commit-log record addressed to a single object.
// Integer CBOR keys keep the header small on the wire; the payload is
// the packed (and possibly sealed) object bytes, opaque at this layer.
//
// The header classifies the record: no payload is a tombstone deleting
// the target, a payload with a zero PreviousVersion is the object's
// first write, and a payload with a prior version is an update to it.
type Message struct {
	// TargetID names the object this record is about.
	TargetID partition.ID `cbor:"1,keyasint"`

	// PreviousVersion is the version the writer observed before this
	// write. Zero on first writes and tombstones that never saw one.
	PreviousVersion uuid.UUID `cbor:"2,keyasint"`

	// Payload is the packed object bytes. Empty means tombstone.
	Payload []byte `cbor:"3,keyasint,omitempty"`
}

// Tombstone reports whether the message deletes its target.
func (m Message) Tombstone() bool {
	return len(m.Payload) == 0
}

// Address returns the full object address of the target within pk.
func (m Message) Address(pk partition.Key) partition.Address {
	return partition.NewAddress(pk, m.TargetID)
}
