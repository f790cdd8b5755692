// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package partition defines the addressing scheme of the Caisson object
// store. A partition is one independently ordered, append-only segment of
// the commit log, identified by a (topic, index) pair. An [Address] names
// one logical object globally by combining its partition with a 128-bit
// object id, regardless of which node currently materializes the object.
//
// Addresses have a canonical textual form: URL-safe base64 (no padding)
// of the fixed binary layout
//
//	[uint16 topic-length][topic bytes][int32 partition-index][int64 id-high][int64 id-low]
//
// with all integers big-endian. The layout is a protocol constant:
// changing it breaks every published address and trust record.
//
// One asymmetry is deliberate and load-bearing: an address whose id is
// all zeroes can be encoded, but decoding it yields the absent id (a
// partition-only address, [Address.HasID] reports false). Producers that
// need "no object" semantics rely on this round-trip collapse.
package partition

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Key identifies one partition of the commit log. Keys are immutable
// value types: equality, hashing, and ordering use (Topic, Index).
type Key struct {
	// Topic is the logical stream name, e.g. "orders". At most 65535
	// bytes (the binary layout stores its length as uint16).
	Topic string

	// Index selects one partition of the topic.
	Index int32
}

// NewKey constructs a partition key. Panics if topic exceeds the 65535
// byte limit of the binary layout; topics are operator-chosen short
// names, so an oversized topic is a caller bug, not input to validate.
func NewKey(topic string, index int32) Key {
	if len(topic) > math.MaxUint16 {
		panic(fmt.Sprintf("partition: topic is %d bytes, limit is %d", len(topic), math.MaxUint16))
	}
	return Key{Topic: topic, Index: index}
}

// String returns the human-readable form "topic-index". This is the
// form used in logs and CLI output; it is not reversible when the topic
// itself contains a dash. Use [Key.EncodeString] for the canonical form.
func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.Topic, k.Index)
}

// IsZero reports whether the key is the zero value (empty topic,
// index 0).
func (k Key) IsZero() bool {
	return k == Key{}
}

// Compare returns -1, 0, or +1 ordering keys by topic, then index.
func (k Key) Compare(other Key) int {
	if c := strings.Compare(k.Topic, other.Topic); c != 0 {
		return c
	}
	switch {
	case k.Index < other.Index:
		return -1
	case k.Index > other.Index:
		return 1
	}
	return 0
}

// EncodeString returns the canonical base64url encoding of the key's
// binary form: [uint16 topic-length][topic][int32 index]. This is the
// partition serialization embedded in published DNS trust records.
func (k Key) EncodeString() string {
	return base64.RawURLEncoding.EncodeToString(k.appendBinary(nil))
}

// DecodeKeyString parses the canonical base64url form produced by
// [Key.EncodeString]. Malformed base64, a truncated payload, or
// trailing bytes are decoding errors, never a partial value.
func DecodeKeyString(encoded string) (Key, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Key{}, fmt.Errorf("parsing partition key: %w", err)
	}
	key, rest, err := consumeKey(raw)
	if err != nil {
		return Key{}, fmt.Errorf("parsing partition key: %w", err)
	}
	if len(rest) != 0 {
		return Key{}, fmt.Errorf("parsing partition key: %d trailing bytes", len(rest))
	}
	return key, nil
}

// appendBinary appends the key's binary layout to dst and returns the
// extended slice. Topic length overflow is checked in NewKey; a Key
// constructed literally with an oversized topic panics here.
func (k Key) appendBinary(dst []byte) []byte {
	if len(k.Topic) > math.MaxUint16 {
		panic(fmt.Sprintf("partition: topic is %d bytes, limit is %d", len(k.Topic), math.MaxUint16))
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(k.Topic)))
	dst = append(dst, k.Topic...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(k.Index))
	return dst
}

// consumeKey reads one binary key from the front of raw and returns the
// unread remainder.
func consumeKey(raw []byte) (Key, []byte, error) {
	if len(raw) < 2 {
		return Key{}, nil, fmt.Errorf("%d bytes, need at least 2 for the topic length", len(raw))
	}
	topicLength := int(binary.BigEndian.Uint16(raw))
	rest := raw[2:]
	if len(rest) < topicLength+4 {
		return Key{}, nil, fmt.Errorf("topic length %d exceeds remaining %d bytes", topicLength, len(rest))
	}
	topic := string(rest[:topicLength])
	index := int32(binary.BigEndian.Uint32(rest[topicLength:]))
	return Key{Topic: topic, Index: index}, rest[topicLength+4:], nil
}

// ID is the 128-bit identifier of one logical object. The zero ID means
// "absent": an address carrying it names a partition, not an object.
// IDs order byte-wise (big-endian numeric order over the full 128 bits).
type ID uuid.UUID

// NewID returns a fresh random ID. Panics only if the system entropy
// source fails.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical 36-character UUID text form.
func ParseID(text string) (ID, error) {
	parsed, err := uuid.Parse(text)
	if err != nil {
		return ID{}, fmt.Errorf("parsing object id: %w", err)
	}
	return ID(parsed), nil
}

// IsZero reports whether the ID is absent.
func (id ID) IsZero() bool {
	return id == ID{}
}

// String returns the canonical UUID text form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Compare returns -1, 0, or +1 ordering IDs byte-wise. The absent
// (zero) ID orders before every present ID.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalText implements encoding.TextMarshaler using the canonical
// UUID text form, so IDs embed as strings in CBOR, YAML, and JSON.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Address is the global identity of one logical object: its partition
// plus its 128-bit id. Addresses are immutable value types; equality
// and hashing combine all three fields.
type Address struct {
	Key Key
	ID  ID
}

// NewAddress constructs an address from a partition key and an object
// id. Construction from raw (topic, index, id) components composes as
// NewAddress(NewKey(topic, index), id).
func NewAddress(key Key, id ID) Address {
	return Address{Key: key, ID: id}
}

// HasID reports whether the address names an object (true) or only a
// partition (false, absent id).
func (a Address) HasID() bool {
	return !a.ID.IsZero()
}

// String returns the canonical base64url encoding of the address's
// binary layout. The result round-trips through [ParseAddress], with
// the documented exception that an all-zero id decodes as absent.
func (a Address) String() string {
	buf := make([]byte, 0, 2+len(a.Key.Topic)+4+16)
	buf = a.Key.appendBinary(buf)
	buf = append(buf, a.ID[:]...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Display returns the human-readable form "topic:index:id", or
// "topic:index" when the id is absent. For logs and CLI output only;
// it does not round-trip.
func (a Address) Display() string {
	if !a.HasID() {
		return fmt.Sprintf("%s:%d", a.Key.Topic, a.Key.Index)
	}
	return fmt.Sprintf("%s:%d:%s", a.Key.Topic, a.Key.Index, a.ID)
}

// ParseAddress parses the canonical base64url form produced by
// [Address.String]. Malformed base64, a truncated payload, and trailing
// bytes are all decoding errors; the function never returns a partial
// value alongside a nil error.
func ParseAddress(encoded string) (Address, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Address{}, fmt.Errorf("parsing object address: %w", err)
	}
	key, rest, err := consumeKey(raw)
	if err != nil {
		return Address{}, fmt.Errorf("parsing object address: %w", err)
	}
	if len(rest) != 16 {
		return Address{}, fmt.Errorf("parsing object address: %d id bytes, want 16", len(rest))
	}
	var id ID
	copy(id[:], rest)
	// An all-zero id is already the absent ID, so there is no separate
	// state to restore. This is the encode/decode asymmetry documented
	// on the package: zero encodes, absent decodes.
	return Address{Key: key, ID: id}, nil
}

// Compare returns -1, 0, or +1 ordering addresses by topic, then
// partition index, then id.
func (a Address) Compare(other Address) int {
	if c := a.Key.Compare(other.Key); c != 0 {
		return c
	}
	return a.ID.Compare(other.ID)
}

// MarshalText implements encoding.TextMarshaler using the canonical
// form, so addresses embed as strings in CBOR, JSON, and YAML.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
