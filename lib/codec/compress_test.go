// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"strings"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	// Repetitive data compresses under both algorithms.
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50))

	for _, tag := range []Tag{TagNone, TagLZ4, TagZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			packed, err := Pack(data, tag)
			if err != nil {
				t.Fatalf("Pack failed: %v", err)
			}
			if got := Tag(packed[0]); got != tag {
				t.Errorf("packed tag = %s, want %s", got, tag)
			}
			if tag != TagNone && len(packed) >= len(data) {
				t.Errorf("packed size %d did not shrink input of %d bytes", len(packed), len(data))
			}

			unpacked, err := Unpack(packed)
			if err != nil {
				t.Fatalf("Unpack failed: %v", err)
			}
			if !bytes.Equal(unpacked, data) {
				t.Error("round trip changed the payload")
			}
		})
	}
}

func TestPackIncompressibleFallsBack(t *testing.T) {
	// Random bytes do not compress; Pack must fall back to TagNone
	// instead of growing the payload.
	data := make([]byte, 256)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("reading random data: %v", err)
	}

	for _, tag := range []Tag{TagLZ4, TagZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			packed, err := Pack(data, tag)
			if err != nil {
				t.Fatalf("Pack failed: %v", err)
			}
			if got := Tag(packed[0]); got != TagNone {
				t.Errorf("packed tag = %s, want %s fallback", got, TagNone)
			}
			if len(packed) != 1+len(data) {
				t.Errorf("fallback size = %d, want %d", len(packed), 1+len(data))
			}

			unpacked, err := Unpack(packed)
			if err != nil {
				t.Fatalf("Unpack failed: %v", err)
			}
			if !bytes.Equal(unpacked, data) {
				t.Error("round trip changed the payload")
			}
		})
	}
}

func TestPackEmptyPayload(t *testing.T) {
	for _, tag := range []Tag{TagNone, TagLZ4, TagZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			packed, err := Pack(nil, tag)
			if err != nil {
				t.Fatalf("Pack failed: %v", err)
			}
			unpacked, err := Unpack(packed)
			if err != nil {
				t.Fatalf("Unpack failed: %v", err)
			}
			if len(unpacked) != 0 {
				t.Errorf("unpacked %d bytes from an empty payload", len(unpacked))
			}
		})
	}
}

func TestPackRejectsUnknownTag(t *testing.T) {
	if _, err := Pack([]byte("x"), Tag(99)); err == nil {
		t.Error("Pack accepted an unknown tag")
	}
}

func TestUnpackErrors(t *testing.T) {
	oversized := make([]byte, 1+binary.MaxVarintLen64)
	oversized[0] = byte(TagZstd)
	binary.PutUvarint(oversized[1:], maxUnpackedSize+1)

	tests := []struct {
		name   string
		packed []byte
	}{
		{"empty", nil},
		{"unknown_tag", []byte{99, 1, 2, 3}},
		{"missing_size", []byte{byte(TagLZ4)}},
		{"size_over_cap", oversized},
		{"truncated_compressed", func() []byte {
			packed, err := Pack([]byte(strings.Repeat("abc", 100)), TagZstd)
			if err != nil {
				t.Fatalf("Pack failed: %v", err)
			}
			return packed[:len(packed)/2]
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unpack(tt.packed); err == nil {
				t.Error("Unpack succeeded on corrupt input")
			}
		})
	}
}

func TestUnpackVerifiesDeclaredSize(t *testing.T) {
	data := []byte(strings.Repeat("sized payload ", 64))
	compressed, err := compressZstd(data)
	if err != nil {
		t.Fatalf("compressZstd failed: %v", err)
	}

	// Declare one byte more than the real uncompressed size.
	packed := make([]byte, 1+binary.MaxVarintLen64+len(compressed))
	packed[0] = byte(TagZstd)
	headerLength := 1 + binary.PutUvarint(packed[1:], uint64(len(data)+1))
	copy(packed[headerLength:], compressed)
	packed = packed[:headerLength+len(compressed)]

	if _, err := Unpack(packed); err == nil {
		t.Error("Unpack accepted a payload whose declared size is wrong")
	}
}

func TestTagStringParseRoundTrip(t *testing.T) {
	for _, tag := range []Tag{TagNone, TagLZ4, TagZstd} {
		parsed, err := ParseTag(tag.String())
		if err != nil {
			t.Fatalf("ParseTag(%q) failed: %v", tag.String(), err)
		}
		if parsed != tag {
			t.Errorf("ParseTag(%q) = %v, want %v", tag.String(), parsed, tag)
		}
	}

	if _, err := ParseTag("brotli"); err == nil {
		t.Error("ParseTag accepted an unknown name")
	}
	if got := Tag(200).String(); got != "unknown(200)" {
		t.Errorf("Tag(200).String() = %q", got)
	}
}
