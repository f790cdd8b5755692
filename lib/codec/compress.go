// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies the compression algorithm of a packed payload. The
// tag is the first byte of every packed blob. These values are
// protocol constants: changing them breaks payload compatibility.
type Tag uint8

const (
	// TagNone marks an uncompressed payload. Chosen automatically
	// when compression would not shrink the data.
	TagNone Tag = 0

	// TagLZ4 marks LZ4 block compression. Fast default for mixed or
	// unknown payload content.
	TagLZ4 Tag = 1

	// TagZstd marks zstd compression at the default level. Better
	// ratios for the CBOR/text payloads the commit log usually
	// carries.
	TagZstd Tag = 2
)

// String returns the human-readable name of a tag.
func (tag Tag) String() string {
	switch tag {
	case TagNone:
		return "none"
	case TagLZ4:
		return "lz4"
	case TagZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseTag parses a tag from its string form. Used by configuration.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "none":
		return TagNone, nil
	case "lz4":
		return TagLZ4, nil
	case "zstd":
		return TagZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// maxUnpackedSize bounds the declared uncompressed size of a packed
// payload. The size is read from the blob itself, so without a cap a
// corrupt or hostile payload could demand an arbitrary allocation.
const maxUnpackedSize = 1 << 30

// Pack compresses data with the requested algorithm and prepends the
// self-describing header. Packed layout:
//
//	[tag: 1 byte] [uncompressed size: uvarint] [compressed bytes]
//
// TagNone omits the size field (the payload length is the size).
// When the data does not shrink under the requested algorithm, Pack
// silently falls back to TagNone, so the output is never larger than
// the input plus the header.
func Pack(data []byte, tag Tag) ([]byte, error) {
	var compressed []byte
	var err error

	switch tag {
	case TagNone:
		return packNone(data), nil
	case TagLZ4:
		compressed, err = compressLZ4(data)
	case TagZstd:
		compressed, err = compressZstd(data)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", uint8(tag))
	}
	if err == errIncompressible {
		return packNone(data), nil
	}
	if err != nil {
		return nil, err
	}

	header := make([]byte, 1+binary.MaxVarintLen64)
	header[0] = byte(tag)
	headerLength := 1 + binary.PutUvarint(header[1:], uint64(len(data)))

	packed := make([]byte, headerLength+len(compressed))
	copy(packed, header[:headerLength])
	copy(packed[headerLength:], compressed)
	return packed, nil
}

func packNone(data []byte) []byte {
	packed := make([]byte, 1+len(data))
	packed[0] = byte(TagNone)
	copy(packed[1:], data)
	return packed
}

// Unpack reverses Pack. The declared uncompressed size is verified
// against the actual decompressed length; a mismatch is corruption,
// not a recoverable condition.
func Unpack(packed []byte) ([]byte, error) {
	if len(packed) == 0 {
		return nil, fmt.Errorf("packed payload is empty")
	}
	tag := Tag(packed[0])
	body := packed[1:]

	if tag == TagNone {
		data := make([]byte, len(body))
		copy(data, body)
		return data, nil
	}

	size, read := binary.Uvarint(body)
	if read <= 0 {
		return nil, fmt.Errorf("packed payload has a malformed size header")
	}
	if size > maxUnpackedSize {
		return nil, fmt.Errorf("packed payload declares %d uncompressed bytes, cap is %d", size, maxUnpackedSize)
	}
	compressed := body[read:]

	switch tag {
	case TagLZ4:
		return decompressLZ4(compressed, int(size))
	case TagZstd:
		return decompressZstd(compressed, int(size))
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", uint8(tag))
	}
}

// LZ4: block mode.

func compressLZ4(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// CompressBlock returns 0 when it determines the data is
	// incompressible. Also reject output that is not actually
	// smaller than the input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

// Zstd: default level, shared coder instances. zstd.Encoder and
// zstd.Decoder are safe for concurrent use.

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, 0, uncompressedSize)
	result, err := zstdDecoder.DecodeAll(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}

// errIncompressible makes Pack fall back to TagNone. Never escapes
// this package.
var errIncompressible = fmt.Errorf("data is incompressible")
