// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds sensitive bytes (age identities, partition data
// keys, CLI passphrases) in memory the Go runtime cannot move and the
// kernel will not swap or dump.
//
// A [Buffer] is backed by an anonymous mmap region outside the Go heap:
// mlock pins it in RAM, madvise(MADV_DONTDUMP) keeps it out of core
// dumps, and Close zeroes it before unmapping. The garbage collector
// never sees the region, so no stray copy of the secret survives
// relocation or collection.
package secret

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer is protected memory holding one secret. Not copyable after
// creation; release with Close. Reads after Close panic: a read of
// released key material is a bug worth crashing on, not an error to
// bubble up.
type Buffer struct {
	mu     sync.Mutex
	region []byte
	closed bool
}

// New allocates a zero-filled protected buffer of the given size.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(region); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(region, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(region)
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP): %w", err)
	}

	return &Buffer{region: region}, nil
}

// NewFromBytes copies source into a protected buffer and zeroes the
// source in place, so the caller's slice stops holding the secret.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: cannot create buffer from empty source")
	}
	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.region, source)
	Zero(source)
	return buffer, nil
}

// ReadPath reads a secret from a file, trimming surrounding whitespace
// (identity files conventionally end with a newline). The intermediate
// heap copy is zeroed before returning.
func ReadPath(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: reading %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret: %s is empty", path)
	}
	buffer, err := NewFromBytes(trimmed)
	// trimmed aliases data; zero the untrimmed remainder too.
	Zero(data)
	return buffer, err
}

// Bytes returns the secret. The slice points into the mmap region; do
// not retain it past the buffer's lifetime. Panics after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.region
}

// String returns the secret as a string. The string is an unavoidable
// heap copy (Go strings are immutable); use only at API boundaries
// that demand strings, such as age identity parsing. Panics after
// Close.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return string(b.region)
}

// Len returns the secret's size in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.region)
}

// Close zeroes, unlocks, and unmaps the region. Idempotent. Unmap
// failures are reported but the buffer is unusable either way.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	Zero(b.region)

	var firstError error
	if err := unix.Munlock(b.region); err != nil {
		firstError = fmt.Errorf("secret: munlock: %w", err)
	}
	if err := unix.Munmap(b.region); err != nil && firstError == nil {
		firstError = fmt.Errorf("secret: munmap: %w", err)
	}
	b.region = nil
	return firstError
}

// Zero overwrites a byte slice with zeroes. For heap slices that held
// secret material briefly and cannot use a Buffer.
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
