// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Caisson packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap channel
// operations in a timeout safety valve (select with time.After) so a
// broken engine deadlocks a test run for seconds, not forever. These
// helpers are the only sanctioned real-clock waits in the test suite;
// everything timing-sensitive runs on clock.Fake.
//
// All helpers call t.Fatalf on failure: a test that cannot obtain its
// preconditions cannot continue.
package testutil

import (
	"fmt"
	"time"
)

// failer is the subset of *testing.T the helpers need. Declared as an
// interface so the helpers also serve *testing.B and fakes.
type failer interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test with the given message.
//
//	event := testutil.RequireReceive(t, events, 5*time.Second, "waiting for OnCreate")
func RequireReceive[T any](t failer, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without a value: %s", message(msgAndArgs))
		}
		return value
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message(msgAndArgs))
	}
	panic("unreachable")
}

// RequireSend sends value on ch within timeout, or fails the test.
func RequireSend[T any](t failer, ch chan<- T, value T, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case ch <- value:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message(msgAndArgs))
	}
}

// RequireClosed waits for ch to close (or deliver) within timeout, or
// fails the test. For readiness and completion channels that signal by
// closing.
func RequireClosed(t failer, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v waiting for close: %s", timeout, message(msgAndArgs))
	}
}

// message renders the optional trailing arguments: a bare string, a
// format string with arguments, or anything printable.
func message(msgAndArgs []any) string {
	switch len(msgAndArgs) {
	case 0:
		return "(no message)"
	case 1:
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	default:
		if format, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(format, msgAndArgs[1:]...)
		}
		return fmt.Sprintf("%v", msgAndArgs)
	}
}
