// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import "testing"

func TestStateStrings(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Created, "created"},
		{Starting, "starting"},
		{RunningUninitialized, "running-uninitialized"},
		{RunningInitialized, "running-initialized"},
		{Stopping, "stopping"},
		{Stopped, "stopped"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStateRunning(t *testing.T) {
	running := map[State]bool{
		Created:              false,
		Starting:             true,
		RunningUninitialized: true,
		RunningInitialized:   true,
		Stopping:             false,
		Stopped:              false,
	}
	for state, want := range running {
		if got := state.running(); got != want {
			t.Errorf("%s.running() = %v, want %v", state, got, want)
		}
	}
}
