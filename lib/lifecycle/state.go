// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

// State is where a task stands in its one-way lifecycle. A task moves
// strictly forward: Created, Starting, RunningUninitialized (worker
// live, catch-up pending), RunningInitialized (catch-up delivered),
// Stopping, Stopped. There is no restart.
type State uint8

const (
	Created State = iota
	Starting
	RunningUninitialized
	RunningInitialized
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Starting:
		return "starting"
	case RunningUninitialized:
		return "running-uninitialized"
	case RunningInitialized:
		return "running-initialized"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// running reports whether the worker should keep looping.
func (s State) running() bool {
	switch s {
	case Starting, RunningUninitialized, RunningInitialized:
		return true
	default:
		return false
	}
}
