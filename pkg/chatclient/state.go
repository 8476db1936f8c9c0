// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chatclient consumes the gateway's streaming chat endpoint and
// tracks conversation state for interactive front ends.
package chatclient

import (
	"fmt"
	"sync"
)

// SessionState describes where a chat exchange is in its lifecycle.
type SessionState int

const (
	// StateIdle means no exchange is in flight.
	StateIdle SessionState = iota
	// StateSending means the request has been issued but no byte has
	// arrived yet.
	StateSending
	// StateStreaming means at least one chunk has been received.
	StateStreaming
	// StateCompleted means the stream ended normally.
	StateCompleted
	// StateAborted means the caller cancelled the exchange.
	StateAborted
	// StateFailed means the exchange ended with an error.
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the state ends an exchange.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

// StateTracker enforces the exchange lifecycle: idle -> sending ->
// streaming -> exactly one terminal state -> idle. Once a terminal
// state is recorded, further terminal transitions are ignored so a
// late upstream error can never overwrite an abort.
type StateTracker struct {
	mu    sync.Mutex
	state SessionState
}

// NewStateTracker returns a tracker in the idle state.
func NewStateTracker() *StateTracker {
	return &StateTracker{state: StateIdle}
}

// State returns the current state.
func (t *StateTracker) State() SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Begin moves idle to sending. It returns false when an exchange is
// already in flight.
func (t *StateTracker) Begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateIdle {
		return false
	}
	t.state = StateSending
	return true
}

// StartStreaming records the first received chunk.
func (t *StateTracker) StartStreaming() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateSending {
		t.state = StateStreaming
	}
}

// Complete records normal end of stream.
func (t *StateTracker) Complete() bool { return t.finish(StateCompleted) }

// Abort records a caller-initiated cancellation.
func (t *StateTracker) Abort() bool { return t.finish(StateAborted) }

// Fail records an error ending the exchange.
func (t *StateTracker) Fail() bool { return t.finish(StateFailed) }

func (t *StateTracker) finish(terminal SessionState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateSending && t.state != StateStreaming {
		return false
	}
	t.state = terminal
	return true
}

// Reset returns the tracker to idle after a terminal state.
func (t *StateTracker) Reset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Terminal() {
		return false
	}
	t.state = StateIdle
	return true
}
