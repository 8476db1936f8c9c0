// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/chatmate-ai/chatmate/services/gateway/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// StreamWriter defines the contract for relaying text deltas to an HTTP
// response.
//
// # Description
//
// The relay wire format is deliberately bare: each upstream delta is written
// verbatim to the response body and flushed, with no framing. The only
// structured element is the trailing error sentinel. This keeps browser
// consumption to a plain body reader with a text decoder.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the upstream callback
// and the handler's cleanup path may touch the writer from different
// goroutines.
//
// # Limitations
//
//   - Must be used with an http.Flusher-compatible ResponseWriter.
//
// # Assumptions
//
//   - Streaming headers are applied by the writer itself on the first
//     write, so failures before that point can still respond with JSON
//     and their own Content-Type.
type StreamWriter interface {
	// WriteChunk writes one text delta and flushes. Empty chunks are
	// dropped without touching the connection. Returns the transport
	// error, if any; once a write fails the writer refuses further writes.
	WriteChunk(content string) error

	// WriteSentinel appends the in-band stream error marker as a single
	// write and seals the writer. Any later write returns an error.
	WriteSentinel() error

	// Started reports whether at least one byte has been written. Once
	// true, the HTTP status line is on the wire and can no longer change.
	Started() bool

	// ChunkCount returns the number of non-empty chunks written.
	ChunkCount() int
}

// =============================================================================
// Struct Definition
// =============================================================================

// streamWriter implements StreamWriter over an http.ResponseWriter.
//
// # Fields
//
//   - writer: Underlying http.ResponseWriter
//   - flusher: http.Flusher interface for immediate send
//   - started: True after the first byte reaches the wire
//   - sealed: True after the sentinel or a transport failure
//   - chunks: Count of non-empty chunks written
//   - mu: Mutex for thread-safe writes
//
// # Limitations
//
//   - Cannot be reused across requests.
type streamWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	started bool
	sealed  bool
	chunks  int
	mu      sync.Mutex
}

// =============================================================================
// Constructor
// =============================================================================

// NewStreamWriter creates a StreamWriter for the given ResponseWriter.
//
// Returns an error when the ResponseWriter does not support flushing, which
// means chunked streaming cannot work on this connection.
func NewStreamWriter(w http.ResponseWriter) (StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &streamWriter{
		writer:  w,
		flusher: flusher,
	}, nil
}

// =============================================================================
// Methods
// =============================================================================

func (w *streamWriter) WriteChunk(content string) error {
	if content == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sealed {
		return fmt.Errorf("stream writer is sealed")
	}
	if !w.started {
		SetStreamHeaders(w.writer)
	}
	if _, err := fmt.Fprint(w.writer, content); err != nil {
		w.sealed = true
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	w.started = true
	w.chunks++
	w.flusher.Flush()
	return nil
}

func (w *streamWriter) WriteSentinel() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sealed {
		return fmt.Errorf("stream writer is sealed")
	}
	w.sealed = true
	if !w.started {
		SetStreamHeaders(w.writer)
	}
	if _, err := fmt.Fprint(w.writer, datatypes.StreamErrorSentinel); err != nil {
		return fmt.Errorf("failed to write sentinel: %w", err)
	}
	w.started = true
	w.flusher.Flush()
	return nil
}

func (w *streamWriter) Started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *streamWriter) ChunkCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chunks
}

// SetStreamHeaders configures the response headers for raw text streaming.
//
// The writer calls this on its first write, once it is certain at least one
// byte will be relayed. X-Accel-Buffering disables proxy buffering in nginx
// so chunks reach the client immediately.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
}

var _ StreamWriter = (*streamWriter)(nil)
