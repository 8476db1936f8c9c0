// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatmate-ai/chatmate/services/gateway/datatypes"
)

// noFlushWriter wraps a ResponseWriter while hiding http.Flusher.
type noFlushWriter struct {
	http.ResponseWriter
}

func TestNewStreamWriter_RequiresFlusher(t *testing.T) {
	w := httptest.NewRecorder()

	_, err := NewStreamWriter(noFlushWriter{w})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.Flusher")
}

func TestStreamWriter_WriteChunk(t *testing.T) {
	w := httptest.NewRecorder()
	writer, err := NewStreamWriter(w)
	require.NoError(t, err)

	assert.False(t, writer.Started())

	require.NoError(t, writer.WriteChunk("Hel"))
	require.NoError(t, writer.WriteChunk("lo"))

	assert.True(t, writer.Started())
	assert.Equal(t, 2, writer.ChunkCount())
	assert.Equal(t, "Hello", w.Body.String())
	assert.True(t, w.Flushed)
}

func TestStreamWriter_EmptyChunkIsDropped(t *testing.T) {
	w := httptest.NewRecorder()
	writer, err := NewStreamWriter(w)
	require.NoError(t, err)

	require.NoError(t, writer.WriteChunk(""))

	assert.False(t, writer.Started(), "empty chunk must not commit the response")
	assert.Zero(t, writer.ChunkCount())
	assert.Empty(t, w.Body.String())
}

func TestStreamWriter_SentinelSealsWriter(t *testing.T) {
	w := httptest.NewRecorder()
	writer, err := NewStreamWriter(w)
	require.NoError(t, err)

	require.NoError(t, writer.WriteChunk("partial"))
	require.NoError(t, writer.WriteSentinel())

	assert.Equal(t, "partial"+datatypes.StreamErrorSentinel, w.Body.String())

	assert.Error(t, writer.WriteChunk("late"), "writes after the sentinel must fail")
	assert.Error(t, writer.WriteSentinel(), "sentinel must be written at most once")
	assert.Equal(t, "partial"+datatypes.StreamErrorSentinel, w.Body.String())
}

func TestStreamWriter_FirstWriteSetsStreamHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	writer, err := NewStreamWriter(w)
	require.NoError(t, err)

	assert.Empty(t, w.Header().Get("Content-Type"), "headers must stay unset until a byte is relayed")

	require.NoError(t, writer.WriteChunk("Hi"))

	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
}

func TestSetStreamHeaders(t *testing.T) {
	w := httptest.NewRecorder()

	SetStreamHeaders(w)

	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
}
