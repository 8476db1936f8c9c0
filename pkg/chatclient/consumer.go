// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/chatmate-ai/chatmate/services/gateway/datatypes"
)

const (
	// DefaultIdleTimeout bounds how long the consumer waits between
	// reads before declaring the stream dead.
	DefaultIdleTimeout = 60 * time.Second

	streamPath       = "/v1/chat/stream"
	readBufferSize   = 4096
	maxErrorBodySize = 8192
)

// ErrNoBody indicates the server answered 2xx without a response body.
var ErrNoBody = errors.New("response has no body")

// ContainsStreamError reports whether the accumulated text carries the
// gateway's in-band error sentinel. The sentinel is delivered as
// ordinary text and the exchange still completes; callers that want to
// treat it as a failure check for it with this helper.
func ContainsStreamError(text string) bool {
	return strings.Contains(text, datatypes.StreamErrorSentinel)
}

// HTTPClient is the transport used to reach the gateway. *http.Client
// satisfies it; tests substitute their own.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChunkFunc receives each decoded text chunk as it arrives.
type ChunkFunc func(chunk string)

// StreamResult summarizes a finished exchange.
type StreamResult struct {
	// State is the terminal state: completed, aborted, or failed.
	State SessionState
	// Text is the full decoded response, sentinel included if the
	// server appended one.
	Text string
	// Chunks counts the decoded chunks delivered to the caller.
	Chunks int
	// Duration covers request start to stream end.
	Duration time.Duration
}

// StreamConsumerConfig configures a StreamConsumer.
type StreamConsumerConfig struct {
	// BaseURL is the gateway root, e.g. "http://localhost:8080".
	BaseURL string
	// IdleTimeout is the maximum gap between reads. Zero means
	// DefaultIdleTimeout.
	IdleTimeout time.Duration
}

// StreamConsumer issues chat requests against the gateway and decodes
// the chunked text relay.
type StreamConsumer struct {
	baseURL     string
	idleTimeout time.Duration
	client      HTTPClient
}

// NewStreamConsumer builds a consumer with a default HTTP client. The
// client carries no overall timeout; stream lifetime is bounded by the
// caller's context and the idle timeout.
func NewStreamConsumer(cfg StreamConsumerConfig) *StreamConsumer {
	return NewStreamConsumerWithClient(cfg, &http.Client{})
}

// NewStreamConsumerWithClient builds a consumer on a caller-supplied
// transport.
func NewStreamConsumerWithClient(cfg StreamConsumerConfig, client HTTPClient) *StreamConsumer {
	if client == nil {
		panic("chatclient: HTTPClient cannot be nil")
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &StreamConsumer{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		idleTimeout: idle,
		client:      client,
	}
}

// Stream sends one chat turn and relays decoded chunks to onChunk
// until the stream ends. The returned result always carries a terminal
// state; the error is non-nil only for aborted and failed exchanges.
// Cancelling ctx aborts the exchange, and an abort is never
// reclassified as a failure even when the transport surfaces the
// cancellation as a read error.
func (s *StreamConsumer) Stream(ctx context.Context, req datatypes.ChatStreamRequest, onChunk ChunkFunc) (*StreamResult, error) {
	requestID := uuid.New().String()
	start := time.Now()
	tracker := NewStateTracker()
	tracker.Begin()

	result := func(err error) (*StreamResult, error) {
		return &StreamResult{
			State:    tracker.State(),
			Duration: time.Since(start),
		}, err
	}

	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		tracker.Fail()
		return result(err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		tracker.Fail()
		return result(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+streamPath, bytes.NewReader(body))
	if err != nil {
		tracker.Fail()
		return result(fmt.Errorf("failed to build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/plain")
	httpReq.Header.Set("X-Request-ID", requestID)

	slog.Debug("sending chat request", "request_id", requestID, "model", req.Model)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			tracker.Abort()
			return result(context.Canceled)
		}
		tracker.Fail()
		return result(fmt.Errorf("request failed: %w", err))
	}
	if resp.Body == nil {
		tracker.Fail()
		return result(ErrNoBody)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && !errors.Is(cerr, http.ErrBodyReadAfterClose) {
			slog.Debug("failed to close response body", "request_id", requestID, "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tracker.Fail()
		return result(serverError(resp))
	}

	text, chunks, streamErr := s.consumeBody(ctx, resp.Body, tracker, onChunk)

	switch {
	case streamErr == nil:
		tracker.Complete()
	case errors.Is(streamErr, context.Canceled) || ctx.Err() != nil:
		tracker.Abort()
		streamErr = context.Canceled
	default:
		tracker.Fail()
	}

	res := &StreamResult{
		State:    tracker.State(),
		Text:     text,
		Chunks:   chunks,
		Duration: time.Since(start),
	}
	slog.Debug("stream finished",
		"request_id", requestID,
		"state", res.State.String(),
		"chunks", res.Chunks,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, streamErr
}

// consumeBody reads the chunked relay until EOF, error, or idle
// timeout. The idle timer closes the body from a goroutine, which
// surfaces as a read error in the loop.
func (s *StreamConsumer) consumeBody(ctx context.Context, body io.ReadCloser, tracker *StateTracker, onChunk ChunkFunc) (string, int, error) {
	var (
		builder  strings.Builder
		decoder  runeDecoder
		chunks   int
		timedOut atomic.Bool
	)

	idle := time.AfterFunc(s.idleTimeout, func() {
		timedOut.Store(true)
		body.Close()
	})
	defer idle.Stop()

	deliver := func(chunk string) {
		if chunk == "" {
			return
		}
		tracker.StartStreaming()
		chunks++
		builder.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	buf := make([]byte, readBufferSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			idle.Reset(s.idleTimeout)
			deliver(decoder.Decode(buf[:n]))
		}
		if err != nil {
			if err == io.EOF {
				deliver(decoder.Flush())
				return builder.String(), chunks, nil
			}
			if ctx.Err() != nil {
				return builder.String(), chunks, context.Canceled
			}
			if timedOut.Load() {
				return builder.String(), chunks, fmt.Errorf("stream idle for %s", s.idleTimeout)
			}
			return builder.String(), chunks, fmt.Errorf("stream read failed: %w", err)
		}
	}
}

// serverError turns a non-2xx response into an error, preferring the
// gateway's JSON error field when present.
func serverError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("server error (%d): %s", resp.StatusCode, msg)
}
