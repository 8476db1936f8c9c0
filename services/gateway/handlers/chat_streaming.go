// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the gateway HTTP endpoints: the streaming
// chat relay, attachment text extraction, and the upload echo.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatmate-ai/chatmate/services/gateway/datatypes"
	"github.com/chatmate-ai/chatmate/services/gateway/observability"
	"github.com/chatmate-ai/chatmate/services/llm"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ChatStreamHandler defines the contract for the streaming chat relay.
//
// # Description
//
// ChatStreamHandler accepts one chat turn over POST and relays the upstream
// completion's text deltas to the client as a chunked text/plain body. All
// failures that occur before the first relayed byte map to non-2xx JSON
// responses; failures after the first byte are reported in-band via the
// stream error sentinel, because the status line is already on the wire.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use by multiple goroutines.
// HTTP handlers are called concurrently by the Gin framework.
//
// # Assumptions
//
//   - The LLM client implements ChatStream and honors context cancellation.
type ChatStreamHandler interface {
	// HandleChatStream processes POST /v1/chat/stream requests.
	//
	// # Outputs
	//
	// On success: HTTP 200 with Content-Type text/plain; charset=utf-8 and
	// the concatenated upstream deltas as the body, flushed chunk by chunk.
	//
	// HTTP status (before streaming starts):
	//   - 400 Bad Request: Malformed body, validation failure, or an
	//     inconsistent attachment
	//   - 502 Bad Gateway: Upstream stream could not be opened
	//   - 500 Internal Server Error: Connection does not support streaming
	HandleChatStream(c *gin.Context)
}

// chatStreamHandler implements ChatStreamHandler for production use.
//
// Thread-safe: all fields are read-only after construction, and per-request
// state lives on the stack.
type chatStreamHandler struct {
	llmClient llm.LLMClient
	tracer    trace.Tracer
}

// NewChatStreamHandler creates a ChatStreamHandler backed by the given LLM
// client. Panics on a nil client, which is a wiring bug.
func NewChatStreamHandler(llmClient llm.LLMClient) ChatStreamHandler {
	if llmClient == nil {
		panic("NewChatStreamHandler: llmClient must not be nil")
	}
	return &chatStreamHandler{
		llmClient: llmClient,
		tracer:    otel.Tracer("chatmate.gateway.handlers.chat_streaming"),
	}
}

// =============================================================================
// Handler Methods
// =============================================================================

// HandleChatStream processes POST /v1/chat/stream requests.
//
// The flow is:
//  1. Parse and validate the request body, apply defaults
//  2. Classify the attachment into its closed variant
//  3. Assemble the upstream message list (system, history, user)
//  4. Create the chunk writer (headers are set on first write)
//  5. Relay upstream deltas until done, error, or client disconnect
//  6. On mid-stream upstream failure, append the error sentinel
func (h *chatStreamHandler) HandleChatStream(c *gin.Context) {
	startTime := time.Now()
	endpoint := observability.EndpointChatStream

	ctx, span := h.tracer.Start(c.Request.Context(), "HandleChatStream")
	defer span.End()

	if m := observability.DefaultMetrics; m != nil {
		m.StreamStarted(endpoint)
		defer m.StreamEnded(endpoint)
	}

	success := false
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			duration := time.Since(startTime).Seconds()
			m.RecordRequest(endpoint, success)
			m.RecordStreamDuration(endpoint, duration, success)
		}
	}()

	requestID := uuid.New().String()

	// Step 1: Parse, default, and validate
	var req datatypes.ChatStreamRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Error("Failed to parse chat stream request", "error", err, "requestId", requestID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.EnsureDefaults()

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		slog.Error("Chat stream request validation failed", "error", err, "requestId", requestID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Step 2: Classify the attachment exactly once
	attachment, err := req.Classify()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attachment classification failed")
		slog.Error("Chat stream attachment rejected", "error", err, "requestId", requestID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.String("request.model", req.Model),
		attribute.Int("request.history_length", len(req.History)),
		attribute.String("request.attachment", attachment.Kind.String()),
	)

	// Step 3: Assemble upstream messages
	messages := buildUpstreamMessages(&req, attachment)

	// Step 4: Chunk writer. Streaming headers go out with the first
	// relayed byte, so earlier failures can still answer in JSON.
	writer, err := NewStreamWriter(c.Writer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream setup failed")
		slog.Error("Failed to create stream writer", "error", err, "requestId", requestID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInternal)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	// Step 5: Relay deltas. The request context is cancelled by gin when
	// the client disconnects, which aborts the upstream call.
	params := llm.GenerationParams{Model: req.Model}
	firstChunkTime := time.Time{}
	streamErr := h.llmClient.ChatStream(ctx, messages, params, func(event llm.StreamEvent) error {
		if event.Type != llm.StreamEventToken {
			return nil
		}
		if firstChunkTime.IsZero() {
			firstChunkTime = time.Now()
		}
		return writer.WriteChunk(event.Content)
	})

	if streamErr != nil {
		span.RecordError(streamErr)
		span.SetAttributes(attribute.Int("stream.chunk_count", writer.ChunkCount()))

		// Client disconnects are not server failures; there is nobody
		// left to write a sentinel to.
		if errors.Is(streamErr, context.Canceled) || c.Request.Context().Err() != nil {
			span.SetStatus(codes.Error, "client disconnected")
			slog.Info("Chat stream client disconnected",
				"requestId", requestID,
				"chunks", writer.ChunkCount(),
			)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeClientDisconnect)
				m.RecordClientDisconnect(endpoint)
			}
			return
		}

		// Step 6a: Setup failure. No byte has been relayed, so the status
		// line is still ours to set.
		if !writer.Started() {
			span.SetStatus(codes.Error, "upstream setup failed")
			slog.Error("Upstream stream setup failed",
				"error", streamErr,
				"requestId", requestID,
				"model", req.Model,
			)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeUpstreamSetup)
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
			return
		}

		// Step 6b: Mid-stream failure. The partial text already reached
		// the client; the sentinel is the only remaining error channel.
		span.SetStatus(codes.Error, "upstream stream failed")
		slog.Error("Upstream stream failed mid-relay",
			"error", streamErr,
			"requestId", requestID,
			"model", req.Model,
			"chunks", writer.ChunkCount(),
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeUpstreamStream)
		}
		if err := writer.WriteSentinel(); err != nil {
			slog.Error("Failed to write stream error sentinel", "error", err, "requestId", requestID)
		}
		return
	}

	if !firstChunkTime.IsZero() {
		ttfc := firstChunkTime.Sub(startTime).Seconds()
		span.SetAttributes(attribute.Float64("stream.time_to_first_chunk_seconds", ttfc))
		if m := observability.DefaultMetrics; m != nil {
			m.RecordTimeToFirstChunk(endpoint, ttfc)
		}
	}
	span.SetAttributes(attribute.Int("stream.chunk_count", writer.ChunkCount()))
	if m := observability.DefaultMetrics; m != nil {
		m.RecordChunks(req.Model, writer.ChunkCount())
	}

	success = true
	span.SetStatus(codes.Ok, "stream completed")
}

// =============================================================================
// Message Assembly
// =============================================================================

// buildUpstreamMessages assembles the upstream conversation: system prompt,
// prior history in order, then the new user message with the attachment
// merged in.
//
// Attachment merge rules:
//   - Text attachments are appended to the user content under a filename
//     header, with AttachmentOnlyContent standing in when no message text
//     was typed.
//   - Image attachments ride along as an inline data URL and become an
//     image part at the provider layer.
func buildUpstreamMessages(req *datatypes.ChatStreamRequest, attachment datatypes.Attachment) []llm.Message {
	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: req.System})
	for _, m := range req.History {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	user := llm.Message{Role: "user", Content: req.Message}
	switch attachment.Kind {
	case datatypes.AttachmentText:
		if user.Content == "" {
			user.Content = datatypes.AttachmentOnlyContent
		}
		name := attachment.Name
		if name == "" {
			name = "attachment"
		}
		user.Content = fmt.Sprintf("%s\n\n[Attached file: %s]\n%s", user.Content, name, attachment.Text)
	case datatypes.AttachmentImage:
		user.ImageURL = attachment.DataURL
	}
	messages = append(messages, user)

	return messages
}
