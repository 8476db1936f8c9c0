// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the wire types shared by the gateway and its
// clients: chat stream requests, conversation messages, and attachment
// classification.
package datatypes

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMessageContentBytes limits individual message content size (32KB).
	// Prevents memory exhaustion from oversized prompts.
	MaxMessageContentBytes = 32 * 1024

	// MaxHistoryMessages limits conversation history length per request.
	MaxHistoryMessages = 100

	// MaxFileTextBytes limits extracted attachment text (256KB). Extracted
	// PDF text can be much larger than a typed message.
	MaxFileTextBytes = 256 * 1024

	// DefaultModel is used when the request omits a model.
	DefaultModel = "gpt-4o-mini"

	// DefaultSystemPrompt is used when the request omits a system prompt.
	DefaultSystemPrompt = "You are ChatMate, a concise helpful assistant."

	// AttachmentOnlyContent stands in for the user message when the turn
	// carries an attachment but no typed text.
	AttachmentOnlyContent = "(file attached)"

	// StreamErrorSentinel is appended to the response body when the upstream
	// stream fails after relaying has started. It is the only in-band error
	// channel: once the first byte is written the HTTP status is fixed.
	StreamErrorSentinel = "\n[stream error]"
)

// SupportedModels enumerates the models the gateway will forward upstream.
var SupportedModels = map[string]bool{
	"gpt-4o-mini":  true,
	"gpt-4o":       true,
	"gpt-4.1-mini": true,
}

// =============================================================================
// Validation Setup
// =============================================================================

var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()

	// maxbytes validates string byte length (not rune count)
	_ = chatValidate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		param := fl.Param()
		maxBytes := 0
		if _, err := fmt.Sscanf(param, "%d", &maxBytes); err != nil {
			return false
		}
		return len(fl.Field().String()) <= maxBytes
	})
}

// =============================================================================
// Message Types
// =============================================================================

// Message is a single role-tagged conversation entry.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"maxbytes=32768"`
}

// ChatStreamRequest is the body of POST /v1/chat/stream.
//
// # Description
//
// Carries one chat turn: the new user message, the prior conversation
// history, generation settings, and an optional attachment. The attachment
// arrives pre-processed by the client as either an inline image data URL or
// extracted text, never as raw file bytes.
//
// # Fields
//
//   - Message: The user's typed message. May be empty only when an
//     attachment is present.
//   - History: Prior messages in order. Excludes the message being sent.
//   - Model: Upstream model name. Defaults to DefaultModel.
//   - System: System prompt. Defaults to DefaultSystemPrompt.
//   - ImageDataURL: Inline image as a data: URL (vision models).
//   - FileText: Extracted text content of a non-image attachment.
//   - FileName, FileType: Attachment metadata for prompt framing and MIME
//     classification.
//
// # Limitations
//
//   - At most one attachment per turn.
//
// # Assumptions
//
//   - EnsureDefaults is called before Validate.
type ChatStreamRequest struct {
	Message      string    `json:"message" validate:"maxbytes=32768"`
	History      []Message `json:"history" validate:"max=100,dive"`
	Model        string    `json:"model" validate:"required"`
	System       string    `json:"system" validate:"required,maxbytes=32768"`
	ImageDataURL string    `json:"imageDataUrl,omitempty"`
	FileText     string    `json:"fileText,omitempty" validate:"maxbytes=262144"`
	FileName     string    `json:"fileName,omitempty" validate:"maxbytes=512"`
	FileType     string    `json:"fileType,omitempty" validate:"maxbytes=128"`
}

// EnsureDefaults fills zero-valued generation settings.
func (r *ChatStreamRequest) EnsureDefaults() {
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if strings.TrimSpace(r.System) == "" {
		r.System = DefaultSystemPrompt
	}
}

// Validate checks structural constraints and model support.
//
// # Outputs
//
//   - error: Non-nil with a client-safe description of the first failure.
//
// # Limitations
//
//   - Does not check attachment consistency; see Classify.
func (r *ChatStreamRequest) Validate() error {
	if err := chatValidate.Struct(r); err != nil {
		return fmt.Errorf("request validation failed: %w", err)
	}
	if !SupportedModels[r.Model] {
		return fmt.Errorf("unsupported model %q", r.Model)
	}
	if strings.TrimSpace(r.Message) == "" && !r.HasAttachment() {
		return fmt.Errorf("message or attachment required")
	}
	return nil
}

// HasAttachment reports whether the request carries any attachment payload.
func (r *ChatStreamRequest) HasAttachment() bool {
	return r.ImageDataURL != "" || r.FileText != ""
}
