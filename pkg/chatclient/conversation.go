// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatclient

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/chatmate-ai/chatmate/services/gateway/datatypes"
)

const (
	// Greeting is the assistant's opening message in fresh sessions.
	Greeting = "Hi! I’m ChatMate. How can I help?"
	// StoppedMessage replaces partial content when the user aborts.
	StoppedMessage = "[Generation stopped]"
	// FailedMessage is appended when an exchange ends in error.
	FailedMessage = "Oops—stream failed."
)

// ErrBusy is returned when a send is attempted while an exchange is
// already in flight.
var ErrBusy = errors.New("an exchange is already in progress")

// Attachment describes a file the user attached to a turn, already
// converted to its wire form.
type Attachment struct {
	// ImageDataURL holds a base64 data URL for image attachments.
	ImageDataURL string
	// Text holds extracted text for document attachments.
	Text string
	// Name is the original file name.
	Name string
	// Type is the MIME type.
	Type string
}

// SendOptions carries the per-turn inputs beyond the message itself.
type SendOptions struct {
	Model      string
	System     string
	Attachment *Attachment
}

// Conversation holds an ordered message history and drives one
// exchange at a time through a StreamConsumer. Messages are append
// only; every terminal state appends at most one assistant message.
type Conversation struct {
	mu       sync.Mutex
	consumer *StreamConsumer
	tracker  *StateTracker
	messages []datatypes.Message
	partial  string
}

// NewConversation starts an empty conversation.
func NewConversation(consumer *StreamConsumer) *Conversation {
	if consumer == nil {
		panic("chatclient: StreamConsumer cannot be nil")
	}
	return &Conversation{
		consumer: consumer,
		tracker:  NewStateTracker(),
	}
}

// NewGreetedConversation starts a conversation seeded with the
// assistant greeting, matching a fresh chat page.
func NewGreetedConversation(consumer *StreamConsumer) *Conversation {
	c := NewConversation(consumer)
	c.messages = append(c.messages, datatypes.Message{Role: "assistant", Content: Greeting})
	return c
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []datatypes.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]datatypes.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// State returns the current exchange state.
func (c *Conversation) State() SessionState {
	return c.tracker.State()
}

// Partial returns the text accumulated so far in the in-flight
// exchange, empty outside of one.
func (c *Conversation) Partial() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partial
}

// Send runs one exchange: append the user message, stream the reply,
// reconcile history on the terminal state, and return to idle. The
// result reports how the exchange ended; the error is non-nil for
// aborted and failed exchanges. Cancelling ctx aborts the exchange and
// records the fixed stopped message in place of partial content.
func (c *Conversation) Send(ctx context.Context, message string, opts SendOptions, onChunk ChunkFunc) (*StreamResult, error) {
	if !c.tracker.Begin() {
		return nil, ErrBusy
	}
	defer c.tracker.Reset()

	req := c.buildRequest(message, opts)

	userContent := strings.TrimSpace(message)
	if userContent == "" {
		userContent = datatypes.AttachmentOnlyContent
	}
	c.appendMessage(datatypes.Message{Role: "user", Content: userContent})

	result, err := c.consumer.Stream(ctx, req, func(chunk string) {
		c.tracker.StartStreaming()
		c.mu.Lock()
		c.partial += chunk
		c.mu.Unlock()
		if onChunk != nil {
			onChunk(chunk)
		}
	})

	c.mu.Lock()
	c.partial = ""
	c.mu.Unlock()

	switch result.State {
	case StateCompleted:
		c.tracker.Complete()
		if reply := strings.TrimSpace(result.Text); reply != "" {
			c.appendMessage(datatypes.Message{Role: "assistant", Content: reply})
		}
	case StateAborted:
		c.tracker.Abort()
		c.appendMessage(datatypes.Message{Role: "assistant", Content: StoppedMessage})
	default:
		c.tracker.Fail()
		c.appendMessage(datatypes.Message{Role: "assistant", Content: FailedMessage})
	}

	return result, err
}

func (c *Conversation) buildRequest(message string, opts SendOptions) datatypes.ChatStreamRequest {
	c.mu.Lock()
	history := make([]datatypes.Message, len(c.messages))
	copy(history, c.messages)
	c.mu.Unlock()

	req := datatypes.ChatStreamRequest{
		Message: message,
		History: history,
		Model:   opts.Model,
		System:  opts.System,
	}
	if a := opts.Attachment; a != nil {
		req.ImageDataURL = a.ImageDataURL
		req.FileText = a.Text
		req.FileName = a.Name
		req.FileType = a.Type
	}
	return req
}

func (c *Conversation) appendMessage(msg datatypes.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}
