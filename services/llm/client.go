package llm

import "context"

type GenerationParams struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Message is one entry of the conversation sent upstream. ImageURL, when
// set, carries an inline data: URL for vision-capable models and is only
// meaningful on user messages.
type Message struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"-"`
}

// StreamEventType identifies the kind of a StreamEvent.
type StreamEventType string

const (
	StreamEventToken StreamEventType = "token"
	StreamEventDone  StreamEventType = "done"
)

// StreamEvent is delivered to the ChatStream callback for each generation
// step. Token events carry delta content in generation order; the final
// event is a done event.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
}

// StreamCallback receives stream events in order. Returning an error aborts
// the stream; ChatStream propagates it to the caller.
type StreamCallback func(event StreamEvent) error

// LLMClient defines the standard interface for any LLM backend.
//
// ChatStream opens a streaming completion for the given conversation and
// invokes callback for each event. It returns nil after the done event, a
// setup error before the first callback invocation, or the upstream error
// that interrupted a running stream. Implementations must stop promptly
// when ctx is cancelled.
type LLMClient interface {
	ChatStream(ctx context.Context, messages []Message, params GenerationParams, callback StreamCallback) error
}
