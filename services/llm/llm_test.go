package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOpenAIMessages(t *testing.T) {
	t.Run("plain messages pass through", func(t *testing.T) {
		msgs := toOpenAIMessages([]Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hello"},
		})

		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].Role)
		assert.Equal(t, "be brief", msgs[0].Content)
		assert.Empty(t, msgs[0].MultiContent)
	})

	t.Run("image message becomes multi-part", func(t *testing.T) {
		msgs := toOpenAIMessages([]Message{
			{Role: "user", Content: "what is this?", ImageURL: "data:image/png;base64,AAAA"},
		})

		require.Len(t, msgs, 1)
		assert.Empty(t, msgs[0].Content)
		require.Len(t, msgs[0].MultiContent, 2)
		assert.Equal(t, openai.ChatMessagePartTypeText, msgs[0].MultiContent[0].Type)
		assert.Equal(t, "what is this?", msgs[0].MultiContent[0].Text)
		assert.Equal(t, openai.ChatMessagePartTypeImageURL, msgs[0].MultiContent[1].Type)
		assert.Equal(t, "data:image/png;base64,AAAA", msgs[0].MultiContent[1].ImageURL.URL)
	})

	t.Run("image-only message has single part", func(t *testing.T) {
		msgs := toOpenAIMessages([]Message{
			{Role: "user", ImageURL: "data:image/jpeg;base64,BBBB"},
		})

		require.Len(t, msgs, 1)
		require.Len(t, msgs[0].MultiContent, 1)
		assert.Equal(t, openai.ChatMessagePartTypeImageURL, msgs[0].MultiContent[0].Type)
	})
}

func TestToOllamaMessages(t *testing.T) {
	msgs := toOllamaMessages([]Message{
		{Role: "user", Content: "look", ImageURL: "data:image/png;base64,iVBORw0K"},
		{Role: "assistant", Content: "ok"},
	})

	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].Images, 1)
	assert.Equal(t, "iVBORw0K", msgs[0].Images[0])
	assert.Empty(t, msgs[1].Images)
}

func newTestOllamaClient(baseURL string) *OllamaClient {
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		model:      "llama3.2",
	}
}

func TestOllamaChatStream(t *testing.T) {
	t.Run("relays token deltas in order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chat", r.URL.Path)
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":false}`)
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
		}))
		defer server.Close()

		client := newTestOllamaClient(server.URL)
		var tokens []string
		doneSeen := false
		err := client.ChatStream(context.Background(),
			[]Message{{Role: "user", Content: "hi"}},
			GenerationParams{},
			func(event StreamEvent) error {
				switch event.Type {
				case StreamEventToken:
					tokens = append(tokens, event.Content)
				case StreamEventDone:
					doneSeen = true
				}
				return nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"Hel", "lo"}, tokens)
		assert.True(t, doneSeen)
	})

	t.Run("non-200 is a setup error before any callback", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestOllamaClient(server.URL)
		callbackCalls := 0
		err := client.ChatStream(context.Background(), nil, GenerationParams{},
			func(event StreamEvent) error {
				callbackCalls++
				return nil
			})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
		assert.Zero(t, callbackCalls)
	})

	t.Run("in-stream error object fails the stream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"par"},"done":false}`)
			fmt.Fprintln(w, `{"error":"model crashed"}`)
		}))
		defer server.Close()

		client := newTestOllamaClient(server.URL)
		var tokens []string
		err := client.ChatStream(context.Background(), nil, GenerationParams{},
			func(event StreamEvent) error {
				if event.Type == StreamEventToken {
					tokens = append(tokens, event.Content)
				}
				return nil
			})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "model crashed")
		assert.Equal(t, []string{"par"}, tokens)
	})

	t.Run("cancellation surfaces the context error", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"first"},"done":false}`)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			<-release
		}))
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		client := newTestOllamaClient(server.URL)
		err := client.ChatStream(ctx, nil, GenerationParams{},
			func(event StreamEvent) error {
				cancel()
				return nil
			})

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("callback error aborts the stream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"a"},"done":false}`)
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"b"},"done":false}`)
			fmt.Fprintln(w, `{"done":true}`)
		}))
		defer server.Close()

		sentinel := fmt.Errorf("writer closed")
		client := newTestOllamaClient(server.URL)
		err := client.ChatStream(context.Background(), nil, GenerationParams{},
			func(event StreamEvent) error {
				return sentinel
			})

		assert.ErrorIs(t, err, sentinel)
	})
}
