package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Providers(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	c, err := New(Options{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	c, err = New(Options{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = New(Options{Provider: "ollama"})
	require.NoError(t, err, "ollama needs no key")
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = New(Options{Provider: "anthropic"})
	assert.Error(t, err, "missing key")

	_, err = New(Options{Provider: "bard"})
	assert.Error(t, err)
}

func TestNew_EnvKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	_, err := New(Options{Provider: "openai"})
	assert.NoError(t, err)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		System    string `json:"system"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "test-model",
			"content": [{"type": "text", "text": "Hello from the twin"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key", "test-model", srv.URL, 321)
	out, err := c.Complete(context.Background(), "SYSTEM PROMPT", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello from the twin", out)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "SYSTEM PROMPT", got.System)
	assert.Equal(t, 321, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Equal(t, "hi", got.Messages[0].Content[0].Text)
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"type":"error","error":{"type":"api_error","message":"boom"}}`},
		{"rejected", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`},
		{"empty content", http.StatusOK, `{"id":"msg_1","type":"message","role":"assistant","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewAnthropicClient("key", "m", srv.URL, 10).Complete(context.Background(), "s", []Message{{Role: RoleUser, Content: "hi"}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInference)
		})
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "llama3.2",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi there"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	c, err := New(Options{Provider: "ollama", BaseURL: srv.URL})
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), "SYS", []Message{
		{Role: RoleUser, Content: "earlier"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "now"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out)

	assert.Equal(t, DefaultOllamaModel, got.Model)
	assert.Equal(t, []Message{
		{Role: "system", Content: "SYS"},
		{Role: "user", Content: "earlier"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "now"},
	}, got.Messages)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("k", "m", srv.URL, 10).Complete(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrInference)
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewAnthropicClient("key", "m", srv.URL, 10).Complete(ctx, "s", []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInference)
}

func TestCompleterFunc(t *testing.T) {
	f := CompleterFunc(func(_ context.Context, system string, msgs []Message) (string, error) {
		return system + ":" + msgs[0].Content, nil
	})
	out, err := f.Complete(context.Background(), "s", []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "s:x", out)
}
