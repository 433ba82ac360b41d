// Package inference is the twin's language-model collaborator. Every
// provider sits behind Completer, and every provider failure wraps
// ErrInference so callers can tell a failed model call from anything else.
package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInference marks a failed, rejected, timed out or empty model call.
var ErrInference = errors.New("inference failed")

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer produces the model's reply to msgs under the given system prompt.
type Completer interface {
	Complete(ctx context.Context, system string, msgs []Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system string, msgs []Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system string, msgs []Message) (string, error) {
	return f(ctx, system, msgs)
}

const (
	DefaultMaxTokens      = 1000
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultOllamaModel    = "llama3.2"
	DefaultOllamaURL      = "http://localhost:11434"
)

// Options selects and configures a provider.
type Options struct {
	Provider  string // anthropic (default), openai or ollama
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
}

// New builds a Completer for the configured provider. An empty API key
// falls back to ANTHROPIC_API_KEY or OPENAI_API_KEY.
func New(o Options) (Completer, error) {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	provider := strings.ToLower(o.Provider)

	switch provider {
	case "", "anthropic", "claude":
		key := firstNonEmpty(o.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("anthropic: no API key (set inference.api_key or ANTHROPIC_API_KEY)")
		}
		return NewAnthropicClient(key, firstNonEmpty(o.Model, DefaultAnthropicModel), o.BaseURL, o.MaxTokens), nil

	case "openai":
		key := firstNonEmpty(o.APIKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("openai: no API key (set inference.api_key or OPENAI_API_KEY)")
		}
		return NewOpenAIClient(key, firstNonEmpty(o.Model, DefaultOpenAIModel), o.BaseURL, o.MaxTokens), nil

	case "ollama":
		// Ollama speaks the OpenAI chat API under /v1 and ignores the key.
		base := strings.TrimRight(firstNonEmpty(o.BaseURL, DefaultOllamaURL), "/")
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		return NewOpenAIClient(firstNonEmpty(o.APIKey, "ollama"), firstNonEmpty(o.Model, DefaultOllamaModel), base, o.MaxTokens), nil

	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", o.Provider)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fail(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInference, provider, err)
}

var errEmptyResponse = errors.New("empty response")
