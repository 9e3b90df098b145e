// Package llm provides the local-model contract used by the expansion,
// grading and generation stages: chat completion, streaming chat, and
// grammar-constrained decoding against a llama.cpp-compatible server.
package llm

import (
	"context"
	"fmt"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat completion request. Grammar, when non-empty, is a
// GBNF grammar string passed through to the server's constrained-decoding
// parameter; callers that need JSON output should prefer Grammar over
// ResponseFormat, since the fallback chain (spec §9) only triggers when a
// grammar-constrained call fails.
type ChatRequest struct {
	Model          string    `json:"model"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature,omitempty"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	ResponseFormat string    `json:"response_format,omitempty"`
	Grammar        string    `json:"grammar,omitempty"`
}

// ChatResponse is a complete (non-streamed) chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// StreamChunk is one token delta of a streaming chat completion.
type StreamChunk struct {
	Delta        string
	FinishReason string
	Err          error
}

// Provider is the contract every backend (local llama.cpp server, or any
// OpenAI-compatible endpoint) must satisfy.
type Provider interface {
	// Chat performs a single non-streaming completion.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream performs a streaming completion. The returned channel is
	// closed after a final chunk (FinishReason set, or Err non-nil); the
	// caller must drain it or cancel ctx to release the request.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)

	// Embed produces passage/query embeddings for a batch of texts. The
	// embedding adapter (C5) is responsible for any asymmetric task prefix;
	// Provider.Embed itself is task-agnostic.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures an LLM provider.
type Config struct {
	Provider string `json:"provider"` // llamacpp, openai, custom, groq, openrouter, xai, gemini, ollama, lmstudio
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
}

// NewProvider builds a Provider from configuration. Every supported value
// shares the same OpenAI-compatible wire format (llama.cpp's server mode,
// and every cloud drop-in replacement below), differing only in default
// base URL, default model, and auth. Ollama is the one exception: it gets
// its own embedding path since its native /api/embed endpoint batches more
// reliably than its OpenAI-compat shim.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "llamacpp", "custom":
		return newOpenAICompatClient(cfg, "/v1"), nil
	case "openai":
		cfg = withDefaults(cfg, "https://api.openai.com", "text-embedding-3-small")
		return newOpenAICompatClient(cfg, "/v1"), nil
	case "groq":
		cfg = withDefaults(cfg, "https://api.groq.com/openai", "llama-3.3-70b-versatile")
		return newOpenAICompatClient(cfg, "/v1"), nil
	case "openrouter":
		cfg = withDefaults(cfg, "https://openrouter.ai/api", "")
		return newOpenAICompatClient(cfg, "/v1"), nil
	case "xai":
		cfg = withDefaults(cfg, "https://api.x.ai", "")
		return newOpenAICompatClient(cfg, "/v1"), nil
	case "gemini":
		cfg = withDefaults(cfg, "https://generativelanguage.googleapis.com/v1beta/openai", "")
		return newOpenAICompatClient(cfg, ""), nil
	case "lmstudio":
		cfg = withDefaults(cfg, "http://localhost:1234", "")
		return newOpenAICompatClient(cfg, "/v1"), nil
	case "ollama":
		cfg = withDefaults(cfg, "http://localhost:11434", "")
		return newOllamaClient(cfg), nil
	case "":
		return nil, fmt.Errorf("llm: provider not specified")
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

func withDefaults(cfg Config, baseURL, model string) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.Model == "" {
		cfg.Model = model
	}
	return cfg
}
