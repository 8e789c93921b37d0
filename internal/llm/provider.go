package llm

import (
	"context"
	"time"

	"github.com/rishi-narain/ad-tester/internal/prompt"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderGemini     ProviderType = "gemini"
)

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type            ProviderType  `yaml:"type"`
	APIKey          string        `yaml:"api_key"`
	ModelName       string        `yaml:"model_name"`
	BaseURL         string        `yaml:"base_url"`
	Temperature     float32       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	// Rate limiting per provider
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Provider is a single chat-completion backend. Complete returns the raw
// answer text; it never parses it. Failures are *Error values.
type Provider interface {
	Complete(ctx context.Context, payload prompt.Payload) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}
