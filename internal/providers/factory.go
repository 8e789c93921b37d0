package providers

import (
	"errors"
	"fmt"

	"github.com/rishi-narain/ad-tester/internal/gemini"
	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/metrics"
	"github.com/rishi-narain/ad-tester/internal/openai"

	"go.uber.org/zap"
)

// ErrNoProviders is returned when no provider has an API key.
var ErrNoProviders = errors.New("no model provider configured")

// New builds one client per provider config, wraps each with a
// client-side rate limiter and metrics, and combines them into a
// MultiProviderClient when more than one is configured. Providers without
// an API key are skipped with a warning.
func New(configs []llm.ProviderConfig, maxFailures int, m *metrics.Metrics, logger *zap.Logger) (llm.Provider, error) {
	var built []llm.Provider
	for i, cfg := range configs {
		if cfg.APIKey == "" {
			logger.Warn("Skipping provider without API key",
				zap.Int("index", i),
				zap.String("type", string(cfg.Type)))
			continue
		}

		p, err := newProvider(cfg, logger)
		if err != nil {
			closeAll(built)
			return nil, fmt.Errorf("failed to create provider %d (%s): %w", i, cfg.Type, err)
		}

		p = Instrument(p, string(cfg.Type), m)
		built = append(built, llm.NewRateLimitedProvider(p, cfg.RequestsPerMinute, logger))

		logger.Info("Provider initialized",
			zap.Int("index", i),
			zap.String("type", string(cfg.Type)),
			zap.String("model", cfg.ModelName),
			zap.Int("rpm", cfg.RequestsPerMinute))
	}

	switch len(built) {
	case 0:
		return nil, ErrNoProviders
	case 1:
		return built[0], nil
	}

	multi, err := llm.NewMultiProviderClient(built, maxFailures, logger)
	if err != nil {
		closeAll(built)
		return nil, err
	}
	return multi, nil
}

func newProvider(cfg llm.ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	oc := openai.Config{
		Provider:    string(cfg.Type),
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		ModelName:   cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
		Timeout:     cfg.Timeout,
	}

	switch cfg.Type {
	case llm.ProviderOpenAI:
		return openai.NewClient(oc, logger)
	case llm.ProviderGroq:
		if oc.BaseURL == "" {
			oc.BaseURL = openai.GroqBaseURL
		}
		if oc.ModelName == "" {
			oc.ModelName = "llama-3.3-70b-versatile"
		}
		return openai.NewClient(oc, logger)
	case llm.ProviderOpenRouter:
		if oc.BaseURL == "" {
			oc.BaseURL = openai.OpenRouterBaseURL
		}
		if oc.ModelName == "" {
			oc.ModelName = "openai/gpt-4o"
		}
		oc.Headers = map[string]string{
			"HTTP-Referer": "https://github.com/rishi-narain/ad-tester",
			"X-Title":      "Ad Tester",
		}
		return openai.NewClient(oc, logger)
	case llm.ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:          cfg.APIKey,
			ModelName:       cfg.ModelName,
			BaseURL:         cfg.BaseURL,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}

func closeAll(ps []llm.Provider) {
	for _, p := range ps {
		_ = p.Close()
	}
}
