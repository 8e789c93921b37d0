package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/prompt"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Client talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, OpenRouter).
type Client struct {
	provider    string
	apiKey      string
	baseURL     string
	modelName   string
	temperature float32
	maxTokens   int
	jsonMode    bool
	headers     map[string]string
	httpClient  *http.Client
	logger      *zap.Logger
}

// Config for the chat completions client
type Config struct {
	// Provider labels errors and model info ("openai", "groq", ...).
	Provider    string
	APIKey      string
	BaseURL     string
	ModelName   string // Default: "gpt-4o"
	Temperature float32
	MaxTokens   int
	// DisableJSONMode omits response_format for models that reject it.
	DisableJSONMode bool
	Headers         map[string]string
	Timeout         time.Duration
	HTTPClient      *http.Client
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatMessage content is either a string or a list of content parts.
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error,omitempty"`
}

// NewClient creates a new chat completions client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gpt-4o"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger.Info("Chat completions client initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.ModelName),
		zap.String("base_url", cfg.BaseURL))

	return &Client{
		provider:    cfg.Provider,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		jsonMode:    !cfg.DisableJSONMode,
		headers:     cfg.Headers,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Complete sends one evaluation and returns the raw answer text.
func (c *Client) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	reqBody := chatRequest{
		Model: c.modelName,
		Messages: []chatMessage{
			{Role: "system", Content: payload.System},
			{Role: "user", Content: userContent(payload)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if c.jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.logger.Error("Chat completions request failed", zap.String("provider", c.provider), zap.Error(err))
		return "", llm.NewError(c.provider, llm.KindUnavailable, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.NewError(c.provider, llm.KindUnavailable, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := llm.FromStatus(c.provider, resp.StatusCode, body, resp.Header)
		c.logger.Error("Chat completions API error",
			zap.String("provider", c.provider),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(apiErr.Kind)),
			zap.String("message", apiErr.Message))
		return "", apiErr
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", llm.NewError(c.provider, llm.KindUnavailable, "failed to unmarshal response", err)
	}

	// OpenRouter reports some upstream failures inside a 200 body
	if apiResp.Error != nil {
		return "", llm.FromStatus(c.provider, embeddedStatus(apiResp.Error.Code), []byte(apiResp.Error.Message), nil)
	}

	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == nil ||
		strings.TrimSpace(*apiResp.Choices[0].Message.Content) == "" {
		c.logger.Warn("Empty completion", zap.String("provider", c.provider), zap.String("id", apiResp.ID))
		return "", llm.NewError(c.provider, llm.KindEmptyResponse, "", nil)
	}

	c.logger.Debug("Completion received",
		zap.String("provider", c.provider),
		zap.String("finish_reason", apiResp.Choices[0].FinishReason),
		zap.Int("total_tokens", apiResp.Usage.TotalTokens))

	return *apiResp.Choices[0].Message.Content, nil
}

func userContent(payload prompt.Payload) interface{} {
	if payload.Image == nil {
		return payload.Text
	}
	return []contentPart{
		{Type: "text", Text: payload.Text},
		{Type: "image_url", ImageURL: &imageURL{URL: payload.Image.URI}},
	}
}

func embeddedStatus(code json.RawMessage) int {
	var n int
	if err := json.Unmarshal(code, &n); err == nil && n >= 400 {
		return n
	}
	var s string
	if err := json.Unmarshal(code, &s); err == nil {
		switch s {
		case "invalid_api_key":
			return http.StatusUnauthorized
		case "rate_limit_exceeded":
			return http.StatusTooManyRequests
		}
	}
	return http.StatusBadGateway
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": c.provider,
		"model":    c.modelName,
		"base_url": c.baseURL,
	}
}
