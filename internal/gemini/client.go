package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/prompt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const providerName = "gemini"

// Client wraps the Gemini API client
type Client struct {
	client          *genai.Client
	logger          *zap.Logger
	modelName       string
	temperature     float32
	maxOutputTokens int32
	timeout         time.Duration
}

// Config for Gemini client
type Config struct {
	APIKey          string
	ModelName       string // Default: "gemini-2.0-flash"
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int
	Timeout         time.Duration
}

// NewClient creates a new Gemini client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash"
	}

	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 1024
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client initialized", zap.String("model", cfg.ModelName))

	return &Client{
		client:          client,
		logger:          logger,
		modelName:       cfg.ModelName,
		temperature:     cfg.Temperature,
		maxOutputTokens: int32(cfg.MaxOutputTokens),
		timeout:         cfg.Timeout,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// Complete sends one evaluation and returns the raw answer text.
func (c *Client) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// The model handle is per call because the system instruction
	// travels with the payload.
	model := c.client.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(payload.System)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      genai.Ptr(c.temperature),
		MaxOutputTokens:  genai.Ptr(c.maxOutputTokens),
		ResponseMIMEType: "application/json",
	}

	parts := []genai.Part{genai.Text(payload.Text)}
	if payload.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: payload.Image.MIMEType, Data: payload.Image.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		classified := classify(err)
		c.logger.Error("Gemini API error",
			zap.String("kind", string(classified.Kind)),
			zap.Error(err))
		return "", classified
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("Empty response from Gemini")
		return "", llm.NewError(providerName, llm.KindEmptyResponse, "", nil)
	}

	if resp.UsageMetadata != nil {
		c.logger.Debug("Gemini completion received",
			zap.Int32("total_tokens", resp.UsageMetadata.TotalTokenCount))
	}

	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func classify(err error) *llm.Error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		e := llm.FromStatus(providerName, apiErr.Code, []byte(apiErr.Body), http.Header(apiErr.Header))
		if e.Message == "" {
			e.Message = apiErr.Message
		}
		e.Err = err
		return e
	}

	// Blocked prompts are a property of the input, not of the service.
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return llm.NewError(providerName, llm.KindBadRequest, blocked.Error(), err)
	}

	return llm.NewError(providerName, llm.ClassifyMessage(err.Error()), "", err)
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": providerName,
		"model":    c.modelName,
	}
}
