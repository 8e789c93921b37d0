package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rishi-narain/ad-tester/internal/prompt"

	"go.uber.org/zap"
)

// MultiProviderClient manages multiple LLM providers with fallback.
// Only KindUnavailable failures move on to the next provider; auth,
// rate-limit, bad-request and empty-response errors go straight back to
// the caller.
type MultiProviderClient struct {
	providers    []Provider
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// NewMultiProviderClient creates a new multi-provider client
func NewMultiProviderClient(providers []Provider, maxFailures int, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	if maxFailures <= 0 {
		maxFailures = 3
	}

	return &MultiProviderClient{
		providers:    providers,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  maxFailures,
	}, nil
}

func (c *MultiProviderClient) current() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentIndex
}

// recordFailure records a failure and switches the preferred provider
// once it reaches maxFailures consecutive failures.
func (c *MultiProviderClient) recordFailure(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount[providerIndex]++
	if c.failureCount[providerIndex] < c.maxFailures || providerIndex != c.currentIndex {
		return
	}

	c.currentIndex = (providerIndex + 1) % len(c.providers)
	c.failureCount[providerIndex] = 0
	c.logger.Warn("Provider reached max failures, switching",
		zap.Int("from_index", providerIndex),
		zap.Int("to_index", c.currentIndex),
		zap.Int("total_providers", len(c.providers)))
}

func (c *MultiProviderClient) resetFailureCount(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount[providerIndex] = 0
}

// Complete tries the preferred provider first, then the others in order
// while failures are KindUnavailable.
func (c *MultiProviderClient) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	start := c.current()

	var lastErr error
	for i := 0; i < len(c.providers); i++ {
		idx := (start + i) % len(c.providers)

		text, err := c.providers[idx].Complete(ctx, payload)
		if err == nil {
			c.resetFailureCount(idx)
			return text, nil
		}
		lastErr = err

		if !errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
			return "", err
		}

		c.logger.Warn("Provider unavailable, trying next",
			zap.Int("provider_index", idx),
			zap.Error(err))
		c.recordFailure(idx)
	}

	return "", lastErr
}

// Close closes all providers
func (c *MultiProviderClient) Close() error {
	var errs []error
	for i, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider", zap.Int("index", i), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetModelInfo returns information about the preferred provider
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := c.providers[c.currentIndex].GetModelInfo()
	info["provider_index"] = c.currentIndex
	info["total_providers"] = len(c.providers)
	info["failure_count"] = c.failureCount[c.currentIndex]
	return info
}

// GetProvidersInfo returns information about all providers
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := make([]map[string]interface{}, len(c.providers))
	for i, provider := range c.providers {
		providerInfo := provider.GetModelInfo()
		providerInfo["is_current"] = i == c.currentIndex
		providerInfo["failure_count"] = c.failureCount[i]
		info[i] = providerInfo
	}
	return info
}
