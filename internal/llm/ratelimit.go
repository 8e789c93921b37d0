package llm

import (
	"context"
	"time"

	"github.com/rishi-narain/ad-tester/internal/prompt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a provider with a client-side token bucket
// so a reverse-mode fan-out does not trip upstream throttling.
type RateLimitedProvider struct {
	name     string
	provider Provider
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewRateLimitedProvider allows requestsPerMinute calls per minute with
// a burst of the same size.
func NewRateLimitedProvider(provider Provider, requestsPerMinute int, logger *zap.Logger) *RateLimitedProvider {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	name, _ := provider.GetModelInfo()["provider"].(string)
	return &RateLimitedProvider{
		name:     name,
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
		logger:   logger,
	}
}

func (p *RateLimitedProvider) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		// The next token arrives after ctx's deadline.
		r := p.limiter.Reserve()
		delay := r.Delay()
		r.Cancel()

		rlErr := NewError(p.name, KindRateLimit, "client-side rate limit", err)
		rlErr.RetryAfter = delay
		p.logger.Warn("Client-side rate limit exceeds call deadline",
			zap.String("provider", p.name),
			zap.Duration("retry_after", delay))
		return "", rlErr
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		p.logger.Debug("Waited for client-side rate limit", zap.Duration("waited", waited))
	}

	return p.provider.Complete(ctx, payload)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) GetModelInfo() map[string]interface{} {
	return p.provider.GetModelInfo()
}
