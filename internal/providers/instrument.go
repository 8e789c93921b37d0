package providers

import (
	"context"
	"errors"
	"time"

	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/metrics"
	"github.com/rishi-narain/ad-tester/internal/prompt"
)

type instrumented struct {
	llm.Provider
	name    string
	metrics *metrics.Metrics
}

// Instrument records latency and result kind of every call. A nil
// metrics returns p unchanged.
func Instrument(p llm.Provider, name string, m *metrics.Metrics) llm.Provider {
	if m == nil {
		return p
	}
	return &instrumented{Provider: p, name: name, metrics: m}
}

func (p *instrumented) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	p.metrics.IncInFlight()
	defer p.metrics.DecInFlight()

	start := time.Now()
	out, err := p.Provider.Complete(ctx, payload)
	p.metrics.ObserveModelCall(p.name, resultLabel(err), time.Since(start))
	return out, err
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := llm.KindOf(err); ok {
		return string(kind)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "error"
}
