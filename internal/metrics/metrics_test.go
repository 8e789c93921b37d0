package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMustNew_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := MustNew(reg)
	b := MustNew(reg)

	a.ObserveModelCall("openai", "ok", time.Second)
	b.ObserveModelCall("openai", "ok", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.modelCalls.WithLabelValues("openai", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvaluation("single", "ok", time.Second)
		m.ObserveModelCall("gemini", "ok", time.Second)
		m.IncRecovery("fence")
		m.IncInFlight()
		m.DecInFlight()
	})
}

func TestObserveEvaluation(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())
	m.ObserveEvaluation("reverse", "retry_later", 3*time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("reverse", "retry_later")))
}
