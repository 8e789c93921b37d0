package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for evaluations and model calls.
type Metrics struct {
	evaluations     *prometheus.CounterVec
	evalDuration    *prometheus.HistogramVec
	modelCalls      *prometheus.CounterVec
	modelDuration   *prometheus.HistogramVec
	normalizeRepair *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors with reg and panics on conflicts other
// than an identical collector already being registered.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adtester",
			Name:      "evaluations_total",
			Help:      "Evaluations by mode and outcome category.",
		}, []string{"mode", "category"}),
		evalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adtester",
			Name:      "evaluation_duration_seconds",
			Help:      "End-to-end evaluation latency.",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"mode"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adtester",
			Subsystem: "model",
			Name:      "calls_total",
			Help:      "Model calls by provider and result kind.",
		}, []string{"provider", "result"}),
		modelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adtester",
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Latency of a single model call.",
			Buckets:   []float64{.25, .5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"provider"}),
		normalizeRepair: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adtester",
			Subsystem: "normalize",
			Name:      "recoveries_total",
			Help:      "Model answers that needed a recovery step to parse.",
		}, []string{"step"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "adtester",
			Subsystem: "model",
			Name:      "calls_in_flight",
			Help:      "Model calls currently waiting on a provider.",
		}),
	}

	m.evaluations = register(reg, m.evaluations)
	m.evalDuration = register(reg, m.evalDuration)
	m.modelCalls = register(reg, m.modelCalls)
	m.modelDuration = register(reg, m.modelDuration)
	m.normalizeRepair = register(reg, m.normalizeRepair)
	m.inFlight = register(reg, m.inFlight)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveEvaluation records one finished evaluation.
func (m *Metrics) ObserveEvaluation(mode, category string, d time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(mode, category).Inc()
	m.evalDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveModelCall records one provider call.
func (m *Metrics) ObserveModelCall(provider, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(provider, result).Inc()
	m.modelDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// IncRecovery counts a normalizer recovery step ("fence", "braces", "repair").
func (m *Metrics) IncRecovery(step string) {
	if m == nil {
		return
	}
	m.normalizeRepair.WithLabelValues(step).Inc()
}

func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
