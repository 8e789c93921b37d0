package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/metrics"
	"github.com/rishi-narain/ad-tester/internal/models"
	"github.com/rishi-narain/ad-tester/internal/normalize"
	"github.com/rishi-narain/ad-tester/internal/persona"
	"github.com/rishi-narain/ad-tester/internal/prompt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const trackTimeout = 5 * time.Second

// SettingsSource returns the current runtime settings.
type SettingsSource interface {
	Settings() models.Settings
}

// Tracker records finished evaluations for analytics.
type Tracker interface {
	TrackEvaluation(ctx context.Context, rec *models.EvaluationRecord) error
}

// EvaluatorConfig tunes the orchestrator.
type EvaluatorConfig struct {
	// RequestTimeout bounds each model call. Zero means no extra bound.
	RequestTimeout time.Duration
	// MaxConcurrency caps in-flight model calls in reverse mode. Zero
	// means one goroutine per persona.
	MaxConcurrency int
	IncludeQuote   bool
	CacheSize      int
	CacheTTL       time.Duration
}

// Evaluator runs persona evaluations against a model provider.
type Evaluator struct {
	catalog  persona.Catalog
	provider llm.Provider
	settings SettingsSource
	tracker  Tracker
	metrics  *metrics.Metrics
	cache    *resultCache
	cfg      EvaluatorConfig
	logger   *zap.Logger
}

// NewEvaluator wires the orchestrator. tracker and m may be nil.
func NewEvaluator(catalog persona.Catalog, provider llm.Provider, settings SettingsSource, tracker Tracker, m *metrics.Metrics, cfg EvaluatorConfig, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		catalog:  catalog,
		provider: provider,
		settings: settings,
		tracker:  tracker,
		metrics:  m,
		cache:    newResultCache(cfg.CacheSize, cfg.CacheTTL),
		cfg:      cfg,
		logger:   logger,
	}
}

// validated is a request that passed validation, bound to one catalog
// snapshot.
type validated struct {
	req      models.EvaluationRequest
	image    *prompt.Image
	snapshot *persona.Snapshot
	persona  models.Persona
}

// Evaluate scores the ad for one persona, or for every persona in
// reverse mode.
func (e *Evaluator) Evaluate(ctx context.Context, req models.EvaluationRequest) (outcome *models.EvaluationOutcome, err error) {
	start := time.Now()
	mode := "single"
	if req.ReverseMode {
		mode = "reverse"
	}
	defer func() {
		e.metrics.ObserveEvaluation(mode, Category(err), time.Since(start))
	}()

	settings := e.settings.Settings()

	v, err := e.validate(ctx, req, settings)
	if err != nil {
		return nil, err
	}

	if req.ReverseMode {
		rev, err := e.evaluateAll(ctx, v)
		if err != nil {
			e.logger.Error("Reverse evaluation failed", zap.Int("personas", v.snapshot.Len()), zap.Error(err))
			return nil, err
		}
		if settings.EnableAnalytics {
			rev.BestMatch.EvaluationID = e.track(ctx, v, rev.BestMatch)
		}
		e.logger.Info("Reverse evaluation completed",
			zap.Int("personas", len(rev.AllResults)),
			zap.String("best_match", rev.BestMatch.PersonaID),
			zap.Int("score", rev.BestMatch.ResonanceScore),
			zap.Duration("took", time.Since(start)))
		return &models.EvaluationOutcome{Reverse: rev}, nil
	}

	res, err := e.evaluateOne(ctx, v.persona, v)
	if err != nil {
		e.logger.Error("Evaluation failed", zap.String("persona_id", v.persona.ID), zap.Error(err))
		return nil, err
	}
	if settings.EnableAnalytics {
		res.EvaluationID = e.track(ctx, v, res)
	}
	e.logger.Info("Evaluation completed",
		zap.String("persona_id", res.PersonaID),
		zap.Int("score", res.ResonanceScore),
		zap.Duration("took", time.Since(start)))
	return &models.EvaluationOutcome{Single: &res}, nil
}

func (e *Evaluator) validate(ctx context.Context, req models.EvaluationRequest, settings models.Settings) (*validated, error) {
	if settings.MaintenanceMode {
		return nil, ErrMaintenance
	}

	if strings.TrimSpace(req.Content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "is required"}
	}

	v := &validated{req: req}
	switch req.ContentType {
	case "", models.ContentText:
		v.req.ContentType = models.ContentText
	case models.ContentImage:
		img, err := prompt.ParseDataURI(req.Content)
		if err != nil {
			return nil, &ValidationError{Field: "content", Reason: "is not a valid image data URI", Err: err}
		}
		if len(settings.AllowedFileTypes) > 0 && !slices.Contains(settings.AllowedFileTypes, img.Extension()) {
			return nil, &ValidationError{Field: "content", Reason: fmt.Sprintf("image type %q is not allowed", img.Extension())}
		}
		if limit := settings.MaxFileSizeMB; limit > 0 && len(img.Data) > limit<<20 {
			return nil, &ValidationError{Field: "content", Reason: fmt.Sprintf("image exceeds %d MB", limit)}
		}
		v.image = img
	default:
		return nil, &ValidationError{Field: "contentType", Reason: fmt.Sprintf("must be %q or %q", models.ContentText, models.ContentImage)}
	}

	snapshot, err := e.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load personas: %w", err)
	}
	v.snapshot = snapshot

	if req.ReverseMode {
		if snapshot.Len() == 0 {
			return nil, ErrEmptyCatalog
		}
		return v, nil
	}

	if req.PersonaID == "" {
		return nil, &ValidationError{Field: "personaId", Reason: "is required"}
	}
	p, ok := snapshot.Get(req.PersonaID)
	if !ok {
		return nil, &ValidationError{Field: "personaId", Reason: fmt.Sprintf("%q does not exist", req.PersonaID), Err: persona.ErrNotFound}
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return nil, &ValidationError{Field: "personaId", Reason: fmt.Sprintf("%q has no system prompt", req.PersonaID)}
	}
	v.persona = p
	return v, nil
}

// evaluateAll fans out one call per persona. Results keep catalog order;
// the first failure cancels the rest and fails the request.
func (e *Evaluator) evaluateAll(ctx context.Context, v *validated) (*models.ReverseEvaluationResult, error) {
	personas := v.snapshot.All()
	results := make([]models.EvaluationResult, len(personas))

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.MaxConcurrency > 0 {
		g.SetLimit(e.cfg.MaxConcurrency)
	}

	for i, p := range personas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.evaluateOne(gctx, p, v)
			if err != nil {
				return fmt.Errorf("persona %s: %w", p.ID, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.ReverseEvaluationResult{
		BestMatch:  results[BestMatch(results)],
		AllResults: results,
	}, nil
}

// BestMatch returns the index of the highest score. Ties go to the
// earliest entry. results must not be empty.
func BestMatch(results []models.EvaluationResult) int {
	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].ResonanceScore > results[best].ResonanceScore {
			best = i
		}
	}
	return best
}

func (e *Evaluator) evaluateOne(ctx context.Context, p models.Persona, v *validated) (models.EvaluationResult, error) {
	key := cacheKey(p, v.req.Content, v.req.ContentType, e.cfg.IncludeQuote)
	if res, ok := e.cache.get(key); ok {
		e.logger.Debug("Evaluation cache hit", zap.String("persona_id", p.ID))
		return res, nil
	}

	payload := prompt.Build(p, v.req.Content, v.req.ContentType, v.image, prompt.Options{IncludeQuote: e.cfg.IncludeQuote})

	callCtx := ctx
	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}

	raw, err := e.provider.Complete(callCtx, payload)
	if err != nil {
		return models.EvaluationResult{}, fmt.Errorf("model call failed: %w", err)
	}

	res, trace, err := normalize.Inspect(raw, normalize.Options{RequireQuote: e.cfg.IncludeQuote})
	if err != nil {
		e.logger.Warn("Unusable model response",
			zap.String("persona_id", p.ID),
			zap.String("response", normalize.Preview(raw, 200)),
			zap.Error(err))
		return models.EvaluationResult{}, err
	}
	if trace.Step != normalize.StepDirect {
		e.metrics.IncRecovery(trace.Step)
		e.logger.Debug("Recovered model response", zap.String("persona_id", p.ID), zap.String("step", trace.Step))
	}
	if trace.Clamped {
		e.logger.Warn("Model score out of range, clamped",
			zap.String("persona_id", p.ID),
			zap.Float64("raw_score", trace.RawScore),
			zap.Int("score", res.ResonanceScore))
	}

	res.PersonaID = p.ID
	res.PersonaTitle = p.Title
	e.cache.add(key, res)
	return res, nil
}

// track records the evaluation and returns its id, or "" when tracking
// failed. Tracking never fails the evaluation.
func (e *Evaluator) track(ctx context.Context, v *validated, res models.EvaluationResult) string {
	if e.tracker == nil {
		return ""
	}

	rec := &models.EvaluationRecord{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		PersonaID:      res.PersonaID,
		PersonaTitle:   res.PersonaTitle,
		ResonanceScore: res.ResonanceScore,
		ContentType:    v.req.ContentType,
		ReverseMode:    v.req.ReverseMode,
	}
	if v.req.UserID != "" {
		userID := v.req.UserID
		rec.UserID = &userID
	}

	trackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackTimeout)
	defer cancel()

	if err := e.tracker.TrackEvaluation(trackCtx, rec); err != nil {
		e.logger.Warn("Failed to track evaluation", zap.String("persona_id", res.PersonaID), zap.Error(err))
		return ""
	}
	return rec.ID
}
