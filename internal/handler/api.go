package handler

import (
	"context"
	"net/http"

	"github.com/rishi-narain/ad-tester/internal/config"
	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/middleware"
	"github.com/rishi-narain/ad-tester/internal/models"
	"github.com/rishi-narain/ad-tester/internal/persona"
	"github.com/rishi-narain/ad-tester/internal/repository"
	"github.com/rishi-narain/ad-tester/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Evaluator runs an evaluation request.
type Evaluator interface {
	Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationOutcome, error)
}

// Handler handles HTTP requests
type Handler struct {
	evaluator   Evaluator
	personas    persona.Store
	feedback    repository.FeedbackRepository
	evaluations repository.EvaluationRepository
	settings    *config.SettingsStore
	auth        *service.AdminAuth
	provider    llm.Provider
	logger      *zap.Logger
}

// Deps groups the Handler collaborators.
type Deps struct {
	Evaluator   Evaluator
	Personas    persona.Store
	Feedback    repository.FeedbackRepository
	Evaluations repository.EvaluationRepository
	Settings    *config.SettingsStore
	Auth        *service.AdminAuth
	Provider    llm.Provider
}

// NewHandler creates a new API handler
func NewHandler(d Deps, logger *zap.Logger) *Handler {
	return &Handler{
		evaluator:   d.Evaluator,
		personas:    d.Personas,
		feedback:    d.Feedback,
		evaluations: d.Evaluations,
		settings:    d.Settings,
		auth:        d.Auth,
		provider:    d.Provider,
		logger:      logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/evaluate", h.Evaluate)
		api.GET("/personas", h.ListPersonas)
		api.POST("/feedback", h.SubmitFeedback)
		api.POST("/admin/login", h.AdminLogin)
	}

	admin := api.Group("/admin", middleware.AdminMiddleware(h.auth, h.logger))
	{
		admin.GET("/personas", h.AdminListPersonas)
		admin.POST("/personas", h.CreatePersona)
		admin.POST("/personas/reset", h.ResetPersonas)
		admin.GET("/personas/:id", h.GetPersona)
		admin.PUT("/personas/:id", h.UpdatePersona)
		admin.DELETE("/personas/:id", h.DeletePersona)

		admin.GET("/feedback", h.ListFeedback)
		admin.GET("/stats", h.GetStats)
		admin.GET("/users", h.ListUsers)

		admin.GET("/settings", h.GetSettings)
		admin.PUT("/settings", h.UpdateSettings)

		admin.GET("/export/csv", h.ExportCSV)
		admin.GET("/export/json", h.ExportJSON)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// Evaluate handles POST /api/evaluate
func (h *Handler) Evaluate(c *gin.Context) {
	var req models.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Missing required fields",
			"message":   err.Error(),
			"category":  service.CategoryInvalidInput,
			"retryable": false,
		})
		return
	}

	outcome, err := h.evaluator.Evaluate(c.Request.Context(), req)
	if err != nil {
		h.respondEvaluationError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// ListPersonas returns the public catalog without conditioning text
func (h *Handler) ListPersonas(c *gin.Context) {
	snap, err := h.personas.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load personas", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch personas"})
		return
	}

	all := snap.All()
	summaries := make([]models.PersonaSummary, 0, len(all))
	for _, p := range all {
		summaries = append(summaries, models.PersonaSummary{ID: p.ID, Title: p.Title, Description: p.Description})
	}

	c.JSON(http.StatusOK, gin.H{"personas": summaries})
}

// SubmitFeedback handles POST /api/feedback
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "message": err.Error()})
		return
	}

	fb := &models.Feedback{
		Type:         req.Type,
		Page:         req.Page,
		Data:         *req.Data,
		EvaluationID: req.EvaluationID,
		PersonaID:    req.PersonaID,
	}
	if err := h.feedback.Create(c.Request.Context(), fb); err != nil {
		h.logger.Error("Failed to store feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store feedback"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "feedback": fb})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "ad-tester",
		"version": "1.0.0",
	}
	if h.provider != nil {
		resp["model"] = h.provider.GetModelInfo()
	}
	if h.settings != nil && h.settings.Settings().MaintenanceMode {
		resp["status"] = "maintenance"
	}
	c.JSON(http.StatusOK, resp)
}
