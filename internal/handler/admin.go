package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rishi-narain/ad-tester/internal/middleware"
	"github.com/rishi-narain/ad-tester/internal/models"
	"github.com/rishi-narain/ad-tester/internal/persona"
	"github.com/rishi-narain/ad-tester/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var personaIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// AdminLogin exchanges the admin token for a JWT and sets the admin cookie.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, expiresAt, err := h.auth.Login(req.Token)
	if err != nil {
		if errors.Is(err, service.ErrAdminDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin access is not configured"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid admin token"})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AdminTokenCookie, req.Token, int(time.Until(expiresAt).Seconds()), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expiresAt,
	})
}

// AdminListPersonas returns full persona records including system prompts
func (h *Handler) AdminListPersonas(c *gin.Context) {
	personas, err := h.personas.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list personas", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch personas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"personas": personas})
}

func (h *Handler) GetPersona(c *gin.Context) {
	p, err := h.personas.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondPersonaError(c, err, "Failed to fetch persona")
		return
	}
	c.JSON(http.StatusOK, gin.H{"persona": p})
}

func (h *Handler) CreatePersona(c *gin.Context) {
	var input models.PersonaInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "message": err.Error()})
		return
	}
	if !personaIDPattern.MatchString(input.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Persona ID must be lowercase words separated by hyphens"})
		return
	}

	p := &models.Persona{
		ID:           input.ID,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		SystemPrompt: input.SystemPrompt,
	}
	if err := h.personas.Create(c.Request.Context(), p); err != nil {
		h.respondPersonaError(c, err, "Failed to create persona")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"persona": p})
}

func (h *Handler) UpdatePersona(c *gin.Context) {
	var input models.PersonaInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "message": err.Error()})
		return
	}

	p := &models.Persona{
		ID:           c.Param("id"),
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		SystemPrompt: input.SystemPrompt,
	}
	if err := h.personas.Update(c.Request.Context(), p); err != nil {
		h.respondPersonaError(c, err, "Failed to update persona")
		return
	}

	c.JSON(http.StatusOK, gin.H{"persona": p})
}

func (h *Handler) DeletePersona(c *gin.Context) {
	if err := h.personas.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondPersonaError(c, err, "Failed to delete persona")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetPersonas restores the default catalog
func (h *Handler) ResetPersonas(c *gin.Context) {
	if err := h.personas.Reset(c.Request.Context()); err != nil {
		h.respondPersonaError(c, err, "Failed to reset personas")
		return
	}
	h.logger.Info("Personas reset to defaults")
	h.AdminListPersonas(c)
}

func (h *Handler) respondPersonaError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, persona.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Persona not found"})
	case errors.Is(err, persona.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Persona with this ID already exists"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// ListFeedback handles GET /api/admin/feedback?page=&type=
func (h *Handler) ListFeedback(c *gin.Context) {
	filter := models.FeedbackFilter{
		Page: c.Query("page"),
		Type: models.FeedbackType(c.Query("type")),
	}

	feedback, err := h.feedback.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to fetch feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": feedback})
}

// GetStats returns dashboard statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.evaluations.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.evaluations.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// GetSettings returns settings with the provider key masked
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.View())
}

// UpdateSettings applies a partial update and persists it to the config file
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req models.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for i, t := range req.AllowedFileTypes {
		req.AllowedFileTypes[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
	}

	settings, err := h.settings.Update(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

// ExportCSV exports tracked evaluations to CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	records, err := h.evaluations.ListEvaluations(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export CSV", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=evaluations.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"id", "timestamp", "persona_id", "persona_title", "resonance_score", "content_type", "reverse_mode", "user_id"})

	// Write data
	for _, rec := range records {
		userID := ""
		if rec.UserID != nil {
			userID = *rec.UserID
		}
		writer.Write([]string{
			rec.ID,
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.PersonaID,
			rec.PersonaTitle,
			strconv.Itoa(rec.ResonanceScore),
			string(rec.ContentType),
			strconv.FormatBool(rec.ReverseMode),
			userID,
		})
	}
}

// ExportJSON exports tracked evaluations to JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	records, err := h.evaluations.ListEvaluations(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export JSON", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=evaluations.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		h.logger.Error("Failed to write JSON export", zap.Error(err))
	}
}
