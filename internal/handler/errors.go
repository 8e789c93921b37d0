package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// defaultRetryAfter is sent on 429 when the provider gave no hint.
const defaultRetryAfter = 30

func evaluationStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrMaintenance), errors.Is(err, service.ErrEmptyCatalog):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrRateLimit):
		return http.StatusTooManyRequests
	}

	switch service.Category(err) {
	case service.CategoryInvalidInput:
		return http.StatusBadRequest
	case service.CategoryRetryLater:
		return http.StatusServiceUnavailable
	default:
		// configuration and upstream failures are the model side's fault
		return http.StatusBadGateway
	}
}

func (h *Handler) respondEvaluationError(c *gin.Context, err error) {
	status := evaluationStatus(err)
	category := service.Category(err)

	if status == http.StatusTooManyRequests {
		secs := defaultRetryAfter
		if d := llm.RetryAfter(err); d > 0 {
			secs = int(math.Ceil(d.Seconds()))
		}
		c.Header("Retry-After", strconv.Itoa(secs))
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Evaluation failed", zap.String("category", category), zap.Error(err))
	}

	title := "Failed to evaluate ad"
	switch {
	case errors.Is(err, service.ErrMaintenance):
		title = "Service is under maintenance"
	case category == service.CategoryInvalidInput:
		title = "Invalid request"
	}

	c.JSON(status, gin.H{
		"error":     title,
		"message":   err.Error(),
		"category":  category,
		"retryable": service.Retryable(err),
	})
}
