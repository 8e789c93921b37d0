package models

import "time"

// FeedbackType of a feedback entry
type FeedbackType string

const (
	FeedbackThumbs  FeedbackType = "thumbs"
	FeedbackWritten FeedbackType = "written"
)

// FeedbackData carries either a thumbs vote or written feedback.
type FeedbackData struct {
	Category string `json:"category,omitempty"`
	Item     string `json:"item,omitempty"`
	Vote     string `json:"vote,omitempty"` // "up" or "down"
	Feedback string `json:"feedback,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Feedback is a user reaction to a result or insights page
type Feedback struct {
	ID           string       `json:"id"`
	Type         FeedbackType `json:"type"`
	Timestamp    time.Time    `json:"timestamp"`
	Page         string       `json:"page"` // "results" or "insights"
	Data         FeedbackData `json:"data"`
	EvaluationID string       `json:"evaluationId,omitempty"`
	PersonaID    string       `json:"personaId,omitempty"`
}

// FeedbackRequest for POST /api/feedback
type FeedbackRequest struct {
	Type         FeedbackType  `json:"type" binding:"required,oneof=thumbs written"`
	Page         string        `json:"page" binding:"required,oneof=results insights"`
	Data         *FeedbackData `json:"data" binding:"required"`
	EvaluationID string        `json:"evaluationId"`
	PersonaID    string        `json:"personaId"`
}

// FeedbackFilter narrows admin listing. Empty fields match everything.
type FeedbackFilter struct {
	Page string
	Type FeedbackType
}
