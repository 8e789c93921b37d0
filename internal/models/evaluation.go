package models

import (
	"encoding/json"
	"time"
)

// ContentType discriminates how EvaluationRequest.Content is interpreted
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// EvaluationRequest is a single evaluate call. PersonaID is ignored when
// ReverseMode is set.
type EvaluationRequest struct {
	PersonaID   string      `json:"personaId"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"contentType"`
	ReverseMode bool        `json:"reverseMode"`
	UserID      string      `json:"userId,omitempty"`
}

// UnmarshalJSON accepts the legacy "persona" field as an alias for personaId.
func (r *EvaluationRequest) UnmarshalJSON(data []byte) error {
	type plain EvaluationRequest
	var aux struct {
		plain
		Persona string `json:"persona"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = EvaluationRequest(aux.plain)
	if r.PersonaID == "" {
		r.PersonaID = aux.Persona
	}
	return nil
}

// EvaluationResult is the normalized model verdict for one persona.
type EvaluationResult struct {
	EvaluationID   string   `json:"evaluationId,omitempty"`
	ResonanceScore int      `json:"resonanceScore"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	SuggestedFixes []string `json:"suggestedFixes"`
	Quote          string   `json:"quote,omitempty"`
	PersonaID      string   `json:"personaId"`
	PersonaTitle   string   `json:"personaTitle"`
}

// ReverseEvaluationResult aggregates one result per persona. AllResults
// is in catalog order.
type ReverseEvaluationResult struct {
	BestMatch  EvaluationResult   `json:"bestMatch"`
	AllResults []EvaluationResult `json:"allResults"`
}

// EvaluationOutcome holds exactly one of Single or Reverse.
type EvaluationOutcome struct {
	Single  *EvaluationResult
	Reverse *ReverseEvaluationResult
}

// MarshalJSON writes a single result flat and a reverse result with
// reverseMode=true so clients can tell them apart.
func (o EvaluationOutcome) MarshalJSON() ([]byte, error) {
	if o.Reverse != nil {
		return json.Marshal(struct {
			ReverseMode bool `json:"reverseMode"`
			*ReverseEvaluationResult
		}{true, o.Reverse})
	}
	return json.Marshal(o.Single)
}

// EvaluationRecord is a tracked evaluation row used for analytics.
type EvaluationRecord struct {
	ID             string      `json:"id" db:"id"`
	Timestamp      time.Time   `json:"timestamp" db:"created_at"`
	PersonaID      string      `json:"personaId" db:"persona_id"`
	PersonaTitle   string      `json:"personaTitle" db:"persona_title"`
	ResonanceScore int         `json:"resonanceScore" db:"resonance_score"`
	ContentType    ContentType `json:"contentType" db:"content_type"`
	ReverseMode    bool        `json:"reverseMode" db:"reverse_mode"`
	UserID         *string     `json:"userId,omitempty" db:"user_id"`
}

// User is an anonymous client identity seen by analytics
type User struct {
	ID               string    `json:"id" db:"id"`
	FirstSeen        time.Time `json:"firstSeen" db:"first_seen"`
	LastActive       time.Time `json:"lastActive" db:"last_active"`
	TotalEvaluations int       `json:"totalEvaluations" db:"total_evaluations"`
}
