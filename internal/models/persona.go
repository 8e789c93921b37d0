package models

import "time"

// Persona describes an audience archetype and the text that conditions
// the model to evaluate from its point of view.
type Persona struct {
	ID           string    `json:"id" db:"id" yaml:"id"`
	Title        string    `json:"title" db:"title" yaml:"title"`
	Description  string    `json:"description" db:"description" yaml:"description"`
	SystemPrompt string    `json:"systemPrompt" db:"system_prompt" yaml:"system_prompt"`
	Position     int       `json:"-" db:"position" yaml:"-"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty" db:"updated_at" yaml:"-"`
}

// PersonaSummary is the public listing shape (no conditioning text)
type PersonaSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PersonaInput for admin create/update
type PersonaInput struct {
	ID           string `json:"id"`
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description" binding:"required"`
	SystemPrompt string `json:"systemPrompt" binding:"required"`
}
