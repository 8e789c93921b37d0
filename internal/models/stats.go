package models

import "time"

// PersonaCount is one row of the evaluations-by-persona breakdown
type PersonaCount struct {
	Persona string `json:"persona" db:"persona"`
	Count   int    `json:"count" db:"count"`
}

// Activity is a recent-activity feed item
type Activity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}

// Stats is the admin dashboard payload
type Stats struct {
	TotalEvaluations     int            `json:"totalEvaluations"`
	TotalUsers           int            `json:"totalUsers"`
	AverageScore         float64        `json:"averageScore"`
	EvaluationsToday     int            `json:"evaluationsToday"`
	EvaluationsThisWeek  int            `json:"evaluationsThisWeek"`
	TopPersona           string         `json:"topPersona"`
	EvaluationsByPersona []PersonaCount `json:"evaluationsByPersona"`
	RecentActivity       []Activity     `json:"recentActivity"`
}
