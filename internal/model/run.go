package model

import "time"

// GroupStats summarizes one keyword group of a pipeline run.
type GroupStats struct {
	Group          TermGroup `json:"group"`
	Terms          int       `json:"terms"`
	Raw            int       `json:"raw"`
	Unique         int       `json:"unique"`
	Accepted       int       `json:"accepted"`
	SearchFailures int       `json:"search_failures"`
	BatchFailures  int       `json:"batch_failures"`
	Degraded       bool      `json:"degraded"`
	DurationMs     int64     `json:"duration_ms"`
}

// RunRecord is the persisted summary of one pipeline run.
type RunRecord struct {
	ID             string       `json:"id"`
	JobID          string       `json:"job_id,omitempty"`
	UserID         string       `json:"user_id"`
	ProductID      string       `json:"product_id"`
	StartedAt      time.Time    `json:"started_at"`
	DurationMs     int64        `json:"duration_ms"`
	TermSource     string       `json:"term_source"`
	CredentialTier string       `json:"credential_tier"`
	Posts          int          `json:"posts"`
	Accepted       int          `json:"accepted"`
	Inserted       int          `json:"inserted"`
	Degraded       bool         `json:"degraded"`
	BudgetExceeded bool         `json:"budget_exceeded"`
	Groups         []GroupStats `json:"groups"`
}
