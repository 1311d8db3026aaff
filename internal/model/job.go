package model

import "time"

// JobStatus is the scheduler state of a background job.
type JobStatus string

// Job statuses. The scheduler only writes active and error.
const (
	JobStatusActive  JobStatus = "active"
	JobStatusPaused  JobStatus = "paused"
	JobStatusStopped JobStatus = "stopped"
	JobStatusError   JobStatus = "error"
)

// JobType identifies what a background job does.
type JobType string

// JobTypeMonitorProduct runs the lead pipeline for one product on an interval.
const JobTypeMonitorProduct JobType = "monitor_product"

// BackgroundJob is a recurring per-product pipeline configuration.
type BackgroundJob struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	ProductID       string     `json:"product_id" db:"product_id"`
	Type            JobType    `json:"job_type" db:"job_type"`
	Status          JobStatus  `json:"status" db:"status"`
	IntervalMinutes int        `json:"interval_minutes" db:"interval_minutes"`
	LastRun         *time.Time `json:"last_run,omitempty" db:"last_run"`
	NextRun         time.Time  `json:"next_run" db:"next_run"`
	ErrorMessage    string     `json:"error_message,omitempty" db:"error_message"`
	RunCount        int        `json:"run_count" db:"run_count"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Interval returns the job interval as a duration.
func (j BackgroundJob) Interval() time.Duration {
	return time.Duration(j.IntervalMinutes) * time.Minute
}

// Due reports whether the scheduler should pick the job up at now.
// Paused and stopped jobs are never due; error jobs are retried.
func (j BackgroundJob) Due(now time.Time) bool {
	if j.Status != JobStatusActive && j.Status != JobStatusError {
		return false
	}
	return !j.NextRun.After(now)
}

// JobRunUpdate is the bookkeeping the scheduler writes after an execution attempt.
type JobRunUpdate struct {
	Status       JobStatus
	LastRun      time.Time  // zero leaves last_run unchanged
	NextRun      *time.Time // nil leaves next_run unchanged
	ErrorMessage string
	IncrementRun bool
}

// Credential holds a user's OAuth tokens for the content API.
type Credential struct {
	UserID       string    `json:"user_id" db:"user_id"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
