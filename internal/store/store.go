// Package store persists products, jobs, leads, credentials and run
// summaries in Postgres or SQLite.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-radar/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = eris.New("store: not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	UserID    string          `json:"user_id,omitempty"`
	ProductID string          `json:"product_id,omitempty"`
	Status    model.JobStatus `json:"status,omitempty"`
	Limit     int             `json:"limit,omitempty"`
}

// RunSummary aggregates pipeline runs over a window.
type RunSummary struct {
	Runs           int `json:"runs"`
	DegradedRuns   int `json:"degraded_runs"`
	BudgetExceeded int `json:"budget_exceeded"`
	Accepted       int `json:"accepted"`
	Inserted       int `json:"inserted"`
}

// DegradedRate returns the share of runs whose filtering was degraded.
func (s RunSummary) DegradedRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.DegradedRuns) / float64(s.Runs)
}

// ProductStore reads and writes product profiles.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *model.ProductProfile) error
	GetProduct(ctx context.Context, id string) (*model.ProductProfile, error)
	ListProducts(ctx context.Context, userID string) ([]model.ProductProfile, error)
}

// JobStore reads and writes background jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.BackgroundJob) error
	GetJob(ctx context.Context, id string) (*model.BackgroundJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.BackgroundJob, error)
	// DueJobs returns active and error jobs whose next_run is at or before now.
	DueJobs(ctx context.Context, now time.Time) ([]model.BackgroundJob, error)
	RecordJobRun(ctx context.Context, id string, u model.JobRunUpdate) error
	SetJobStatus(ctx context.Context, id string, status model.JobStatus) error
}

// LeadStore reads and writes leads.
type LeadStore interface {
	LeadExists(ctx context.Context, userID, permalink string) (bool, error)
	// InsertLead returns false without error when the (user, permalink)
	// pair already exists.
	InsertLead(ctx context.Context, lead *model.Lead) (bool, error)
	ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error)
}

// CredentialStore reads and writes per-user OAuth credentials.
type CredentialStore interface {
	// GetCredential returns nil, nil when the user has no credential.
	GetCredential(ctx context.Context, userID string) (*model.Credential, error)
	SaveCredential(ctx context.Context, cred model.Credential) error
}

// RunStore records pipeline run summaries.
type RunStore interface {
	SaveRun(ctx context.Context, rec *model.RunRecord) error
	SummarizeRuns(ctx context.Context, since time.Time) (RunSummary, error)
}

// Store is the full persistence interface.
type Store interface {
	ProductStore
	JobStore
	LeadStore
	CredentialStore
	RunStore

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store for driver ("postgres" or "sqlite").
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "postgres", "":
		return NewPostgres(ctx, dsn, poolCfg)
	case "sqlite":
		if dsn == "" {
			dsn = "lead-radar.db"
		}
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// prepareJob fills defaults on a job about to be created.
func prepareJob(job *model.BackgroundJob, now time.Time) error {
	if job.ProductID == "" {
		return eris.New("store: job product_id is required")
	}
	if job.IntervalMinutes <= 0 {
		return eris.New("store: job interval_minutes must be > 0")
	}
	if job.Type == "" {
		job.Type = model.JobTypeMonitorProduct
	}
	if job.Status == "" {
		job.Status = model.JobStatusActive
	}
	if job.NextRun.IsZero() {
		job.NextRun = now
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}
