package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/store"
)

// staleAfter is how far past next_run an active job may be before the
// scheduler is considered stalled.
const staleAfter = time.Hour

// MetricsSnapshot holds a point-in-time view of scheduler and pipeline health.
type MetricsSnapshot struct {
	// Job counts by status.
	JobsActive  int `json:"jobs_active"`
	JobsPaused  int `json:"jobs_paused"`
	JobsStopped int `json:"jobs_stopped"`
	JobsError   int `json:"jobs_error"`
	JobsStale   int `json:"jobs_stale"`

	// ErrorJobs lists the failing jobs with their last message.
	ErrorJobs []model.Failure `json:"error_jobs,omitempty"`

	// Pipeline runs within the lookback window.
	Runs           int     `json:"runs"`
	DegradedRuns   int     `json:"degraded_runs"`
	DegradedRate   float64 `json:"degraded_rate"`
	BudgetExceeded int     `json:"budget_exceeded"`
	LeadsAccepted  int     `json:"leads_accepted"`
	LeadsInserted  int     `json:"leads_inserted"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Source is the store subset read by the collector.
type Source interface {
	ListJobs(ctx context.Context, filter store.JobFilter) ([]model.BackgroundJob, error)
	SummarizeRuns(ctx context.Context, since time.Time) (store.RunSummary, error)
}

// Collector gathers metrics from the store.
type Collector struct {
	src Source
	now func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(src Source) *Collector {
	return &Collector{src: src, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	jobs, err := c.src.ListJobs(ctx, store.JobFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list jobs")
	}
	for _, j := range jobs {
		switch j.Status {
		case model.JobStatusActive:
			snap.JobsActive++
			if now.Sub(j.NextRun) > staleAfter {
				snap.JobsStale++
			}
		case model.JobStatusPaused:
			snap.JobsPaused++
		case model.JobStatusStopped:
			snap.JobsStopped++
		case model.JobStatusError:
			snap.JobsError++
			snap.ErrorJobs = append(snap.ErrorJobs, model.Failure{ID: j.ID, Error: j.ErrorMessage})
		}
	}

	sum, err := c.src.SummarizeRuns(ctx, now.Add(-time.Duration(lookbackHours)*time.Hour))
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: summarize runs")
	}
	snap.Runs = sum.Runs
	snap.DegradedRuns = sum.DegradedRuns
	snap.DegradedRate = sum.DegradedRate()
	snap.BudgetExceeded = sum.BudgetExceeded
	snap.LeadsAccepted = sum.Accepted
	snap.LeadsInserted = sum.Inserted

	return snap, nil
}
