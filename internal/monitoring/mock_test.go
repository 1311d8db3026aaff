package monitoring

import (
	"context"
	"time"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/store"
)

// mockSource implements Source for testing.
type mockSource struct {
	jobs    []model.BackgroundJob
	summary store.RunSummary
	since   time.Time
	listErr error
	sumErr  error
}

func (m *mockSource) ListJobs(_ context.Context, _ store.JobFilter) ([]model.BackgroundJob, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.jobs, nil
}

func (m *mockSource) SummarizeRuns(_ context.Context, since time.Time) (store.RunSummary, error) {
	m.since = since
	return m.summary, m.sumErr
}
