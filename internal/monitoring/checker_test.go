package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-radar/internal/config"
	"github.com/sells-group/lead-radar/internal/model"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	collector := newTestCollector(&mockSource{})
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	checker := NewChecker(collector, NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(newTestCollector(&mockSource{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_Check(t *testing.T) {
	src := &mockSource{jobs: []model.BackgroundJob{
		{ID: "j1", Status: model.JobStatusError, ErrorMessage: "boom"},
	}}
	cfg := config.MonitoringConfig{LookbackWindowHours: 6}
	checker := NewChecker(newTestCollector(src), NewAlerter(cfg), cfg)

	snap, alerts, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, snap.LookbackHours)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertErrorJobs, alerts[0].Type)
}
