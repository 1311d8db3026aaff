package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertErrorJobs    AlertType = "error_jobs"
	AlertDegradedRate AlertType = "degraded_rate"
	AlertStaleJobs    AlertType = "stale_jobs"
)

// minRunsForRate avoids alerting on a single degraded run.
const minRunsForRate = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	errThreshold := a.cfg.ErrorJobsThreshold
	if errThreshold <= 0 {
		errThreshold = 1
	}
	if snap.JobsError >= errThreshold {
		ids := make([]string, 0, len(snap.ErrorJobs))
		for _, f := range snap.ErrorJobs {
			ids = append(ids, f.ID)
		}
		alerts = append(alerts, Alert{
			Type:     AlertErrorJobs,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d background job(s) in error state (threshold %d)",
				snap.JobsError, errThreshold,
			),
			Details: map[string]any{
				"error_jobs": snap.JobsError,
				"job_ids":    ids,
			},
			Timestamp: now,
		})
	}

	if a.cfg.DegradedRateThreshold > 0 && snap.Runs >= minRunsForRate && snap.DegradedRate > a.cfg.DegradedRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDegradedRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"AI filtering degraded in %.1f%% of runs, threshold %.1f%% (%d of %d in last %dh)",
				snap.DegradedRate*100, a.cfg.DegradedRateThreshold*100,
				snap.DegradedRuns, snap.Runs, snap.LookbackHours,
			),
			Details: map[string]any{
				"degraded_rate": snap.DegradedRate,
				"threshold":     a.cfg.DegradedRateThreshold,
				"degraded_runs": snap.DegradedRuns,
				"runs":          snap.Runs,
			},
			Timestamp: now,
		})
	}

	if snap.JobsStale > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertStaleJobs,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d active job(s) are more than %s past next_run; is the scheduler running?",
				snap.JobsStale, staleAfter,
			),
			Details: map[string]any{
				"stale_jobs": snap.JobsStale,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
