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

	"github.com/sells-group/migrate-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertJobFailureRate AlertType = "job_failure_rate"
	AlertLowQuality     AlertType = "low_quality"
	AlertDuplicateRate  AlertType = "duplicate_rate"
)

// minFinishedJobs is how many finished jobs a failure rate needs before it
// can alert.
const minFinishedJobs = 5

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

	finished := snap.JobsCompleted + snap.JobsWithErrors + snap.JobsFailed
	if finished >= minFinishedJobs && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertJobFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Job failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.JobsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.JobsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if snap.ScoredJobs > 0 && snap.AvgOverallQuality < a.cfg.MinOverallQuality {
		alerts = append(alerts, Alert{
			Type:     AlertLowQuality,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Average overall quality %.1f is below %.1f across %d job(s) in last %dh",
				snap.AvgOverallQuality, a.cfg.MinOverallQuality, snap.ScoredJobs, snap.LookbackHours,
			),
			Details: map[string]any{
				"avg_overall": snap.AvgOverallQuality,
				"minimum":     a.cfg.MinOverallQuality,
				"scored_jobs": snap.ScoredJobs,
			},
			Timestamp: now,
		})
	}

	if a.cfg.MaxDuplicateRate > 0 && snap.DuplicateRate > a.cfg.MaxDuplicateRate {
		alerts = append(alerts, Alert{
			Type:     AlertDuplicateRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d of %d records were duplicates (%.1f%%) in last %dh",
				snap.DuplicateRecords, snap.RecordsProcessed, snap.DuplicateRate*100, snap.LookbackHours,
			),
			Details: map[string]any{
				"duplicate_rate": snap.DuplicateRate,
				"threshold":      a.cfg.MaxDuplicateRate,
				"duplicates":     snap.DuplicateRecords,
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
