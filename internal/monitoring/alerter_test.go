package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/migrate-cli/internal/config"
)

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		FailureRateThreshold: 0.25,
		MinOverallQuality:    80,
		MaxDuplicateRate:     0.1,
		LookbackWindowHours:  24,
	}
}

func TestAlerter_Evaluate(t *testing.T) {
	tests := []struct {
		name  string
		snap  MetricsSnapshot
		types []AlertType
	}{
		{
			name: "healthy",
			snap: MetricsSnapshot{JobsCompleted: 10, ScoredJobs: 10, AvgOverallQuality: 95, RecordsProcessed: 100, DuplicateRecords: 2, DuplicateRate: 0.02},
		},
		{
			name:  "failure rate",
			snap:  MetricsSnapshot{JobsCompleted: 3, JobsFailed: 3, FailRate: 0.5},
			types: []AlertType{AlertJobFailureRate},
		},
		{
			name: "too few finished jobs",
			snap: MetricsSnapshot{JobsCompleted: 1, JobsFailed: 3, FailRate: 0.75},
		},
		{
			name:  "low quality",
			snap:  MetricsSnapshot{JobsCompleted: 2, ScoredJobs: 2, AvgOverallQuality: 60},
			types: []AlertType{AlertLowQuality},
		},
		{
			name: "no scored jobs",
			snap: MetricsSnapshot{JobsFailed: 2, FailRate: 1},
		},
		{
			name:  "duplicate rate",
			snap:  MetricsSnapshot{JobsCompleted: 1, ScoredJobs: 1, AvgOverallQuality: 90, RecordsProcessed: 10, DuplicateRecords: 5, DuplicateRate: 0.5},
			types: []AlertType{AlertDuplicateRate},
		},
		{
			name: "all",
			snap: MetricsSnapshot{
				JobsWithErrors: 2, JobsFailed: 4, FailRate: 4.0 / 6.0,
				ScoredJobs: 2, AvgOverallQuality: 40,
				RecordsProcessed: 10, DuplicateRecords: 3, DuplicateRate: 0.3,
			},
			types: []AlertType{AlertJobFailureRate, AlertLowQuality, AlertDuplicateRate},
		},
	}

	a := NewAlerter(testMonitoringConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := tt.snap
			snap.LookbackHours = 24
			alerts := a.Evaluate(&snap)

			var got []AlertType
			for _, al := range alerts {
				got = append(got, al.Type)
				assert.NotEmpty(t, al.Message)
				assert.False(t, al.Timestamp.IsZero())
			}
			assert.Equal(t, tt.types, got)
		})
	}
}

func TestAlerter_Evaluate_FailureRateMessage(t *testing.T) {
	a := NewAlerter(testMonitoringConfig())
	alerts := a.Evaluate(&MetricsSnapshot{JobsCompleted: 2, JobsFailed: 3, FailRate: 0.6, LookbackHours: 12})
	require.Len(t, alerts, 1)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "60.0%")
	assert.Contains(t, alerts[0].Message, "3 failed / 5 finished in last 12h")
	assert.Equal(t, 5, alerts[0].Details["finished"])
}

func TestAlerter_Evaluate_DuplicateRateDisabled(t *testing.T) {
	cfg := testMonitoringConfig()
	cfg.MaxDuplicateRate = 0
	a := NewAlerter(cfg)

	alerts := a.Evaluate(&MetricsSnapshot{RecordsProcessed: 10, DuplicateRecords: 9, DuplicateRate: 0.9})
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertJobFailureRate, Severity: "high", Message: "failing"},
		{Type: AlertLowQuality, Severity: "medium", Message: "dirty data"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_Skipped(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertLowQuality}}))

	a = NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertJobFailureRate, Message: "x"}})
	assert.Equal(t, 0, sent)
}
