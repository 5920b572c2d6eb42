// Package monitoring summarizes recent cleansing jobs and raises alerts when
// failure rates or record quality cross configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/store"
)

// maxJobs caps how many jobs a snapshot reads.
const maxJobs = 10000

// MetricsSnapshot holds a point-in-time view of recent jobs.
type MetricsSnapshot struct {
	JobsTotal         int       `json:"jobs_total"`
	JobsCompleted     int       `json:"jobs_completed"`
	JobsWithErrors    int       `json:"jobs_completed_with_errors"`
	JobsFailed        int       `json:"jobs_failed"`
	JobsPaused        int       `json:"jobs_paused"`
	JobsRunning       int       `json:"jobs_running"`
	FailRate          float64   `json:"fail_rate"`
	RecordsProcessed  int       `json:"records_processed"`
	RecordsWithErrors int       `json:"records_with_errors"`
	DuplicateRecords  int       `json:"duplicate_records"`
	DuplicateRate     float64   `json:"duplicate_rate"`
	AvgOverallQuality float64   `json:"avg_overall_quality"`
	ScoredJobs        int       `json:"scored_jobs"`
	LookbackHours     int       `json:"lookback_hours"`
	CollectedAt       time.Time `json:"collected_at"`
}

// JobLister is the store method the collector needs.
type JobLister interface {
	ListJobs(ctx context.Context, filter store.JobFilter) ([]model.CleansingJob, error)
}

// Collector gathers metrics from the job store.
type Collector struct {
	jobs JobLister
}

// NewCollector creates a new metrics collector.
func NewCollector(jobs JobLister) *Collector {
	return &Collector{jobs: jobs}
}

// Collect gathers a snapshot of the jobs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	jobs, err := c.jobs.ListJobs(ctx, store.JobFilter{
		CreatedAfter: cutoff,
		Limit:        maxJobs,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list jobs")
	}

	snap.JobsTotal = len(jobs)
	var totalOverall float64
	for _, j := range jobs {
		switch j.Status {
		case model.JobCompleted:
			snap.JobsCompleted++
		case model.JobCompletedWithErrors:
			snap.JobsWithErrors++
		case model.JobFailed:
			snap.JobsFailed++
		case model.JobPaused:
			snap.JobsPaused++
		case model.JobInitializing, model.JobProcessing:
			snap.JobsRunning++
		}
		snap.RecordsProcessed += j.ProcessedRecords
		snap.RecordsWithErrors += j.ErrorCount
		snap.DuplicateRecords += j.DuplicateRecords
		if j.Metrics != nil && j.ProcessedRecords > 0 {
			totalOverall += j.Metrics.Overall
			snap.ScoredJobs++
		}
	}

	finished := snap.JobsCompleted + snap.JobsWithErrors + snap.JobsFailed
	if finished > 0 {
		snap.FailRate = float64(snap.JobsFailed) / float64(finished)
	}
	if snap.RecordsProcessed > 0 {
		snap.DuplicateRate = float64(snap.DuplicateRecords) / float64(snap.RecordsProcessed)
	}
	if snap.ScoredJobs > 0 {
		snap.AvgOverallQuality = totalOverall / float64(snap.ScoredJobs)
	}

	return snap, nil
}
