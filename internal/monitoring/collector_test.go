package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/store"
)

type mockJobs struct {
	jobs    []model.CleansingJob
	listErr error
	filter  store.JobFilter
}

func (m *mockJobs) ListJobs(_ context.Context, filter store.JobFilter) ([]model.CleansingJob, error) {
	m.filter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.CleansingJob
	for _, j := range m.jobs {
		if !filter.CreatedAfter.IsZero() && j.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func scored(overall float64) *model.QualityMetrics {
	return &model.QualityMetrics{Overall: overall}
}

func TestCollector_Collect(t *testing.T) {
	now := time.Now().UTC()
	st := &mockJobs{jobs: []model.CleansingJob{
		{ID: "1", Status: model.JobCompleted, ProcessedRecords: 10, Metrics: scored(100), CreatedAt: now},
		{ID: "2", Status: model.JobCompletedWithErrors, ProcessedRecords: 10, ErrorCount: 4, DuplicateRecords: 2, Metrics: scored(60), CreatedAt: now},
		{ID: "3", Status: model.JobFailed, ProcessedRecords: 0, CreatedAt: now},
		{ID: "4", Status: model.JobPaused, ProcessedRecords: 5, CreatedAt: now},
		{ID: "5", Status: model.JobProcessing, CreatedAt: now},
		{ID: "old", Status: model.JobFailed, CreatedAt: now.Add(-48 * time.Hour)},
	}}

	snap, err := NewCollector(st).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.JobsTotal)
	assert.Equal(t, 1, snap.JobsCompleted)
	assert.Equal(t, 1, snap.JobsWithErrors)
	assert.Equal(t, 1, snap.JobsFailed)
	assert.Equal(t, 1, snap.JobsPaused)
	assert.Equal(t, 1, snap.JobsRunning)
	assert.InDelta(t, 1.0/3.0, snap.FailRate, 0.001)
	assert.Equal(t, 25, snap.RecordsProcessed)
	assert.Equal(t, 4, snap.RecordsWithErrors)
	assert.Equal(t, 2, snap.DuplicateRecords)
	assert.InDelta(t, 0.08, snap.DuplicateRate, 0.001)
	assert.Equal(t, 2, snap.ScoredJobs)
	assert.InDelta(t, 80.0, snap.AvgOverallQuality, 0.001)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.False(t, snap.CollectedAt.IsZero())

	assert.Equal(t, maxJobs, st.filter.Limit)
	assert.WithinDuration(t, now.Add(-24*time.Hour), st.filter.CreatedAfter, time.Minute)
}

func TestCollector_Collect_Empty(t *testing.T) {
	snap, err := NewCollector(&mockJobs{}).Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.JobsTotal)
	assert.Zero(t, snap.FailRate)
	assert.Zero(t, snap.DuplicateRate)
	assert.Zero(t, snap.AvgOverallQuality)
}

func TestCollector_Collect_Error(t *testing.T) {
	st := &mockJobs{listErr: errors.New("db down")}
	_, err := NewCollector(st).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list jobs")
}

func TestCollector_Collect_SkipsUnscoredJobs(t *testing.T) {
	now := time.Now().UTC()
	st := &mockJobs{jobs: []model.CleansingJob{
		{ID: "1", Status: model.JobCompleted, ProcessedRecords: 0, Metrics: scored(0), CreatedAt: now},
		{ID: "2", Status: model.JobCompleted, ProcessedRecords: 3, Metrics: scored(90), CreatedAt: now},
	}}

	snap, err := NewCollector(st).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ScoredJobs)
	assert.InDelta(t, 90.0, snap.AvgOverallQuality, 0.001)
}
