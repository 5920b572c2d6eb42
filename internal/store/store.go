// Package store persists cleansing jobs, their checkpoints and the issues
// raised while processing them.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/migrate-cli/internal/model"
)

// ErrNotFound is returned, wrapped, when a job does not exist.
var ErrNotFound = eris.New("store: not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status     model.JobStatus `json:"status,omitempty"`
	ObjectType string          `json:"object_type,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`

	// CreatedAfter, when set, keeps jobs created at or after it.
	CreatedAfter time.Time `json:"created_after,omitempty"`
}

// IssueFilter specifies criteria for listing a job's issues.
type IssueFilter struct {
	Kind   model.IssueKind `json:"kind,omitempty"`
	Field  string          `json:"field,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for cleansing jobs.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, objectType, source string, totalRecords int) (*model.CleansingJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, errMsg string) error
	SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error
	CompleteJob(ctx context.Context, jobID string, status model.JobStatus, metrics model.QualityMetrics) error
	GetJob(ctx context.Context, jobID string) (*model.CleansingJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.CleansingJob, error)

	// Issues
	SaveIssues(ctx context.Context, jobID string, issues []model.ValidationIssue) error
	ListIssues(ctx context.Context, jobID string, filter IssueFilter) ([]model.ValidationIssue, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
