package model

import "time"

// JobStatus represents the lifecycle state of a cleansing job.
type JobStatus string

const (
	JobInitializing        JobStatus = "initializing"
	JobProcessing          JobStatus = "processing"
	JobPaused              JobStatus = "paused"
	JobCompleted           JobStatus = "completed"
	JobCompletedWithErrors JobStatus = "completed_with_errors"
	JobFailed              JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCompletedWithErrors || s == JobFailed
}

// CleansingJob tracks the progress of validating and deduplicating the
// records of one migration object.
type CleansingJob struct {
	ID               string          `json:"id"`
	ObjectType       string          `json:"object_type"`
	Source           string          `json:"source,omitempty"`
	Status           JobStatus       `json:"status"`
	TotalRecords     int             `json:"total_records"`
	ProcessedRecords int             `json:"processed_records"`
	ValidatedRecords int             `json:"validated_records"`
	ErrorCount       int             `json:"error_count"`
	DuplicateRecords int             `json:"duplicate_records"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	Metrics          *QualityMetrics `json:"metrics,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Checkpoint is a snapshot of a job's progress counters.
type Checkpoint struct {
	JobID            string `json:"job_id"`
	ProcessedRecords int    `json:"processed_records"`
	ValidatedRecords int    `json:"validated_records"`
	ErrorCount       int    `json:"error_count"`
	DuplicateRecords int    `json:"duplicate_records"`
}

// Checkpoint returns the job's current counters.
func (j *CleansingJob) Checkpoint() Checkpoint {
	return Checkpoint{
		JobID:            j.ID,
		ProcessedRecords: j.ProcessedRecords,
		ValidatedRecords: j.ValidatedRecords,
		ErrorCount:       j.ErrorCount,
		DuplicateRecords: j.DuplicateRecords,
	}
}
