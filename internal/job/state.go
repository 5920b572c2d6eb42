package job

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/migrate-cli/internal/model"
)

var (
	// ErrPaused is returned, wrapped, when processing stopped because the
	// context was cancelled between records.
	ErrPaused = eris.New("job: paused")
	// ErrTransition is returned, wrapped, for a status change the state
	// machine does not allow.
	ErrTransition = eris.New("job: invalid status transition")
)

var transitions = map[model.JobStatus][]model.JobStatus{
	model.JobInitializing: {model.JobProcessing, model.JobPaused, model.JobFailed},
	model.JobProcessing:   {model.JobPaused, model.JobCompleted, model.JobCompletedWithErrors, model.JobFailed},
	model.JobPaused:       {model.JobProcessing, model.JobFailed},
}

// CanTransition reports whether a job may move from one status to another.
// Terminal statuses allow nothing.
func CanTransition(from, to model.JobStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// FinalStatus picks the terminal status for a job that ran to the end.
func FinalStatus(errorCount int) model.JobStatus {
	if errorCount == 0 {
		return model.JobCompleted
	}
	return model.JobCompletedWithErrors
}
