// Package quality derives percentage quality metrics from job counters.
package quality

import (
	"math"

	"github.com/sells-group/migrate-cli/internal/model"
)

// Score computes quality metrics for a job. Completeness mirrors accuracy
// since no separate completeness signal is collected. Every metric is zero
// when total is zero or negative.
func Score(total, validated, errors, duplicates int) model.QualityMetrics {
	if total <= 0 {
		return model.QualityMetrics{}
	}
	t := float64(total)
	accuracy := float64(validated) / t * 100
	uniqueness := float64(total-duplicates) / t * 100
	consistency := float64(total-errors) / t * 100
	completeness := accuracy
	overall := (completeness + accuracy + uniqueness + consistency) / 4

	return model.QualityMetrics{
		Completeness: round1(completeness),
		Accuracy:     round1(accuracy),
		Uniqueness:   round1(uniqueness),
		Consistency:  round1(consistency),
		Overall:      round1(overall),
	}
}

// ForJob scores a job from its counters, using processed records as the total.
func ForJob(j *model.CleansingJob) model.QualityMetrics {
	return Score(j.ProcessedRecords, j.ValidatedRecords, j.ErrorCount, j.DuplicateRecords)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
