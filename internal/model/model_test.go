package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobInitializing, false},
		{JobProcessing, false},
		{JobPaused, false},
		{JobCompleted, true},
		{JobCompletedWithErrors, true},
		{JobFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Terminal())
		})
	}
}

func TestCleansingJob_Checkpoint(t *testing.T) {
	j := &CleansingJob{
		ID:               "job-1",
		Status:           JobProcessing,
		TotalRecords:     10,
		ProcessedRecords: 6,
		ValidatedRecords: 4,
		ErrorCount:       2,
		DuplicateRecords: 1,
	}
	assert.Equal(t, Checkpoint{
		JobID:            "job-1",
		ProcessedRecords: 6,
		ValidatedRecords: 4,
		ErrorCount:       2,
		DuplicateRecords: 1,
	}, j.Checkpoint())
}

func TestRecord_Clone(t *testing.T) {
	r := Record{"email": "a@b.co", "age": 3}
	c := r.Clone()
	c["email"] = "changed"
	assert.Equal(t, "a@b.co", r["email"])
	assert.Equal(t, 3, c["age"])
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.False(t, IsEmpty(" "))
	assert.False(t, IsEmpty(0))
	assert.False(t, IsEmpty(false))
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "", NormalizeValue(nil))
	assert.Equal(t, "john@x.com", NormalizeValue("  John@X.com "))
	assert.Equal(t, "42", NormalizeValue(42))
	assert.Equal(t, "true", NormalizeValue(true))
}

func TestRuleKind_Valid(t *testing.T) {
	for _, k := range []RuleKind{RuleRequired, RuleFormat, RuleLength, RuleRange, RuleUnique, RuleCustom} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, RuleKind("regex").Valid())
	assert.False(t, RuleKind("").Valid())
}
