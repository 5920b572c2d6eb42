package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/migrate-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var jobColumnNames = []string{
	"id", "object_type", "source", "status", "total_records", "processed_records", "validated_records",
	"error_count", "duplicate_records", "error_message", "metrics", "created_at", "updated_at",
}

func TestPostgresStore_CreateJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO cleansing_jobs`).
		WithArgs(pgxmock.AnyArg(), "contacts", "in.csv", "initializing", 12, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job, err := s.CreateJob(context.Background(), "contacts", "in.csv", 12)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobInitializing, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCheckpoint(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE cleansing_jobs SET processed_records = \$1`).
		WithArgs(50, 45, 5, 2, pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SaveCheckpoint(context.Background(), model.Checkpoint{
		JobID: "job-1", ProcessedRecords: 50, ValidatedRecords: 45, ErrorCount: 5, DuplicateRecords: 2,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateJobStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE cleansing_jobs SET status = \$1, error_message = \$2`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateJobStatus(context.Background(), "missing", model.JobFailed, "boom")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE cleansing_jobs SET status = \$1, metrics = \$2`).
		WithArgs("completed", pgxmock.AnyArg(), pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteJob(context.Background(), "job-1", model.JobCompleted, model.QualityMetrics{Overall: 100})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := mock.NewRows(jobColumnNames).
		AddRow("job-1", "contacts", "in.csv", "completed", 10, 10, 10, 0, 0, "", []byte(`{"overall":100}`), now, now)
	mock.ExpectQuery(`SELECT id, object_type, .* FROM cleansing_jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := s.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, 10, job.ValidatedRecords)
	require.NotNil(t, job.Metrics)
	assert.InDelta(t, 100.0, job.Metrics.Overall, 0)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetJob_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM cleansing_jobs WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetJob(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListJobs_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := mock.NewRows(jobColumnNames).
		AddRow("job-2", "accounts", "", "processing", 5, 2, 2, 0, 0, "", nil, now, now)
	mock.ExpectQuery(`AND status = \$1 AND object_type = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("processing", "accounts", 10, 20).
		WillReturnRows(rows)

	jobs, err := s.ListJobs(context.Background(), JobFilter{Status: model.JobProcessing, ObjectType: "accounts", Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Nil(t, jobs[0].Metrics)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListJobs_CreatedAfter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE true AND created_at >= \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs(pgxmock.AnyArg(), 100).
		WillReturnRows(mock.NewRows(jobColumnNames))

	jobs, err := s.ListJobs(context.Background(), JobFilter{CreatedAfter: time.Now().Add(-24 * time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveIssues_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"validation_issues"}, issueColumns).WillReturnResult(2)

	err := s.SaveIssues(context.Background(), "job-1", []model.ValidationIssue{
		{RecordIndex: 0, Field: "email", Kind: model.IssueFormat, Message: "Invalid email format", Value: "nope"},
		{RecordIndex: 1, Field: "email", Kind: model.IssueDuplicate, Message: "dup", Value: "a@b.com"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveIssues_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.SaveIssues(context.Background(), "job-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveIssues_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"validation_issues"}, issueColumns).WillReturnError(errors.New("conn closed"))

	err := s.SaveIssues(context.Background(), "job-1", []model.ValidationIssue{{Field: "email", Kind: model.IssueFormat}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save issues for job job-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListIssues(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	raw := `"a@b.com"`
	rows := mock.NewRows([]string{"record_index", "field", "kind", "message", "raw_value", "suggestion"}).
		AddRow(3, "email", "duplicate", "dup", &raw, "This record appears to be a duplicate")
	mock.ExpectQuery(`FROM validation_issues WHERE job_id = \$1 AND kind = \$2 ORDER BY record_index, id LIMIT \$3`).
		WithArgs("job-1", "duplicate", 100).
		WillReturnRows(rows)

	issues, err := s.ListIssues(context.Background(), "job-1", IssueFilter{Kind: model.IssueDuplicate})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, model.IssueDuplicate, issues[0].Kind)
	assert.Equal(t, "a@b.com", issues[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS cleansing_jobs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
