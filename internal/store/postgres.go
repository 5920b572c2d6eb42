package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/migrate-cli/internal/db"
	"github.com/sells-group/migrate-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on every new connection; checkpoints and
// status writes run once per batch for every job.
var preparedStatements = map[string]string{
	"save_checkpoint":   `UPDATE cleansing_jobs SET processed_records = $1, validated_records = $2, error_count = $3, duplicate_records = $4, updated_at = $5 WHERE id = $6`,
	"update_job_status": `UPDATE cleansing_jobs SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
	"get_job":           `SELECT ` + jobColumns + ` FROM cleansing_jobs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := int32(10), int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cleansing_jobs (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	object_type       TEXT NOT NULL,
	source            TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'initializing',
	total_records     INTEGER NOT NULL DEFAULT 0,
	processed_records INTEGER NOT NULL DEFAULT 0,
	validated_records INTEGER NOT NULL DEFAULT 0,
	error_count       INTEGER NOT NULL DEFAULT 0,
	duplicate_records INTEGER NOT NULL DEFAULT 0,
	error_message     TEXT NOT NULL DEFAULT '',
	metrics           JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS validation_issues (
	id           BIGSERIAL PRIMARY KEY,
	job_id       TEXT NOT NULL REFERENCES cleansing_jobs(id),
	record_index INTEGER NOT NULL,
	field        TEXT NOT NULL,
	kind         TEXT NOT NULL,
	message      TEXT NOT NULL,
	raw_value    TEXT,
	suggestion   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON cleansing_jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_object_type ON cleansing_jobs(object_type);
CREATE INDEX IF NOT EXISTS idx_issues_job ON validation_issues(job_id, record_index);
`

var issueColumns = []string{"job_id", "record_index", "field", "kind", "message", "raw_value", "suggestion", "created_at"}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, objectType, source string, totalRecords int) (*model.CleansingJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cleansing_jobs (id, object_type, source, status, total_records, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, objectType, source, string(model.JobInitializing), totalRecords, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.CleansingJob{
		ID:           id,
		ObjectType:   objectType,
		Source:       source,
		Status:       model.JobInitializing,
		TotalRecords: totalRecords,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx, preparedStatements["update_job_status"],
		string(status), errMsg, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	tag, err := s.pool.Exec(ctx, preparedStatements["save_checkpoint"],
		cp.ProcessedRecords, cp.ValidatedRecords, cp.ErrorCount, cp.DuplicateRecords, time.Now().UTC(), cp.JobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save checkpoint %s", cp.JobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", cp.JobID)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, status model.JobStatus, metrics model.QualityMetrics) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metrics")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE cleansing_jobs SET status = $1, metrics = $2, updated_at = $3 WHERE id = $4`,
		string(status), metricsJSON, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.CleansingJob, error) {
	j, err := scanPgJob(s.pool.QueryRow(ctx, preparedStatements["get_job"], jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.CleansingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM cleansing_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.ObjectType != "" {
		query += fmt.Sprintf(` AND object_type = $%d`, argIdx)
		args = append(args, filter.ObjectType)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.CleansingJob
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

// SaveIssues bulk-loads issues with COPY.
func (s *PostgresStore) SaveIssues(ctx context.Context, jobID string, issues []model.ValidationIssue) error {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(issues))
	for _, is := range issues {
		raw, err := encodeValue(is.Value)
		if err != nil {
			return err
		}
		rows = append(rows, []any{jobID, is.RecordIndex, is.Field, string(is.Kind), is.Message, raw, is.Suggestion, now})
	}
	_, err := db.CopyFrom(ctx, s.pool, "validation_issues", issueColumns, rows)
	return eris.Wrapf(err, "postgres: save issues for job %s", jobID)
}

func (s *PostgresStore) ListIssues(ctx context.Context, jobID string, filter IssueFilter) ([]model.ValidationIssue, error) {
	query := `SELECT record_index, field, kind, message, raw_value, suggestion FROM validation_issues WHERE job_id = $1`
	args := []any{jobID}
	argIdx := 2

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.Field != "" {
		query += fmt.Sprintf(` AND field = $%d`, argIdx)
		args = append(args, filter.Field)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY record_index, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list issues %s", jobID)
	}
	defer rows.Close()

	var issues []model.ValidationIssue
	for rows.Next() {
		var is model.ValidationIssue
		var kind string
		var raw *string
		if err := rows.Scan(&is.RecordIndex, &is.Field, &kind, &is.Message, &raw, &is.Suggestion); err != nil {
			return nil, eris.Wrap(err, "postgres: scan issue")
		}
		is.Kind = model.IssueKind(kind)
		if raw != nil {
			if is.Value, err = decodeValue(*raw, true); err != nil {
				return nil, err
			}
		}
		issues = append(issues, is)
	}
	return issues, eris.Wrap(rows.Err(), "postgres: list issues iterate")
}

func scanPgJob(row pgx.Row) (*model.CleansingJob, error) {
	var j model.CleansingJob
	var status string
	var metrics []byte

	err := row.Scan(&j.ID, &j.ObjectType, &j.Source, &status, &j.TotalRecords,
		&j.ProcessedRecords, &j.ValidatedRecords, &j.ErrorCount, &j.DuplicateRecords,
		&j.ErrorMessage, &metrics, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(status)
	if len(metrics) > 0 {
		j.Metrics = &model.QualityMetrics{}
		if err := json.Unmarshal(metrics, j.Metrics); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metrics")
		}
	}
	return &j, nil
}
