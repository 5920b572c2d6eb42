package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/migrate-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer at a time; concurrent jobs share the file.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cleansing_jobs (
	id                TEXT PRIMARY KEY,
	object_type       TEXT NOT NULL,
	source            TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'initializing',
	total_records     INTEGER NOT NULL DEFAULT 0,
	processed_records INTEGER NOT NULL DEFAULT 0,
	validated_records INTEGER NOT NULL DEFAULT 0,
	error_count       INTEGER NOT NULL DEFAULT 0,
	duplicate_records INTEGER NOT NULL DEFAULT 0,
	error_message     TEXT NOT NULL DEFAULT '',
	metrics           TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS validation_issues (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id       TEXT NOT NULL REFERENCES cleansing_jobs(id),
	record_index INTEGER NOT NULL,
	field        TEXT NOT NULL,
	kind         TEXT NOT NULL,
	message      TEXT NOT NULL,
	raw_value    TEXT,
	suggestion   TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON cleansing_jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_object_type ON cleansing_jobs(object_type);
CREATE INDEX IF NOT EXISTS idx_issues_job ON validation_issues(job_id, record_index);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, objectType, source string, totalRecords int) (*model.CleansingJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cleansing_jobs (id, object_type, source, status, total_records, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, objectType, source, string(model.JobInitializing), totalRecords, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
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

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cleansing_jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	return checkRowsAffected(res, jobID)
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cleansing_jobs SET processed_records = ?, validated_records = ?, error_count = ?, duplicate_records = ?, updated_at = ? WHERE id = ?`,
		cp.ProcessedRecords, cp.ValidatedRecords, cp.ErrorCount, cp.DuplicateRecords, time.Now().UTC(), cp.JobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save checkpoint %s", cp.JobID)
	}
	return checkRowsAffected(res, cp.JobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, status model.JobStatus, metrics model.QualityMetrics) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metrics")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE cleansing_jobs SET status = ?, metrics = ?, updated_at = ? WHERE id = ?`,
		string(status), string(metricsJSON), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, jobID)
}

const jobColumns = `id, object_type, source, status, total_records, processed_records, validated_records, error_count, duplicate_records, error_message, metrics, created_at, updated_at`

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.CleansingJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM cleansing_jobs WHERE id = ?`, jobID)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return j, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.CleansingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM cleansing_jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ObjectType != "" {
		query += ` AND object_type = ?`
		args = append(args, filter.ObjectType)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.CleansingJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) SaveIssues(ctx context.Context, jobID string, issues []model.ValidationIssue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin issues tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO validation_issues (job_id, record_index, field, kind, message, raw_value, suggestion, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare issue insert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, is := range issues {
		raw, err := encodeValue(is.Value)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, jobID, is.RecordIndex, is.Field, string(is.Kind), is.Message, raw, is.Suggestion, now); err != nil {
			return eris.Wrapf(err, "sqlite: insert issue for job %s", jobID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit issues")
}

func (s *SQLiteStore) ListIssues(ctx context.Context, jobID string, filter IssueFilter) ([]model.ValidationIssue, error) {
	query := `SELECT record_index, field, kind, message, raw_value, suggestion FROM validation_issues WHERE job_id = ?`
	args := []any{jobID}

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Field != "" {
		query += ` AND field = ?`
		args = append(args, filter.Field)
	}
	query += ` ORDER BY record_index, id LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list issues %s", jobID)
	}
	defer rows.Close()

	var issues []model.ValidationIssue
	for rows.Next() {
		var is model.ValidationIssue
		var raw sql.NullString
		if err := rows.Scan(&is.RecordIndex, &is.Field, &is.Kind, &is.Message, &raw, &is.Suggestion); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan issue")
		}
		if is.Value, err = decodeValue(raw.String, raw.Valid); err != nil {
			return nil, err
		}
		issues = append(issues, is)
	}
	return issues, eris.Wrap(rows.Err(), "sqlite: list issues iterate")
}

// helpers

func checkRowsAffected(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", jobID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanJob returns sql.ErrNoRows unwrapped so callers can map it.
func scanJob(row scannable) (*model.CleansingJob, error) {
	var j model.CleansingJob
	var metrics sql.NullString

	err := row.Scan(&j.ID, &j.ObjectType, &j.Source, &j.Status, &j.TotalRecords,
		&j.ProcessedRecords, &j.ValidatedRecords, &j.ErrorCount, &j.DuplicateRecords,
		&j.ErrorMessage, &metrics, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if metrics.Valid && metrics.String != "" {
		j.Metrics = &model.QualityMetrics{}
		if err := json.Unmarshal([]byte(metrics.String), j.Metrics); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal metrics")
		}
	}
	return &j, nil
}

// encodeValue stores raw values as JSON so numbers and strings survive the
// round trip distinguishably. nil stays NULL.
func encodeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal raw value")
	}
	return string(b), nil
}

func decodeValue(raw string, valid bool) (any, error) {
	if !valid {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal raw value")
	}
	return v, nil
}
