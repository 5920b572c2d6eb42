// Package job drives a cleansing job through validation, deduplication and
// scoring, checkpointing progress as it goes.
package job

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/dedup"
	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/quality"
	"github.com/sells-group/migrate-cli/internal/resilience"
	"github.com/sells-group/migrate-cli/internal/validate"
)

// DefaultCheckpointEvery is the checkpoint interval when Config leaves it unset.
const DefaultCheckpointEvery = 100

// Checkpointer persists job progress. store.Store satisfies it.
type Checkpointer interface {
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, errMsg string) error
	SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error
	SaveIssues(ctx context.Context, jobID string, issues []model.ValidationIssue) error
	CompleteJob(ctx context.Context, jobID string, status model.JobStatus, metrics model.QualityMetrics) error
}

// Config tunes the processing loop.
type Config struct {
	CheckpointEvery int
	Retry           resilience.RetryConfig
}

// BatchResult summarizes one ProcessBatch call.
type BatchResult struct {
	Processed  int                     `json:"processed"`
	Validated  int                     `json:"validated"`
	Errors     int                     `json:"errors"`
	Duplicates int                     `json:"duplicates"`
	Issues     []model.ValidationIssue `json:"issues"`
	Cleaned    []model.Record          `json:"-"`
}

// Job owns the engine and tracker of one cleansing job. Records of a job are
// processed strictly in order; ProcessBatch must not be called concurrently.
type Job struct {
	mu    sync.Mutex
	state model.CleansingJob

	engine  *validate.Engine
	tracker *dedup.Tracker
	store   Checkpointer
	cfg     Config

	pending         []model.ValidationIssue
	sinceCheckpoint int
}

// New wraps a created job record. The engine and tracker must not be shared
// with other jobs.
func New(state *model.CleansingJob, engine *validate.Engine, tracker *dedup.Tracker, store Checkpointer, cfg Config) *Job {
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = DefaultCheckpointEvery
	}
	if tracker == nil {
		tracker = dedup.NewTracker()
	}
	return &Job{
		state:   *state,
		engine:  engine,
		tracker: tracker,
		store:   store,
		cfg:     cfg,
	}
}

// Snapshot returns a copy of the job's current state.
func (j *Job) Snapshot() model.CleansingJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.state
	if s.Metrics != nil {
		m := *s.Metrics
		s.Metrics = &m
	}
	return s
}

// ID returns the job id.
func (j *Job) ID() string {
	return j.state.ID
}

func (j *Job) status() model.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.Status
}

// ProcessBatch validates and deduplicates records in order. Record indices
// in issues are positions within the whole job. When ctx is cancelled
// between records the job is checkpointed, moved to paused and an error
// wrapping ErrPaused is returned with the partial result. Any other error
// leaves the job failed.
func (j *Job) ProcessBatch(ctx context.Context, records []model.Record) (res BatchResult, err error) {
	log := zap.L().With(zap.String("job_id", j.state.ID))

	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("job: panic while processing: %v", r)
			j.fail(ctx, err)
		}
	}()

	if st := j.status(); st != model.JobProcessing {
		if ctx.Err() != nil && !st.Terminal() {
			return res, j.pauseIfRunning(ctx)
		}
		if err := j.transition(ctx, model.JobProcessing, ""); err != nil {
			return res, err
		}
	}

	j.engine.Reset()
	res.Cleaned = make([]model.Record, 0, len(records))

	for _, rec := range records {
		if ctx.Err() != nil {
			return res, j.pause(ctx)
		}

		index := j.state.ProcessedRecords
		cleaned, issues := j.engine.Validate(rec, index)
		valid := len(issues) == 0
		if dup := j.tracker.Check(cleaned, index); dup != nil {
			issues = append(issues, *dup)
			res.Duplicates++
		}

		j.mu.Lock()
		j.state.ProcessedRecords++
		if valid {
			j.state.ValidatedRecords++
		} else {
			j.state.ErrorCount++
		}
		j.state.DuplicateRecords = j.tracker.Duplicates()
		final := j.state.TotalRecords > 0 && j.state.ProcessedRecords == j.state.TotalRecords
		j.mu.Unlock()

		res.Processed++
		if valid {
			res.Validated++
		} else {
			res.Errors++
		}
		res.Issues = append(res.Issues, issues...)
		res.Cleaned = append(res.Cleaned, cleaned)

		j.pending = append(j.pending, issues...)
		j.sinceCheckpoint++
		if j.sinceCheckpoint >= j.cfg.CheckpointEvery || final {
			j.checkpoint(ctx)
		}
	}

	if j.sinceCheckpoint > 0 {
		j.checkpoint(ctx)
	}

	log.Debug("job: batch processed",
		zap.Int("processed", res.Processed),
		zap.Int("errors", res.Errors),
		zap.Int("duplicates", res.Duplicates),
	)
	return res, nil
}

// Finish flushes progress, scores the job and moves it to its terminal
// status. A job with no processed records completes with zeroed metrics.
func (j *Job) Finish(ctx context.Context) (model.CleansingJob, error) {
	st := j.status()
	if st.Terminal() {
		return j.Snapshot(), eris.Wrapf(ErrTransition, "job %s: already %s", j.state.ID, st)
	}
	if st != model.JobProcessing {
		if err := j.transition(ctx, model.JobProcessing, ""); err != nil {
			return j.Snapshot(), err
		}
	}
	if j.sinceCheckpoint > 0 || len(j.pending) > 0 {
		j.checkpoint(ctx)
	}

	j.mu.Lock()
	metrics := quality.ForJob(&j.state)
	final := FinalStatus(j.state.ErrorCount)
	j.mu.Unlock()

	wctx := context.WithoutCancel(ctx)
	if err := j.store.CompleteJob(wctx, j.state.ID, final, metrics); err != nil {
		err = eris.Wrapf(err, "job: complete %s", j.state.ID)
		j.fail(ctx, err)
		return j.Snapshot(), err
	}

	j.mu.Lock()
	j.state.Status = final
	j.state.Metrics = &metrics
	j.mu.Unlock()

	zap.L().Info("job: finished",
		zap.String("job_id", j.state.ID),
		zap.String("status", string(final)),
		zap.Int("processed", j.state.ProcessedRecords),
		zap.Int("errors", j.state.ErrorCount),
		zap.Int("duplicates", j.state.DuplicateRecords),
		zap.Float64("overall", metrics.Overall),
	)
	return j.Snapshot(), nil
}

// Run drives the job from a channel of batches and finishes it once the
// channel is closed. srcErrs, when not nil, is read after batches closes; a
// source error aborts the job instead of finishing it. Cancelling ctx pauses
// the job.
func (j *Job) Run(ctx context.Context, batches <-chan []model.Record, srcErrs <-chan error) (model.CleansingJob, error) {
	for {
		select {
		case <-ctx.Done():
			return j.Snapshot(), j.pauseIfRunning(ctx)
		case batch, ok := <-batches:
			if !ok {
				// Producers close early on cancellation.
				if ctx.Err() != nil {
					return j.Snapshot(), j.pauseIfRunning(ctx)
				}
				if srcErrs != nil {
					if err := <-srcErrs; err != nil {
						err = eris.Wrapf(err, "job: read source for %s", j.state.ID)
						j.Abort(ctx, err)
						return j.Snapshot(), err
					}
				}
				return j.Finish(ctx)
			}
			if _, err := j.ProcessBatch(ctx, batch); err != nil {
				return j.Snapshot(), err
			}
		}
	}
}

// pauseIfRunning pauses an initializing or processing job. A job that is
// already paused or terminal keeps its status.
func (j *Job) pauseIfRunning(ctx context.Context) error {
	switch j.status() {
	case model.JobInitializing, model.JobProcessing:
		return j.pause(ctx)
	}
	return eris.Wrapf(ErrPaused, "job %s", j.state.ID)
}

// Abort flushes progress and marks the job failed with cause. It does
// nothing once the job is terminal.
func (j *Job) Abort(ctx context.Context, cause error) {
	if j.status().Terminal() {
		return
	}
	j.checkpoint(ctx)
	j.fail(ctx, cause)
}

// checkpoint writes pending issues and the progress counters. Failures are
// logged and dropped.
func (j *Job) checkpoint(ctx context.Context) {
	wctx := context.WithoutCancel(ctx)
	id := j.state.ID

	if len(j.pending) > 0 {
		issues := j.pending
		retry := j.retryConfig(id, "save_issues")
		if err := resilience.Do(wctx, retry, func(ctx context.Context) error {
			return j.store.SaveIssues(ctx, id, issues)
		}); err != nil {
			zap.L().Error("job: save issues failed",
				zap.String("job_id", id),
				zap.Int("issues", len(issues)),
				zap.Error(err),
			)
		}
		j.pending = nil
	}

	j.mu.Lock()
	cp := j.state.Checkpoint()
	j.mu.Unlock()

	retry := j.retryConfig(id, "save_checkpoint")
	if err := resilience.Do(wctx, retry, func(ctx context.Context) error {
		return j.store.SaveCheckpoint(ctx, cp)
	}); err != nil {
		zap.L().Error("job: save checkpoint failed",
			zap.String("job_id", id),
			zap.Int("processed", cp.ProcessedRecords),
			zap.Error(err),
		)
	}
	j.sinceCheckpoint = 0
}

func (j *Job) retryConfig(id, op string) resilience.RetryConfig {
	cfg := j.cfg.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(id, op)
	}
	return cfg
}

// transition persists a status change. A rejected or failed write leaves
// the job failed.
func (j *Job) transition(ctx context.Context, to model.JobStatus, msg string) error {
	from := j.status()
	if !CanTransition(from, to) {
		return eris.Wrapf(ErrTransition, "job %s: %s -> %s", j.state.ID, from, to)
	}
	if err := j.store.UpdateJobStatus(context.WithoutCancel(ctx), j.state.ID, to, msg); err != nil {
		err = eris.Wrapf(err, "job: transition %s to %s", j.state.ID, to)
		j.fail(ctx, err)
		return err
	}

	j.mu.Lock()
	j.state.Status = to
	j.mu.Unlock()
	zap.L().Debug("job: status changed",
		zap.String("job_id", j.state.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

func (j *Job) pause(ctx context.Context) error {
	j.checkpoint(ctx)
	if err := j.transition(ctx, model.JobPaused, ""); err != nil {
		return err
	}
	zap.L().Info("job: paused",
		zap.String("job_id", j.state.ID),
		zap.Int("processed", j.state.ProcessedRecords),
	)
	return eris.Wrapf(ErrPaused, "job %s at record %d", j.state.ID, j.state.ProcessedRecords)
}

// fail marks the job failed with cause's message. Recording the failure is
// best effort.
func (j *Job) fail(ctx context.Context, cause error) {
	msg := fmt.Sprint(cause)

	j.mu.Lock()
	if j.state.Status.Terminal() {
		j.mu.Unlock()
		return
	}
	j.state.Status = model.JobFailed
	j.state.ErrorMessage = msg
	j.mu.Unlock()

	if err := j.store.UpdateJobStatus(context.WithoutCancel(ctx), j.state.ID, model.JobFailed, msg); err != nil {
		zap.L().Error("job: record failure",
			zap.String("job_id", j.state.ID),
			zap.String("cause", msg),
			zap.Error(err),
		)
	}
	zap.L().Error("job: failed", zap.String("job_id", j.state.ID), zap.Error(cause))
}
