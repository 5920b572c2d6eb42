package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/migrate-cli/internal/config"
	"github.com/sells-group/migrate-cli/internal/job"
	"github.com/sells-group/migrate-cli/internal/lexicon"
	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/resilience"
	"github.com/sells-group/migrate-cli/internal/source"
	"github.com/sells-group/migrate-cli/internal/store"
)

var (
	cleanseObject      string
	cleanseRules       string
	cleanseLexicon     string
	cleanseDedupKeys   []string
	cleanseBatchSize   int
	cleanseConcurrency int
	cleanseSheet       string
	cleanseOutput      string
)

var cleanseCmd = &cobra.Command{
	Use:   "cleanse FILE...",
	Short: "Validate, deduplicate and score exported records",
	Long: `Runs one cleansing job per input file. Records are validated against the
object type's rules, checked for duplicates and scored. Progress and issues
are checkpointed to the configured store.

Interrupting the command pauses running jobs.

Examples:
  migrate-cli cleanse contacts.csv --object contacts
  migrate-cli cleanse accounts.xlsx leads.json --rules rules.yaml --dedup-key email,phone`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := applyCleanseFlags(cmd, *cfg)
		if err := c.Validate("cleanse"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lex, err := loadLexicon(&c)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, &c)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		jobs, runErr := runCleanse(ctx, &c, st, lex, args)
		if err := writeJSON(os.Stdout, cleanseOutput, jobs); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	cleanseCmd.Flags().StringVar(&cleanseObject, "object", "", "object type: contacts, accounts, opportunities or leads (default from config)")
	cleanseCmd.Flags().StringVar(&cleanseRules, "rules", "", "YAML or JSON rule file (default: built-in rules for the object type)")
	cleanseCmd.Flags().StringVar(&cleanseLexicon, "lexicon", "", "YAML field lexicon (default: built-in)")
	cleanseCmd.Flags().StringSliceVar(&cleanseDedupKeys, "dedup-key", nil, "fields identifying duplicate records, in priority order")
	cleanseCmd.Flags().IntVar(&cleanseBatchSize, "batch-size", 0, "records per batch (default from config)")
	cleanseCmd.Flags().IntVar(&cleanseConcurrency, "concurrency", 0, "max files to process concurrently (default from config)")
	cleanseCmd.Flags().StringVar(&cleanseSheet, "sheet", "", "worksheet to read from xlsx files (default: first)")
	cleanseCmd.Flags().StringVar(&cleanseOutput, "output", "", "write job summaries to file (default: stdout)")
	rootCmd.AddCommand(cleanseCmd)
}

// applyCleanseFlags overlays explicitly set flags on a copy of the config.
func applyCleanseFlags(cmd *cobra.Command, c config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("object") {
		c.Cleanse.ObjectType = cleanseObject
	}
	if flags.Changed("rules") {
		c.Cleanse.RulesPath = cleanseRules
	}
	if flags.Changed("lexicon") {
		c.Cleanse.LexiconPath = cleanseLexicon
	}
	if flags.Changed("dedup-key") {
		c.Cleanse.DedupKeys = cleanseDedupKeys
	}
	if flags.Changed("batch-size") {
		c.Cleanse.BatchSize = cleanseBatchSize
	}
	if flags.Changed("concurrency") {
		c.Cleanse.MaxConcurrentJobs = cleanseConcurrency
	}
	return c
}

// runCleanse runs one job per path, at most MaxConcurrentJobs at a time.
// Summaries are returned in path order; a job that could not be created has
// no summary. The error counts the jobs that did not complete.
func runCleanse(ctx context.Context, c *config.Config, st store.Store, lex *lexicon.Lexicon, paths []string) ([]model.CleansingJob, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Cleanse.MaxConcurrentJobs, 1))

	results := make([]*model.CleansingJob, len(paths))
	errs := make([]error, len(paths))

	for i, path := range paths {
		g.Go(func() error {
			res, err := cleanseFile(gCtx, c, st, lex, path)
			results[i] = res
			errs[i] = err
			if err != nil {
				zap.L().Error("cleanse: job did not complete",
					zap.String("source", path),
					zap.Error(err),
				)
			}
			return nil // one file never aborts the others
		})
	}
	_ = g.Wait()

	var jobs []model.CleansingJob
	var failed, paused int
	for i, res := range results {
		if res != nil {
			jobs = append(jobs, *res)
		}
		switch {
		case errs[i] == nil:
		case eris.Is(errs[i], job.ErrPaused):
			paused++
		default:
			failed++
		}
	}

	zap.L().Info("cleanse: all jobs done",
		zap.Int("files", len(paths)),
		zap.Int("failed", failed),
		zap.Int("paused", paused),
	)
	if failed+paused > 0 {
		return jobs, eris.Errorf("cleanse: %d of %d jobs failed, %d paused", failed, len(paths), paused)
	}
	return jobs, nil
}

// cleanseFile runs a single job over the records of path.
func cleanseFile(ctx context.Context, c *config.Config, st store.Store, lex *lexicon.Lexicon, path string) (*model.CleansingJob, error) {
	objectType := c.Cleanse.ObjectType

	// Rule problems surface before any job row is written.
	engine, err := buildEngine(c, lex, objectType)
	if err != nil {
		return nil, err
	}

	// Stops the source readers when Run returns before draining them.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := source.Open(ctx, path, source.Options{Sheet: cleanseSheet, TrimSpace: true})
	if err != nil {
		return nil, err
	}
	defer stream.Close() //nolint:errcheck

	state, err := st.CreateJob(ctx, objectType, path, stream.Total)
	if err != nil {
		return nil, eris.Wrap(err, "cleanse: create job")
	}
	zap.L().Info("cleanse: job started",
		zap.String("job_id", state.ID),
		zap.String("source", path),
		zap.String("object_type", objectType),
		zap.Int("total_records", stream.Total),
	)

	j := job.New(state, engine, newTracker(c), st, job.Config{
		CheckpointEvery: c.Cleanse.CheckpointEvery,
		Retry:           resilience.FromConfig(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs),
	})

	batches := source.Batches(ctx, stream.Records, c.Cleanse.BatchSize)
	final, err := j.Run(ctx, batches, stream.Errs)
	return &final, err
}
