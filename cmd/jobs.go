package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/migrate-cli/internal/config"
	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/monitoring"
	"github.com/sells-group/migrate-cli/internal/store"
)

var (
	jobsStatus     string
	jobsObject     string
	jobsLimit      int
	jobsIssueKind  string
	jobsIssueField string
	jobsIssueLimit int
	statsLookback  int
	statsAlert     bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect persisted cleansing jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("jobs"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Status:     model.JobStatus(jobsStatus),
			ObjectType: jobsObject,
			Limit:      jobsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "jobs: list")
		}
		if jobs == nil {
			jobs = []model.CleansingJob{}
		}
		return writeJSON(os.Stdout, "", jobs)
	},
}

// jobDetail is the output of jobs show.
type jobDetail struct {
	Job    *model.CleansingJob     `json:"job"`
	Issues []model.ValidationIssue `json:"issues"`
}

var jobsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a job and its validation issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("jobs"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		detail, err := loadJobDetail(ctx, st, args[0], store.IssueFilter{
			Kind:  model.IssueKind(jobsIssueKind),
			Field: jobsIssueField,
			Limit: jobsIssueLimit,
		})
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, "", detail)
	},
}

// jobStats is the output of jobs stats.
type jobStats struct {
	Snapshot *monitoring.MetricsSnapshot `json:"snapshot"`
	Alerts   []monitoring.Alert          `json:"alerts"`
	Sent     int                         `json:"alerts_sent"`
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recent jobs and evaluate alert thresholds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if statsLookback > 0 {
			cfg.Monitoring.LookbackWindowHours = statsLookback
		}
		if err := cfg.Validate("stats"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := collectJobStats(ctx, st, cfg.Monitoring, statsAlert)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, "", stats)
	},
}

func init() {
	jobsStatsCmd.Flags().IntVar(&statsLookback, "lookback", 0, "hours of jobs to include (default from config)")
	jobsStatsCmd.Flags().BoolVar(&statsAlert, "alert", false, "post triggered alerts to monitoring.webhook_url")
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "only jobs in this status")
	jobsListCmd.Flags().StringVar(&jobsObject, "object", "", "only jobs for this object type")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 20, "max jobs to list")
	jobsShowCmd.Flags().StringVar(&jobsIssueKind, "kind", "", "only issues of this kind (e.g. required, duplicate)")
	jobsShowCmd.Flags().StringVar(&jobsIssueField, "field", "", "only issues on this field")
	jobsShowCmd.Flags().IntVar(&jobsIssueLimit, "issues", 100, "max issues to show")
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}

func loadJobDetail(ctx context.Context, st store.Store, id string, filter store.IssueFilter) (*jobDetail, error) {
	j, err := st.GetJob(ctx, id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, eris.Errorf("jobs: no job with id %s", id)
		}
		return nil, eris.Wrapf(err, "jobs: get %s", id)
	}
	issues, err := st.ListIssues(ctx, id, filter)
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: issues of %s", id)
	}
	if issues == nil {
		issues = []model.ValidationIssue{}
	}
	return &jobDetail{Job: j, Issues: issues}, nil
}

func collectJobStats(ctx context.Context, st store.Store, mc config.MonitoringConfig, send bool) (*jobStats, error) {
	snap, err := monitoring.NewCollector(st).Collect(ctx, mc.LookbackWindowHours)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: stats")
	}
	alerter := monitoring.NewAlerter(mc)
	alerts := alerter.Evaluate(snap)
	if alerts == nil {
		alerts = []monitoring.Alert{}
	}
	stats := &jobStats{Snapshot: snap, Alerts: alerts}
	if send {
		stats.Sent = alerter.SendAlerts(ctx, alerts)
	}
	return stats, nil
}
