package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/repopulse/repopulse/internal/config"
	"github.com/repopulse/repopulse/pkg/analysis"
	"github.com/repopulse/repopulse/pkg/observability"
	"github.com/repopulse/repopulse/pkg/sink"
)

// maxSummaryWeeks caps how many trailing weeks the terminal summary shows.
const maxSummaryWeeks = 12

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	var flags repoFlags

	var byYear, noProgress bool

	var formats []string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze repository activity over a date range",
		Long: `Analyze commit history and write weekly and rolling-window aggregate
tables. Diff stats are fetched once and cached on disk; re-running over an
overlapping range only fetches commits not seen before.

Examples:
  repopulse analyze --repo https://github.com/WordPress/wordpress-develop.git
  repopulse analyze --repo https://core.svn.wordpress.org/trunk --vcs svn --since 2023-01-01
  repopulse analyze --repo /srv/repos/core --since 2020-01-01 --to 2023-12-31 --workers 8`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}

			if byYear {
				cfg.Output.ByYear = true
			}

			if len(formats) > 0 {
				cfg.Output.Formats = formats

				err = cfg.Validate()
				if err != nil {
					return err
				}
			}

			return runAnalyze(cobraCmd.Context(), cfg, !noProgress)
		},
	}

	addRepoFlags(cmd, &flags)
	cmd.Flags().StringSliceVar(&formats, "format", nil, "output formats: csv, json, yaml")
	cmd.Flags().BoolVar(&byYear, "by-year", false, "additionally split commits.csv per year")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the fetch progress bar")

	return cmd
}

// addRepoFlags registers the repository selection flags on cmd.
func addRepoFlags(cmd *cobra.Command, flags *repoFlags) {
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&flags.repo, "repo", "", "repository URL or local path")
	cmd.Flags().StringVar(&flags.vcsName, "vcs", "", "version control system: git or svn")
	cmd.Flags().StringVar(&flags.since, "since", "", "lower date bound (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "upper date bound (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.cacheDir, "cache-dir", "", "diff cache directory")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "output directory")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "concurrent diff fetches")
	cmd.Flags().IntVar(&flags.window, "window-weeks", 0, "rolling window length in weeks")
}

func runAnalyze(ctx context.Context, cfg *config.Config, showProgress bool) error {
	providers, err := initObservability(cfg, observability.ModeCLI)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	metrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	var onProgress func(done, total int)

	if showProgress {
		var bar *progressbar.ProgressBar

		onProgress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Resolving diff stats"),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWriter(os.Stderr),
				)
			}

			_ = bar.Set(done)
		}
	}

	report, err := runEngine(ctx, cfg, providers, metrics, onProgress)
	if err != nil {
		var cfgErr *analysis.ConfigError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("%w (check --since/--to)", err)
		}

		return err
	}

	err = writeOutputs(report, cfg)
	if err != nil {
		return err
	}

	printSummary(report, cfg.Output.Dir)

	return nil
}

// writeOutputs serializes the report in every configured format.
func writeOutputs(report *analysis.Report, cfg *config.Config) error {
	dir := cfg.Output.Dir

	for _, format := range cfg.Output.Formats {
		var err error

		switch format {
		case "csv":
			err = writeCSVTables(report, dir, cfg.Output.ByYear)
		case "json":
			err = sink.WriteReportJSON(report, dir)
		case "yaml":
			err = sink.WriteReportYAML(report, dir)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func writeCSVTables(report *analysis.Report, dir string, byYear bool) error {
	err := sink.WriteCommitsCSV(report.Commits, filepath.Join(dir, "commits.csv"))
	if err != nil {
		return err
	}

	err = sink.WriteWeeklyCSV(report.Weekly, filepath.Join(dir, "weekly_aggregates.csv"))
	if err != nil {
		return err
	}

	err = sink.WriteRollingCSV(report.Rolling, filepath.Join(dir, "rolling_aggregates.csv"))
	if err != nil {
		return err
	}

	if byYear {
		return sink.WriteCommitsByYear(report.Commits, dir)
	}

	return nil
}

// printSummary renders the end-of-run summary: headline counters, the
// trailing weekly table, and the failure list operators re-run against.
func printSummary(report *analysis.Report, outputDir string) {
	bold := color.New(color.Bold)

	_, _ = bold.Printf("\n%s (%s)\n", report.RepoID, report.VCS)

	fmt.Printf("  commits %s   cache hits %s   fetched %s   took %s\n",
		humanize.Comma(int64(len(report.Commits))),
		humanize.Comma(int64(report.CacheHits)),
		humanize.Comma(int64(report.Fetched)),
		report.Duration.Round(10*time.Millisecond))

	if len(report.ParseErrors) > 0 {
		color.Yellow("  skipped %d malformed log entries", len(report.ParseErrors))
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Week", "Commits", "Authors", "Credited", "+Lines", "-Lines", "Versions"})

	weekly := report.Weekly
	if len(weekly) > maxSummaryWeeks {
		weekly = weekly[len(weekly)-maxSummaryWeeks:]
	}

	for _, w := range weekly {
		tw.AppendRow(table.Row{
			w.WeekStart.Format(time.DateOnly),
			w.TotalCommits,
			w.UniqueAuthors(),
			w.UniqueCredited(),
			humanize.Comma(int64(w.LinesAdded)),
			humanize.Comma(int64(w.LinesDeleted)),
			len(w.Versions),
		})
	}

	tw.Render()

	if len(report.FetchFailures) > 0 {
		color.Red("\n%d commits could not be resolved (re-run to retry):", len(report.FetchFailures))

		for _, failure := range report.FetchFailures {
			color.Red("  - %s: %v", failure.CommitID, failure.Err)
		}
	}

	fmt.Printf("\nTables written to %s\n", outputDir)
}
