package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/repopulse/repopulse/internal/config"
	"github.com/repopulse/repopulse/pkg/observability"
	"github.com/repopulse/repopulse/pkg/stats"
)

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	var flags repoFlags

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render interactive HTML activity charts",
		Long: `Run the analysis and render interactive HTML charts of weekly activity
and rolling contributor counts. With a warm diff cache this is a cheap
re-aggregation; nothing already cached is fetched again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}

			return runPlot(cobraCmd.Context(), cfg)
		},
	}

	addRepoFlags(cmd, &flags)

	return cmd
}

func runPlot(ctx context.Context, cfg *config.Config) error {
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

	report, err := runEngine(ctx, cfg, providers, metrics, nil)
	if err != nil {
		return err
	}

	err = os.MkdirAll(cfg.Output.Dir, 0o750)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	weeklyPath := filepath.Join(cfg.Output.Dir, "weekly.html")

	err = renderToFile(weeklyPath, func(f *os.File) error {
		return stats.GenerateWeeklyPlot(report.Weekly, f)
	})
	if err != nil {
		return err
	}

	rollingPath := filepath.Join(cfg.Output.Dir, "rolling.html")

	err = renderToFile(rollingPath, func(f *os.File) error {
		return stats.GenerateRollingPlot(report.Rolling, f)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Charts written to %s and %s\n", weeklyPath, rollingPath)

	return nil
}

func renderToFile(path string, render func(*os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	err = render(file)
	if err != nil {
		_ = file.Close()

		return err
	}

	return file.Close()
}
