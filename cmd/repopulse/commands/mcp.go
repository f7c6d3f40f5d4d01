package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/repopulse/repopulse/internal/mcp"
	"github.com/repopulse/repopulse/pkg/observability"
	"github.com/repopulse/repopulse/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var debug bool

	var cacheDir, cloneDir, metricsAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes repository activity analysis as a tool AI agents can
discover and invoke:
  - repopulse_activity: weekly and rolling-window commit activity aggregates`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			providers, err := initMCPObservability(debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			metrics, metricsErr := observability.NewPipelineMetrics(providers.Meter)
			if metricsErr != nil {
				return metricsErr
			}

			if metricsAddr != "" {
				diag, diagErr := observability.NewDiagnosticsServer(metricsAddr)
				if diagErr != nil {
					return diagErr
				}

				defer func() { _ = diag.Close() }()

				providers.Logger.Info("diagnostics endpoint up", "addr", diag.Addr())
			}

			deps := mcp.ServerDeps{
				Logger:   providers.Logger,
				Metrics:  metrics,
				CacheDir: cacheDir,
				CloneDir: cloneDir,
			}

			srv := mcp.NewServer(deps)

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "diff cache directory")
	cmd.Flags().StringVar(&cloneDir, "clone-dir", "", "git clone directory")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /healthz, /readyz, and /metrics at this address")

	return cmd
}

func initMCPObservability(debug bool) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.Mode = observability.ModeMCP
	cfg.LogJSON = true

	if debug {
		cfg.LogLevel = slog.LevelDebug
	}

	return observability.Init(cfg)
}
