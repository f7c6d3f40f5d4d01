// Package commands implements the repopulse CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/repopulse/repopulse/internal/config"
	"github.com/repopulse/repopulse/pkg/analysis"
	"github.com/repopulse/repopulse/pkg/diffcache"
	"github.com/repopulse/repopulse/pkg/observability"
	"github.com/repopulse/repopulse/pkg/persist"
	"github.com/repopulse/repopulse/pkg/vcs"
	"github.com/repopulse/repopulse/pkg/vcs/gitsource"
	"github.com/repopulse/repopulse/pkg/vcs/svnsource"
	"github.com/repopulse/repopulse/pkg/version"
)

// repoFlags are the repository selection flags shared by analyze and plot.
type repoFlags struct {
	configPath string
	repo       string
	vcsName    string
	since      string
	to         string
	cacheDir   string
	outputDir  string
	workers    int
	window     int
}

// resolveConfig loads the config file and overlays the explicit flags.
// Flag values win over file values; file values win over defaults.
func (f *repoFlags) resolveConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	if f.repo != "" {
		cfg.Repo.URL = f.repo
	}

	if f.vcsName != "" {
		cfg.Repo.VCS = f.vcsName
	}

	if f.since != "" {
		cfg.Range.Since = f.since
	}

	if f.to != "" {
		cfg.Range.To = f.to
	}

	if f.cacheDir != "" {
		cfg.Cache.Dir = f.cacheDir
	}

	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}

	if f.workers > 0 {
		cfg.Pipeline.Workers = f.workers
	}

	if f.window > 0 {
		cfg.Pipeline.WindowWeeks = f.window
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	if cfg.Repo.URL == "" {
		return nil, fmt.Errorf("no repository given: pass --repo or set repo.url in %s.yaml", ".repopulse")
	}

	return cfg, nil
}

// buildSource constructs the VCS adapter named by the config.
func buildSource(ctx context.Context, cfg *config.Config) (vcs.Source, func(), error) {
	if cfg.Repo.VCS == "svn" {
		return svnsource.New(cfg.Repo.URL), func() {}, nil
	}

	repo, err := gitsource.EnsureCloned(ctx, cfg.Repo.URL, cfg.Repo.CloneDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open repository: %w", err)
	}

	return repo, repo.Free, nil
}

// cacheCodec maps a codec name to a persist codec. Validation has already
// constrained the name.
func cacheCodec(name string) persist.Codec {
	switch name {
	case "gob":
		return persist.NewGobCodec()
	case "lz4":
		return persist.NewLZ4Codec()
	default:
		return persist.NewJSONCodec()
	}
}

// openStore opens the diff cache for the configured repository.
func openStore(cfg *config.Config, source vcs.Source) (*diffcache.Store, error) {
	store, err := diffcache.Open(cfg.Cache.Dir, source.Name(), source.RepoID(), cacheCodec(cfg.Cache.Codec))
	if err != nil {
		return nil, fmt.Errorf("open diff cache: %w", err)
	}

	return store, nil
}

// initObservability builds providers from the config plus the standard OTel
// environment variables.
func initObservability(cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.LogJSON = cfg.Observability.LogJSON
	obsCfg.LogLevel = parseLogLevel(cfg.Observability.LogLevel)

	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}

	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders)
	if obsCfg.OTLPHeaders == nil {
		obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	}

	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure || os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"

	return observability.Init(obsCfg)
}

func parseLogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runEngine wires up the source, cache, and engine, and executes one run.
func runEngine(
	ctx context.Context,
	cfg *config.Config,
	providers observability.Providers,
	metrics *observability.PipelineMetrics,
	onProgress func(done, total int),
) (*analysis.Report, error) {
	source, cleanup, err := buildSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	store, err := openStore(cfg, source)
	if err != nil {
		return nil, err
	}

	defer func() { _ = store.Close() }()

	since, to, err := cfg.ParseRange()
	if err != nil {
		return nil, err
	}

	engine := &analysis.Engine{
		Source:      source,
		Cache:       store,
		WindowWeeks: cfg.Pipeline.WindowWeeks,
		Workers:     cfg.Pipeline.Workers,
		Logger:      providers.Logger,
		Metrics:     metrics,
		OnProgress:  onProgress,
	}

	return engine.Run(ctx, since, to)
}
