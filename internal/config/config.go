// Package config loads and validates repopulse configuration from file,
// environment, and defaults.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level configuration struct for repopulse.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Repo          RepoConfig          `mapstructure:"repo"`
	Range         RangeConfig         `mapstructure:"range"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Output        OutputConfig        `mapstructure:"output"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// RepoConfig identifies the repository under analysis.
type RepoConfig struct {
	// URL is the repository location: a git remote, an svn URL, or a local
	// path.
	URL string `mapstructure:"url"`

	// VCS selects the source adapter: "git" or "svn".
	VCS string `mapstructure:"vcs"`

	// CloneDir is where git repositories are cloned when URL is remote.
	CloneDir string `mapstructure:"clone_dir"`
}

// RangeConfig bounds the analyzed date range. Dates use YYYY-MM-DD; empty
// means unbounded.
type RangeConfig struct {
	Since string `mapstructure:"since"`
	To    string `mapstructure:"to"`
}

// CacheConfig holds diff cache settings.
type CacheConfig struct {
	Dir        string `mapstructure:"dir"`
	Codec      string `mapstructure:"codec"`
	FlushEvery int    `mapstructure:"flush_every"`
}

// OutputConfig holds result serialization settings.
type OutputConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"`
	ByYear  bool     `mapstructure:"by_year"`
}

// PipelineConfig holds engine resource knobs.
type PipelineConfig struct {
	Workers     int `mapstructure:"workers"`
	WindowWeeks int `mapstructure:"window_weeks"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
	LogLevel     string  `mapstructure:"log_level"`
	LogJSON      bool    `mapstructure:"log_json"`
}

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultVCS         = "git"
	DefaultCloneDir    = ".repopulse/clones"
	DefaultCacheDir    = ".repopulse/cache"
	DefaultCacheCodec  = "json"
	DefaultFlushEvery  = 100
	DefaultOutputDir   = "data"
	DefaultWorkers     = 4
	DefaultWindowWeeks = 12
	DefaultLogLevel    = "info"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidVCS indicates an unsupported vcs name.
	ErrInvalidVCS = errors.New("repo.vcs must be \"git\" or \"svn\"")
	// ErrInvalidCodec indicates an unsupported cache codec.
	ErrInvalidCodec = errors.New("cache.codec must be \"json\", \"gob\", or \"lz4\"")
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("pipeline.workers must be non-negative")
	// ErrInvalidWindowWeeks indicates the window length is negative.
	ErrInvalidWindowWeeks = errors.New("pipeline.window_weeks must be non-negative")
	// ErrInvalidFlushEvery indicates the flush interval is negative.
	ErrInvalidFlushEvery = errors.New("cache.flush_every must be non-negative")
	// ErrInvalidFormat indicates an unsupported output format.
	ErrInvalidFormat = errors.New("output.formats entries must be \"csv\", \"json\", or \"yaml\"")
	// ErrInvalidDate indicates a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("dates must use YYYY-MM-DD")
	// ErrRangeInverted indicates range.since is after range.to.
	ErrRangeInverted = errors.New("range.since must not be after range.to")
)

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Repo.VCS {
	case "", "git", "svn":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidVCS, c.Repo.VCS)
	}

	switch c.Cache.Codec {
	case "", "json", "gob", "lz4":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCodec, c.Cache.Codec)
	}

	if c.Pipeline.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Pipeline.WindowWeeks < 0 {
		return ErrInvalidWindowWeeks
	}

	if c.Cache.FlushEvery < 0 {
		return ErrInvalidFlushEvery
	}

	for _, format := range c.Output.Formats {
		switch format {
		case "csv", "json", "yaml":
		default:
			return fmt.Errorf("%w: got %q", ErrInvalidFormat, format)
		}
	}

	_, _, err := c.ParseRange()

	return err
}

// ParseRange parses the configured date bounds. Zero times mean unbounded.
func (c *Config) ParseRange() (since, to time.Time, err error) {
	if c.Range.Since != "" {
		since, err = time.Parse(time.DateOnly, c.Range.Since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: range.since %q", ErrInvalidDate, c.Range.Since)
		}
	}

	if c.Range.To != "" {
		to, err = time.Parse(time.DateOnly, c.Range.To)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: range.to %q", ErrInvalidDate, c.Range.To)
		}
	}

	if !since.IsZero() && !to.IsZero() && since.After(to) {
		return time.Time{}, time.Time{}, ErrRangeInverted
	}

	return since, to, nil
}
