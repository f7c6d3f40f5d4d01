// Package analysis orchestrates a full history run: list commits from the
// version-control source, parse and credit them, resolve diff stats through
// the cache, and aggregate weekly and rolling activity.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/repopulse/repopulse/pkg/diffcache"
	"github.com/repopulse/repopulse/pkg/observability"
	"github.com/repopulse/repopulse/pkg/stats"
	"github.com/repopulse/repopulse/pkg/vcs"
)

// Engine runs the analysis pipeline over one repository.
type Engine struct {
	Source vcs.Source
	Cache  *diffcache.Store

	// WindowWeeks is the rolling window length. Zero means
	// stats.DefaultWindowWeeks.
	WindowWeeks int

	// Workers bounds concurrent diff fetches. Zero picks the resolver
	// default.
	Workers int

	// Logger receives run progress; nil disables logging.
	Logger *slog.Logger

	// Metrics receives run counters; nil disables recording.
	Metrics *observability.PipelineMetrics

	// OnProgress, when non-nil, is called after each resolved commit with
	// (done, total).
	OnProgress func(done, total int)
}

// Report is the complete outcome of one run.
type Report struct {
	RepoID string
	VCS    string
	Since  time.Time
	To     time.Time

	// Commits holds the fully resolved commits in timestamp order. Commits
	// whose diff fetch failed are excluded; their IDs are in FetchFailures.
	Commits []stats.Commit

	Weekly  []stats.WeeklyStats
	Rolling []stats.RollingStats

	// ParseErrors lists log entries skipped as malformed.
	ParseErrors []*vcs.ParseError

	// FetchFailures lists commits whose diff stats could not be resolved.
	// They are excluded from aggregation and will be retried next run.
	FetchFailures []*vcs.FetchError

	CacheHits int
	Fetched   int
	Duration  time.Duration
}

// Run executes the pipeline over [since, to]. Zero bounds disable the
// corresponding cutoff. Individual commit failures never abort the run;
// fatal errors (bad range, unreachable source, cache I/O) do.
func (e *Engine) Run(ctx context.Context, since, to time.Time) (*Report, error) {
	start := time.Now()

	if !since.IsZero() && !to.IsZero() && since.After(to) {
		return nil, &ConfigError{Err: fmt.Errorf("%w: %s > %s",
			ErrInvalidRange, since.Format(time.DateOnly), to.Format(time.DateOnly))}
	}

	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.InfoContext(ctx, "listing commits",
		"repo", e.Source.RepoID(), "vcs", e.Source.Name())

	raws, err := e.Source.ListCommits(ctx, since, to)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	commits, parseErrs := parseCommits(raws)

	logger.InfoContext(ctx, "parsed log",
		"entries", len(raws), "commits", len(commits), "parse_errors", len(parseErrs))

	resolver := &diffcache.Resolver{
		Source:  e.Source,
		Store:   e.Cache,
		Workers: e.Workers,
	}

	ids := make([]string, len(commits))
	for i, c := range commits {
		ids[i] = c.ID
	}

	resolved, err := resolver.Resolve(ctx, ids, e.OnProgress)
	if err != nil {
		return nil, fmt.Errorf("resolve diff stats: %w", err)
	}

	// Commits the source could not produce a diff for drop out of the
	// aggregate; the next run retries them because failures are not cached.
	kept := commits[:0]

	for _, c := range commits {
		diff, ok := resolved.Stats[c.ID]
		if !ok {
			continue
		}

		c.LinesAdded = diff.Added
		c.LinesDeleted = diff.Deleted

		kept = append(kept, c)
	}

	commits = kept

	sort.SliceStable(commits, func(i, j int) bool {
		if commits[i].Timestamp.Equal(commits[j].Timestamp) {
			return commits[i].ID < commits[j].ID
		}

		return commits[i].Timestamp.Before(commits[j].Timestamp)
	})

	weekly := stats.AggregateWeekly(commits, since, to)
	rolling := stats.AggregateRolling(weekly, e.WindowWeeks)

	report := &Report{
		RepoID:        e.Source.RepoID(),
		VCS:           e.Source.Name(),
		Since:         since,
		To:            to,
		Commits:       commits,
		Weekly:        weekly,
		Rolling:       rolling,
		ParseErrors:   parseErrs,
		FetchFailures: resolved.Failures,
		CacheHits:     resolved.CacheHits,
		Fetched:       resolved.Fetched,
		Duration:      time.Since(start),
	}

	e.Metrics.RecordRun(ctx, e.Source.Name(), observability.RunStats{
		Commits:     int64(len(commits)),
		ParseErrors: int64(len(parseErrs)),
		Fetches:     int64(resolved.Fetched),
		FetchErrors: int64(len(resolved.Failures)),
		CacheHits:   int64(resolved.CacheHits),
		CacheMisses: int64(resolved.Fetched + len(resolved.Failures)),
		Duration:    report.Duration,
	})

	logger.InfoContext(ctx, "run complete",
		"commits", len(commits),
		"weeks", len(weekly),
		"cache_hits", resolved.CacheHits,
		"fetched", resolved.Fetched,
		"fetch_failures", len(resolved.Failures),
		"duration", report.Duration)

	return report, nil
}
