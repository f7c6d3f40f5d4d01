package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommitsTotal     = "repopulse.run.commits.total"
	metricParseErrorsTotal = "repopulse.run.parse_errors.total"
	metricFetchesTotal     = "repopulse.run.fetches.total"
	metricFetchErrorsTotal = "repopulse.run.fetch_errors.total"
	metricCacheHitsTotal   = "repopulse.cache.hits.total"
	metricCacheMissesTotal = "repopulse.cache.misses.total"
	metricRunDuration      = "repopulse.run.duration.seconds"

	attrVCS = "vcs"
)

// runDurationBoundaries covers seconds-long cached reruns up to hour-long
// cold fetches over multi-year histories.
var runDurationBoundaries = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}

// PipelineMetrics holds OTel instruments for one analysis pipeline run.
type PipelineMetrics struct {
	commitsTotal metric.Int64Counter
	parseErrors  metric.Int64Counter
	fetchesTotal metric.Int64Counter
	fetchErrors  metric.Int64Counter
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	runDuration  metric.Float64Histogram
}

// RunStats holds the counters accumulated over a single pipeline run,
// decoupled from engine types.
type RunStats struct {
	Commits     int64
	ParseErrors int64
	Fetches     int64
	FetchErrors int64
	CacheHits   int64
	CacheMisses int64
	Duration    time.Duration
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	commits, err := mt.Int64Counter(metricCommitsTotal,
		metric.WithDescription("Total commits aggregated"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsTotal, err)
	}

	parseErrs, err := mt.Int64Counter(metricParseErrorsTotal,
		metric.WithDescription("Log entries skipped as malformed"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricParseErrorsTotal, err)
	}

	fetches, err := mt.Int64Counter(metricFetchesTotal,
		metric.WithDescription("Diff stat fetches issued to the VCS"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFetchesTotal, err)
	}

	fetchErrs, err := mt.Int64Counter(metricFetchErrorsTotal,
		metric.WithDescription("Diff stat fetches that failed"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFetchErrorsTotal, err)
	}

	hits, err := mt.Int64Counter(metricCacheHitsTotal,
		metric.WithDescription("Diff cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricCacheMissesTotal,
		metric.WithDescription("Diff cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMissesTotal, err)
	}

	runDur, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("End-to-end pipeline run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(runDurationBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	return &PipelineMetrics{
		commitsTotal: commits,
		parseErrors:  parseErrs,
		fetchesTotal: fetches,
		fetchErrors:  fetchErrs,
		cacheHits:    hits,
		cacheMisses:  misses,
		runDuration:  runDur,
	}, nil
}

// RecordRun records the counters for a completed pipeline run tagged with
// the backing VCS name. Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordRun(ctx context.Context, vcsName string, stats RunStats) {
	if pm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrVCS, vcsName))

	pm.commitsTotal.Add(ctx, stats.Commits, attrs)
	pm.parseErrors.Add(ctx, stats.ParseErrors, attrs)
	pm.fetchesTotal.Add(ctx, stats.Fetches, attrs)
	pm.fetchErrors.Add(ctx, stats.FetchErrors, attrs)
	pm.cacheHits.Add(ctx, stats.CacheHits, attrs)
	pm.cacheMisses.Add(ctx, stats.CacheMisses, attrs)
	pm.runDuration.Record(ctx, stats.Duration.Seconds(), attrs)
}
