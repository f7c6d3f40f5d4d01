package diffcache

import (
	"context"
	"errors"
	"sync"

	"github.com/repopulse/repopulse/pkg/vcs"
)

// defaultWorkers bounds concurrent fetches when the caller does not say
// otherwise. Diff fetches are I/O bound; a small pool saturates most
// remote endpoints without tripping rate limits.
const defaultWorkers = 4

// defaultFlushEvery is the number of freshly fetched entries between
// incremental flushes. An interrupted run loses at most this many fetches.
const defaultFlushEvery = 100

// Resolver answers diff-stat lookups for batches of commits, hitting the
// store first and fanning misses out to the source across a bounded worker
// pool.
type Resolver struct {
	Source vcs.Source
	Store  *Store

	// Workers bounds concurrent fetches. Zero means defaultWorkers.
	Workers int

	// FlushEvery is the incremental flush interval in fetched entries.
	// Zero means defaultFlushEvery.
	FlushEvery int
}

// Result is the outcome of resolving one batch.
type Result struct {
	// Stats maps commit ID to resolved diff stats. Commits whose fetch
	// failed are absent.
	Stats map[string]vcs.DiffStats

	// Failures lists the commits that could not be resolved, for the
	// end-of-run summary. Failures are never cached; the next run retries
	// them.
	Failures []*vcs.FetchError

	// CacheHits and Fetched partition the successfully resolved commits.
	CacheHits int
	Fetched   int
}

// GetOrFetch resolves one commit: cache hit when present, otherwise a fetch
// through the source followed by a cache write. Fetch failures are returned
// as *FetchError and leave no cache entry behind.
func (r *Resolver) GetOrFetch(ctx context.Context, id string) (vcs.DiffStats, error) {
	if entry, ok := r.Store.Get(id); ok {
		return entry.Stats(), nil
	}

	stats, err := r.Source.FetchDiffStats(ctx, id)
	if err != nil {
		var fetchErr *vcs.FetchError
		if errors.As(err, &fetchErr) {
			return vcs.DiffStats{}, fetchErr
		}

		return vcs.DiffStats{}, &vcs.FetchError{CommitID: id, Err: err}
	}

	r.Store.Put(id, stats)

	return stats, nil
}

// fetchOutcome carries one worker result back to the collector.
type fetchOutcome struct {
	id    string
	stats vcs.DiffStats
	err   *vcs.FetchError
}

// Resolve answers diff stats for all ids. Cached commits are served from
// memory; the rest are fetched concurrently. onProgress, when non-nil, is
// called after each resolved commit with (done, total). The store is flushed
// incrementally and once more before returning, so entries persisted before
// an interruption stay valid for the next run. The returned error is non-nil
// only for fatal conditions (context cancellation, cache I/O); individual
// fetch failures land in Result.Failures.
func (r *Resolver) Resolve(ctx context.Context, ids []string, onProgress func(done, total int)) (*Result, error) {
	result := &Result{Stats: make(map[string]vcs.DiffStats, len(ids))}
	total := len(ids)
	done := 0

	progress := func() {
		done++
		if onProgress != nil {
			onProgress(done, total)
		}
	}

	var misses []string

	for _, id := range ids {
		entry, ok := r.Store.Get(id)
		if !ok {
			misses = append(misses, id)

			continue
		}

		result.Stats[id] = entry.Stats()
		result.CacheHits++

		progress()
	}

	if len(misses) == 0 {
		return result, nil
	}

	workers := r.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	if workers > len(misses) {
		workers = len(misses)
	}

	flushEvery := r.FlushEvery
	if flushEvery <= 0 {
		flushEvery = defaultFlushEvery
	}

	jobs := make(chan string)
	outcomes := make(chan fetchOutcome)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for id := range jobs {
				outcome := fetchOutcome{id: id}

				stats, err := r.GetOrFetch(ctx, id)
				if err != nil {
					var fetchErr *vcs.FetchError
					if errors.As(err, &fetchErr) {
						outcome.err = fetchErr
					} else {
						outcome.err = &vcs.FetchError{CommitID: id, Err: err}
					}
				} else {
					outcome.stats = stats
				}

				select {
				case outcomes <- outcome:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)

		for _, id := range misses {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	sinceFlush := 0

	for outcome := range outcomes {
		if outcome.err != nil {
			result.Failures = append(result.Failures, outcome.err)
			progress()

			continue
		}

		result.Stats[outcome.id] = outcome.stats
		result.Fetched++
		sinceFlush++

		progress()

		if sinceFlush >= flushEvery {
			err := r.Store.Flush()
			if err != nil {
				// Unblock remaining workers before bailing out.
				go func() {
					for range outcomes {
					}
				}()

				return result, err
			}

			sinceFlush = 0
		}
	}

	err := r.Store.Flush()
	if err != nil {
		return result, err
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	return result, nil
}
