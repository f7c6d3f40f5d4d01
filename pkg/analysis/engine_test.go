package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopulse/repopulse/pkg/diffcache"
	"github.com/repopulse/repopulse/pkg/persist"
	"github.com/repopulse/repopulse/pkg/vcs"
)

// fakeSource serves a canned commit log and deterministic diff stats.
type fakeSource struct {
	mu      sync.Mutex
	commits []vcs.RawCommit
	stats   map[string]vcs.DiffStats
	failing map[string]bool
	listErr error
	fetches int
}

func (f *fakeSource) Name() string { return "git" }

func (f *fakeSource) RepoID() string { return "https://example.org/repo.git" }

func (f *fakeSource) ListCommits(_ context.Context, _, _ time.Time) ([]vcs.RawCommit, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	return f.commits, nil
}

func (f *fakeSource) FetchDiffStats(_ context.Context, id string) (vcs.DiffStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++

	if f.failing[id] {
		return vcs.DiffStats{}, &vcs.FetchError{CommitID: id, Err: errors.New("network down")}
	}

	return f.stats[id], nil
}

func newEngine(t *testing.T, source *fakeSource) *Engine {
	t.Helper()

	store, err := diffcache.Open(t.TempDir(), source.Name(), source.RepoID(), persist.NewJSONCodec())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return &Engine{Source: source, Cache: store}
}

func rawCommit(id string, day int, author, message string) vcs.RawCommit {
	return vcs.RawCommit{
		ID:        id,
		Author:    author,
		Timestamp: time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
		Message:   message,
	}
}

func TestRunInvalidRange(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	engine := newEngine(t, source)

	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.Run(context.Background(), since, to)
	require.Error(t, err)

	var cfgErr *ConfigError

	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrInvalidRange)

	// The source must not have been contacted.
	assert.Zero(t, source.fetches)
}

func TestRunListFailurePropagates(t *testing.T) {
	t.Parallel()

	source := &fakeSource{listErr: errors.New("repository unreachable")}
	engine := newEngine(t, source)

	_, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository unreachable")
}

func TestRunAggregates(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		commits: []vcs.RawCommit{
			rawCommit("c1", 1, "alice", "Fix widget.\n\nProps bob, carol."),
			rawCommit("c2", 2, "alice", "Refactor widget."),
			rawCommit("c3", 8, "bob", "Docs.\n\nProps alice."),
		},
		stats: map[string]vcs.DiffStats{
			"c1": {Added: 10, Deleted: 2},
			"c2": {Added: 5, Deleted: 5},
			"c3": {Added: 1, Deleted: 0},
		},
	}
	engine := newEngine(t, source)

	report, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, report.Commits, 3)
	assert.Equal(t, "c1", report.Commits[0].ID)
	assert.Equal(t, 10, report.Commits[0].LinesAdded)
	assert.Equal(t, []string{"bob", "carol"}, report.Commits[0].Credited)

	// Jan 1 2024 is a Monday; c1+c2 land in week one, c3 in week two.
	require.Len(t, report.Weekly, 2)
	assert.Equal(t, 2, report.Weekly[0].TotalCommits)
	assert.Equal(t, 1, report.Weekly[1].TotalCommits)

	require.Len(t, report.Rolling, 2)
	assert.Equal(t, 3, report.Rolling[1].TotalCommits)
	assert.Equal(t, 2, report.Rolling[1].UniqueAuthors)

	assert.Empty(t, report.ParseErrors)
	assert.Empty(t, report.FetchFailures)
	assert.Equal(t, 3, report.Fetched)
}

func TestRunSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		commits: []vcs.RawCommit{
			rawCommit("c1", 1, "alice", "ok"),
			{ID: "", Author: "ghost", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			{ID: "c3", Author: "bob"}, // zero timestamp
		},
		stats: map[string]vcs.DiffStats{"c1": {Added: 1}},
	}
	engine := newEngine(t, source)

	report, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, report.Commits, 1)
	require.Len(t, report.ParseErrors, 2)

	assert.ErrorIs(t, report.ParseErrors[0], vcs.ErrMissingID)
	assert.ErrorIs(t, report.ParseErrors[1], vcs.ErrBadTimestamp)
	assert.Equal(t, "c3", report.ParseErrors[1].Entry)
}

func TestRunExcludesFetchFailures(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		commits: []vcs.RawCommit{
			rawCommit("c1", 1, "alice", "ok"),
			rawCommit("c2", 2, "bob", "also ok"),
		},
		stats:   map[string]vcs.DiffStats{"c1": {Added: 3}},
		failing: map[string]bool{"c2": true},
	}
	engine := newEngine(t, source)

	report, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, report.Commits, 1)
	assert.Equal(t, "c1", report.Commits[0].ID)

	require.Len(t, report.FetchFailures, 1)
	assert.Equal(t, "c2", report.FetchFailures[0].CommitID)

	// The failed commit is absent from the weekly aggregate.
	total := 0
	for _, w := range report.Weekly {
		total += w.TotalCommits
	}

	assert.Equal(t, 1, total)
}

func TestRunSecondRunServedFromCache(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		commits: []vcs.RawCommit{
			rawCommit("c1", 1, "alice", "ok"),
			rawCommit("c2", 2, "bob", "ok too"),
		},
		stats: map[string]vcs.DiffStats{
			"c1": {Added: 1},
			"c2": {Added: 2},
		},
	}
	engine := newEngine(t, source)

	first, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Fetched)
	assert.Equal(t, 0, first.CacheHits)

	second, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Fetched)
	assert.Equal(t, 2, second.CacheHits)
	assert.Equal(t, 2, source.fetches)
}

func TestRunProgressCallback(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		commits: []vcs.RawCommit{
			rawCommit("c1", 1, "a", "x"),
			rawCommit("c2", 2, "b", "y"),
			rawCommit("c3", 3, "c", "z"),
		},
		stats: map[string]vcs.DiffStats{"c1": {}, "c2": {}, "c3": {}},
	}
	engine := newEngine(t, source)

	var mu sync.Mutex

	var seen []string

	engine.OnProgress = func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		seen = append(seen, fmt.Sprintf("%d/%d", done, total))
	}

	_, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Len(t, seen, 3)
	assert.Contains(t, seen, "3/3")
}

func TestRunVersionFromTag(t *testing.T) {
	t.Parallel()

	tagged := rawCommit("c1", 1, "alice", "Release.")
	tagged.TagRefs = []string{"6.4"}

	source := &fakeSource{
		commits: []vcs.RawCommit{tagged},
		stats:   map[string]vcs.DiffStats{"c1": {}},
	}
	engine := newEngine(t, source)

	report, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, report.Commits, 1)
	assert.Equal(t, "6.4", report.Commits[0].Version)
	require.Len(t, report.Weekly, 1)
	assert.Equal(t, []string{"6.4"}, report.Weekly[0].Versions.Sorted())
}

func TestRunCommitsSortedByTimestamp(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		commits: []vcs.RawCommit{
			rawCommit("c3", 9, "a", "newest"),
			rawCommit("c1", 1, "b", "oldest"),
			rawCommit("c2", 5, "c", "middle"),
		},
		stats: map[string]vcs.DiffStats{"c1": {}, "c2": {}, "c3": {}},
	}
	engine := newEngine(t, source)

	report, err := engine.Run(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, report.Commits, 3)
	assert.Equal(t, "c1", report.Commits[0].ID)
	assert.Equal(t, "c2", report.Commits[1].ID)
	assert.Equal(t, "c3", report.Commits[2].ID)
}
