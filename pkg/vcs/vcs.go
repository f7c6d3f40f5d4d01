// Package vcs defines the version-control source capability consumed by the
// analysis engine. Concrete adapters (gitsource, svnsource) implement Source;
// the rest of the pipeline depends only on this interface.
package vcs

import (
	"context"
	"time"
)

// RawCommit is one log entry as emitted by a version-control system, before
// diff stats are resolved. ID is the commit hash for git and the revision
// number (decimal string) for SVN.
type RawCommit struct {
	ID        string
	Author    string
	Timestamp time.Time
	Message   string

	// TagRefs holds tag names pointing at this commit, when the backing
	// system exposes them cheaply (git). Empty for SVN.
	TagRefs []string
}

// DiffStats is the added/deleted line counts for one commit. This is the
// most expensive datum to obtain per commit and the unit the diff cache
// memoizes.
type DiffStats struct {
	Added   int `json:"lines_added"`
	Deleted int `json:"lines_deleted"`
}

// Total returns the total number of changed lines.
func (s DiffStats) Total() int {
	return s.Added + s.Deleted
}

// Source yields commit log entries and diff stats for one repository.
type Source interface {
	// Name identifies the backing system ("git" or "svn").
	Name() string

	// RepoID returns a stable identity for the repository, used to key
	// cache entries. Derived from the repository URL or path.
	RepoID() string

	// ListCommits returns the raw log entries with timestamps inside
	// [since, to], ordered as the backing system emits them. Callers must
	// not assume global timestamp order.
	ListCommits(ctx context.Context, since, to time.Time) ([]RawCommit, error)

	// FetchDiffStats resolves the line counts for one commit. Failures are
	// reported as *FetchError and must not be cached.
	FetchDiffStats(ctx context.Context, id string) (DiffStats, error)
}
