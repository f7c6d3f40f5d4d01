// Package stats holds the commit data model and the windowed aggregation
// logic: per-ISO-week buckets and rolling multi-week windows with
// deduplicated contributor sets.
package stats

import "time"

// Commit is one fully resolved historical change: parsed log entry plus
// diff stats. Values are immutable once built.
type Commit struct {
	// ID is the commit hash (git) or revision number (SVN), exact and
	// lossless.
	ID string

	// Author is the committer's free-text name.
	Author string

	// Timestamp is the commit time, normalized to UTC.
	Timestamp time.Time

	LinesAdded   int
	LinesDeleted int

	// Version is the release tag pointing at this commit, empty when the
	// commit is untagged. Only numeric-pattern tags (e.g. "6.4.2") qualify.
	Version string

	// Credited holds the usernames credited in the commit message, in order
	// of first appearance. May be empty and may include the author.
	Credited []string
}

// WeekStart returns the Monday 00:00:00 UTC of the ISO week containing t.
// The timestamp is normalized to UTC before bucketing so a commit's week
// never depends on the local zone of the machine running the analysis.
func WeekStart(t time.Time) time.Time {
	utc := t.UTC()

	// time.Weekday is Sunday-based; shift so Monday is offset zero.
	offset := (int(utc.Weekday()) + 6) % daysPerWeek

	monday := utc.AddDate(0, 0, -offset)

	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

const daysPerWeek = 7
