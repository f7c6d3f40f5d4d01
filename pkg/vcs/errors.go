package vcs

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by ParseError.
var (
	// ErrMissingID marks a log entry without a usable commit identifier.
	ErrMissingID = errors.New("log entry has no commit identifier")

	// ErrBadTimestamp marks a log entry whose timestamp cannot be parsed.
	ErrBadTimestamp = errors.New("log entry has unparseable timestamp")
)

// ParseError reports one malformed log entry. The engine skips the entry,
// counts the failure, and continues the run.
type ParseError struct {
	// Entry is a short identification of the offending entry, best effort
	// (commit ID when known, otherwise a line or revision hint).
	Entry string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse log entry %s: %v", e.Entry, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed diff-stats fetch for one commit. The engine
// excludes the commit from aggregation and never caches the failure, so the
// next run retries it.
type FetchError struct {
	CommitID string
	Err      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch diff stats for %s: %v", e.CommitID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
