// Package diffcache memoizes per-commit diff stats in a persistent,
// per-repository store. A commit's historical diff never changes, so entries
// are written once and only removed by an explicit operator clear. The store
// is hydrated into memory once at open; lookups never touch the disk again
// within a run.
package diffcache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/repopulse/repopulse/pkg/persist"
	"github.com/repopulse/repopulse/pkg/vcs"
)

// formatVersion marks the on-disk cache layout. Bumped only on incompatible
// changes; a mismatch is surfaced as an IOError so the operator clears the
// cache instead of silently mixing layouts.
const formatVersion = 1

// repoKeyLen is the number of hex digits of the repo hash used in filenames.
const repoKeyLen = 12

// cacheDirPerm is the permission for created cache directories.
const cacheDirPerm = 0o750

// ErrFormatVersion is returned (wrapped in *IOError) when the on-disk cache
// was written by an incompatible version.
var ErrFormatVersion = errors.New("incompatible cache format version")

// IOError reports an unreadable or unwritable cache backing store. It is
// fatal for a run: memoization correctness cannot be guaranteed without the
// backing store.
type IOError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("diff cache %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Entry is one memoized fetch result.
type Entry struct {
	LinesAdded   int       `json:"lines_added"`
	LinesDeleted int       `json:"lines_deleted"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Stats converts the entry back to the fetch result it memoizes.
func (e Entry) Stats() vcs.DiffStats {
	return vcs.DiffStats{Added: e.LinesAdded, Deleted: e.LinesDeleted}
}

// state is the persisted file layout.
type state struct {
	FormatVersion int              `json:"format_version"`
	RepoURL       string           `json:"repo_url"`
	Entries       map[string]Entry `json:"entries"`
}

// Store is the persistent diff-stats cache for one repository. Safe for
// concurrent use; writes to the backing store happen only in Flush, Close
// and Clear.
type Store struct {
	dir     string
	base    string
	repoURL string
	codec   persist.Codec

	mu      sync.RWMutex
	entries map[string]Entry
	dirty   bool
}

// Open hydrates the cache for the given repository. The backing file lives
// at {dir}/{vcsName}/{hash(repoURL)}{codec extension}; a missing file yields
// an empty cache, any other read failure an *IOError.
func Open(dir, vcsName, repoURL string, codec persist.Codec) (*Store, error) {
	st := &Store{
		dir:     filepath.Join(dir, vcsName),
		base:    repoKey(repoURL),
		repoURL: repoURL,
		codec:   codec,
		entries: map[string]Entry{},
	}

	err := os.MkdirAll(st.dir, cacheDirPerm)
	if err != nil {
		return nil, &IOError{Path: st.dir, Err: err}
	}

	var persisted state

	err = persist.LoadState(st.dir, st.base, codec, &persisted)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return st, nil
	case err != nil:
		return nil, &IOError{Path: st.Path(), Err: err}
	}

	if persisted.FormatVersion != formatVersion {
		return nil, &IOError{
			Path: st.Path(),
			Err:  fmt.Errorf("%w: have %d, want %d", ErrFormatVersion, persisted.FormatVersion, formatVersion),
		}
	}

	if persisted.Entries != nil {
		st.entries = persisted.Entries
	}

	return st, nil
}

// repoKey derives the cache filename from the repository URL. Normalized so
// trailing slashes and casing do not split one repository across files.
func repoKey(repoURL string) string {
	normalized := strings.ToLower(strings.TrimRight(repoURL, "/"))
	sum := md5.Sum([]byte(normalized)) //nolint:gosec // filename derivation, not security.

	return hex.EncodeToString(sum[:])[:repoKeyLen]
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.base+s.codec.Extension())
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Get returns the cached entry for a commit, if present.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]

	return e, ok
}

// Has reports whether the commit is cached.
func (s *Store) Has(id string) bool {
	_, ok := s.Get(id)

	return ok
}

// Put records a successful fetch. Entries are immutable: a second Put for
// the same commit is a no-op, keeping the first observed value.
func (s *Store) Put(id string, stats vcs.DiffStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return
	}

	s.entries[id] = Entry{
		LinesAdded:   stats.Added,
		LinesDeleted: stats.Deleted,
		FetchedAt:    time.Now().UTC(),
	}
	s.dirty = true
}

// Flush persists the current entries when anything changed since the last
// flush. The write is atomic with respect to process termination: a crash
// leaves either the previous or the new file, never a torn one.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	snapshot := state{
		FormatVersion: formatVersion,
		RepoURL:       s.repoURL,
		Entries:       s.entries,
	}

	err := persist.SaveState(s.dir, s.base, s.codec, &snapshot)
	if err != nil {
		return &IOError{Path: s.Path(), Err: err}
	}

	s.dirty = false

	return nil
}

// Close flushes pending entries. The store stays usable afterwards; Close
// exists so callers can defer the final flush.
func (s *Store) Close() error {
	return s.Flush()
}

// Clear removes the backing file and empties the in-memory index. This is
// the only way entries are ever evicted.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &IOError{Path: s.Path(), Err: err}
	}

	s.entries = map[string]Entry{}
	s.dirty = false

	return nil
}
