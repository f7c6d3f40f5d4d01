package diffcache

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopulse/repopulse/pkg/persist"
	"github.com/repopulse/repopulse/pkg/vcs"
)

const testRepoURL = "https://develop.svn.example.org/"

func TestStore_OpenEmpty(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir(), "svn", testRepoURL, persist.NewJSONCodec())

	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
	assert.False(t, store.Has("1234"))
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir(), "svn", testRepoURL, persist.NewJSONCodec())
	require.NoError(t, err)

	store.Put("1234", vcs.DiffStats{Added: 10, Deleted: 3})

	entry, ok := store.Get("1234")

	require.True(t, ok)
	assert.Equal(t, 10, entry.LinesAdded)
	assert.Equal(t, 3, entry.LinesDeleted)
	assert.False(t, entry.FetchedAt.IsZero())
}

func TestStore_EntriesAreImmutable(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir(), "svn", testRepoURL, persist.NewJSONCodec())
	require.NoError(t, err)

	store.Put("1234", vcs.DiffStats{Added: 10, Deleted: 3})
	store.Put("1234", vcs.DiffStats{Added: 99, Deleted: 99})

	entry, ok := store.Get("1234")

	require.True(t, ok)
	assert.Equal(t, 10, entry.LinesAdded)
}

func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := Open(dir, "git", testRepoURL, persist.NewJSONCodec())
	require.NoError(t, err)

	store.Put("abc123", vcs.DiffStats{Added: 7, Deleted: 2})

	require.NoError(t, store.Close())

	reopened, err := Open(dir, "git", testRepoURL, persist.NewJSONCodec())
	require.NoError(t, err)

	entry, ok := reopened.Get("abc123")

	require.True(t, ok)
	assert.Equal(t, 7, entry.LinesAdded)
	assert.Equal(t, 2, entry.LinesDeleted)
}

func TestStore_LZ4CodecRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := Open(dir, "svn", testRepoURL, persist.NewLZ4Codec())
	require.NoError(t, err)

	store.Put("42", vcs.DiffStats{Added: 100, Deleted: 50})

	require.NoError(t, store.Flush())

	reopened, err := Open(dir, "svn", testRepoURL, persist.NewLZ4Codec())
	require.NoError(t, err)

	entry, ok := reopened.Get("42")

	require.True(t, ok)
	assert.Equal(t, 100, entry.LinesAdded)
}

func TestStore_CacheKeyedPerRepo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := Open(dir, "svn", "https://svn.example.org/a", persist.NewJSONCodec())
	require.NoError(t, err)

	second, err := Open(dir, "svn", "https://svn.example.org/b", persist.NewJSONCodec())
	require.NoError(t, err)

	first.Put("100", vcs.DiffStats{Added: 1})

	assert.True(t, first.Has("100"))
	assert.False(t, second.Has("100"))
	assert.NotEqual(t, first.Path(), second.Path())
}

func TestStore_RepoKeyNormalized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	withSlash, err := Open(dir, "svn", "https://SVN.example.org/repo/", persist.NewJSONCodec())
	require.NoError(t, err)

	without, err := Open(dir, "svn", "https://svn.example.org/repo", persist.NewJSONCodec())
	require.NoError(t, err)

	assert.Equal(t, withSlash.Path(), without.Path())
}

func TestStore_FlushSkipsWhenClean(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir(), "svn", testRepoURL, persist.NewJSONCodec())
	require.NoError(t, err)

	// Nothing written yet, so no file appears.
	require.NoError(t, store.Flush())

	_, statErr := os.Stat(store.Path())

	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir(), "svn", testRepoURL, persist.NewJSONCodec())
	require.NoError(t, err)

	store.Put("1", vcs.DiffStats{Added: 1})

	require.NoError(t, store.Flush())
	require.NoError(t, store.Clear())

	assert.Equal(t, 0, store.Len())

	_, statErr := os.Stat(store.Path())

	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_CorruptFileIsIOError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := Open(dir, "svn", testRepoURL, persist.NewJSONCodec())
	require.NoError(t, err)

	store.Put("1", vcs.DiffStats{})

	require.NoError(t, store.Flush())
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	_, err = Open(dir, "svn", testRepoURL, persist.NewJSONCodec())

	var ioErr *IOError

	require.ErrorAs(t, err, &ioErr)
}

func TestStore_FormatVersionMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := Open(dir, "svn", testRepoURL, persist.NewJSONCodec())
	require.NoError(t, err)

	payload := []byte(`{"format_version": 99, "repo_url": "x", "entries": {}}`)

	require.NoError(t, os.WriteFile(store.Path(), payload, 0o600))

	_, err = Open(dir, "svn", testRepoURL, persist.NewJSONCodec())

	require.ErrorIs(t, err, ErrFormatVersion)
}
