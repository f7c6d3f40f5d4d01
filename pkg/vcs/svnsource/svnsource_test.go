package svnsource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopulse/repopulse/pkg/vcs"
)

const sampleLog = `<?xml version="1.0" encoding="UTF-8"?>
<log>
<logentry revision="57296">
<author>SergeyBiryukov</author>
<date>2024-01-15T10:30:45.123456Z</date>
<msg>Docs: Fix typos.

Props westonruter, mukesh27.</msg>
</logentry>
<logentry revision="57295">
<author>joedolson</author>
<date>2024-01-14T08:00:00.000000Z</date>
<msg>Accessibility: Improve labels.</msg>
</logentry>
</log>`

func TestParseLog(t *testing.T) {
	t.Parallel()

	commits, err := parseLog([]byte(sampleLog))
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "57296", commits[0].ID)
	assert.Equal(t, "SergeyBiryukov", commits[0].Author)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 45, 123456000, time.UTC), commits[0].Timestamp)
	assert.Contains(t, commits[0].Message, "Props westonruter")

	assert.Equal(t, "57295", commits[1].ID)
}

func TestParseLogBadDateKeptAsZero(t *testing.T) {
	t.Parallel()

	data := `<log><logentry revision="10"><author>a</author><date>not-a-date</date><msg>m</msg></logentry></log>`

	commits, err := parseLog([]byte(data))
	require.NoError(t, err)
	require.Len(t, commits, 1)

	assert.True(t, commits[0].Timestamp.IsZero())
}

func TestParseLogMissingRevision(t *testing.T) {
	t.Parallel()

	data := `<log><logentry><author>a</author><date>2024-01-14T08:00:00.000000Z</date><msg>m</msg></logentry></log>`

	commits, err := parseLog([]byte(data))
	require.NoError(t, err)
	require.Len(t, commits, 1)

	assert.Empty(t, commits[0].ID)
}

func TestParseLogMalformedXML(t *testing.T) {
	t.Parallel()

	_, err := parseLog([]byte("<log><logentry"))
	assert.Error(t, err)
}

func TestParseUnifiedDiff(t *testing.T) {
	t.Parallel()

	diff := `Index: src/wp-includes/functions.php
===================================================================
--- src/wp-includes/functions.php	(revision 57295)
+++ src/wp-includes/functions.php	(revision 57296)
@@ -10,7 +10,8 @@
 unchanged
-removed line one
-removed line two
+added line one
+added line two
+added line three
 unchanged
`

	stats := parseUnifiedDiff([]byte(diff))
	assert.Equal(t, 3, stats.Added)
	assert.Equal(t, 2, stats.Deleted)
}

func TestParseUnifiedDiffSkipsPropertySections(t *testing.T) {
	t.Parallel()

	diff := `Index: trunk
===================================================================
--- trunk	(revision 100)
+++ trunk	(revision 101)
@@ -1,1 +1,1 @@
-old
+new

Property changes on: trunk
___________________________________________________________________
Modified: svn:mergeinfo
## -0,0 +0,1 ##
   Merged /branches/x:r99
Index: other.txt
===================================================================
--- other.txt	(revision 100)
+++ other.txt	(revision 101)
@@ -1,0 +1,1 @@
+appended
`

	stats := parseUnifiedDiff([]byte(diff))
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, 1, stats.Deleted)
}

func TestParseUnifiedDiffEmpty(t *testing.T) {
	t.Parallel()

	stats := parseUnifiedDiff(nil)
	assert.Equal(t, 0, stats.Added)
	assert.Equal(t, 0, stats.Deleted)
}

func TestRevisionRange(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1:HEAD", revisionRange(time.Time{}, time.Time{}))

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "{2024-01-01}:{2024-04-01}", revisionRange(since, to))
}

func TestListCommitsUsesRunner(t *testing.T) {
	t.Parallel()

	var gotArgs []string

	repo := New("https://core.svn.wordpress.org/trunk")
	repo.run = func(_ context.Context, args ...string) ([]byte, error) {
		gotArgs = args

		return []byte(sampleLog), nil
	}

	commits, err := repo.ListCommits(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Len(t, commits, 2)
	assert.Equal(t, []string{"log", "--xml", "--revision", "1:HEAD", "https://core.svn.wordpress.org/trunk"}, gotArgs)
}

func TestFetchDiffStatsWrapsFailure(t *testing.T) {
	t.Parallel()

	repo := New("https://example.org/svn")
	repo.run = func(_ context.Context, _ ...string) ([]byte, error) {
		return nil, assert.AnError
	}

	_, err := repo.FetchDiffStats(context.Background(), "57296")
	require.Error(t, err)

	var fetchErr *vcs.FetchError

	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "57296", fetchErr.CommitID)
}
