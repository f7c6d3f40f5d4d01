package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateRolling_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, AggregateRolling(nil, DefaultWindowWeeks))
}

func TestAggregateRolling_DeduplicatesAcrossWeeks(t *testing.T) {
	t.Parallel()

	week1 := date(2024, time.January, 1, 0)

	commits := []Commit{
		{ID: "c1", Author: "alice", Timestamp: week1.Add(2 * time.Hour), Credited: []string{"bob"}},
		{ID: "c2", Author: "alice", Timestamp: week1.Add(4 * time.Hour), Credited: []string{"bob"}},
		{ID: "c3", Author: "alice", Timestamp: week1.Add(6 * time.Hour), Credited: []string{"bob"}},
		{ID: "c4", Author: "alice", Timestamp: week1.AddDate(0, 0, 8)},
		{ID: "c5", Author: "alice", Timestamp: week1.AddDate(0, 0, 9)},
	}

	weekly := AggregateWeekly(commits, week1, week1.AddDate(0, 0, 13))

	require.Len(t, weekly, 2)
	assert.Equal(t, 3, weekly[0].TotalCommits)
	assert.Equal(t, 1, weekly[0].UniqueAuthors())
	assert.Equal(t, 1, weekly[0].UniqueCredited())
	assert.Equal(t, 2, weekly[1].TotalCommits)
	assert.Equal(t, 1, weekly[1].UniqueAuthors())
	assert.Equal(t, 0, weekly[1].UniqueCredited())

	rolling := AggregateRolling(weekly, DefaultWindowWeeks)

	require.Len(t, rolling, 2)

	// Window ending at week 2 spans both weeks: alice counts once, not twice.
	win := rolling[1]
	assert.Equal(t, 5, win.TotalCommits)
	assert.Equal(t, 1, win.UniqueAuthors)
	assert.Equal(t, 1, win.UniqueCredited)
	assert.Equal(t, 2, win.WeeksInWindow)
}

func TestAggregateRolling_CardinalityNeverExceedsPerWeekSum(t *testing.T) {
	t.Parallel()

	week1 := date(2024, time.January, 1, 0)

	commits := []Commit{
		{ID: "c1", Author: "alice", Timestamp: week1},
		{ID: "c2", Author: "bob", Timestamp: week1.AddDate(0, 0, 7)},
		{ID: "c3", Author: "alice", Timestamp: week1.AddDate(0, 0, 14)},
	}

	weekly := AggregateWeekly(commits, week1, week1.AddDate(0, 0, 20))
	rolling := AggregateRolling(weekly, DefaultWindowWeeks)

	for _, win := range rolling {
		perWeekSum := 0

		for _, wk := range weekly {
			if !wk.WeekStart.Before(win.WindowStart) && wk.WeekStart.Before(win.WindowEnd) {
				perWeekSum += wk.UniqueAuthors()
			}
		}

		assert.LessOrEqual(t, win.UniqueAuthors, perWeekSum)
	}

	// alice repeats in the final window, so the inequality is strict there.
	assert.Equal(t, 2, rolling[2].UniqueAuthors)
}

func TestAggregateRolling_TruncatedAtRangeStart(t *testing.T) {
	t.Parallel()

	week1 := date(2024, time.January, 1, 0)

	var commits []Commit
	for i := 0; i < 15; i++ {
		commits = append(commits, Commit{
			ID:        string(rune('a' + i)),
			Author:    "dev",
			Timestamp: week1.AddDate(0, 0, i*7),
		})
	}

	weekly := AggregateWeekly(commits, week1, week1.AddDate(0, 0, 14*7))
	rolling := AggregateRolling(weekly, DefaultWindowWeeks)

	require.Len(t, rolling, 15)

	// Early windows hold only the weeks that exist; no phantom padding.
	assert.Equal(t, 1, rolling[0].WeeksInWindow)
	assert.Equal(t, 5, rolling[4].WeeksInWindow)
	assert.Equal(t, week1, rolling[4].WindowStart)

	// From week 12 on, the window is full and slides by one week.
	assert.Equal(t, 12, rolling[11].WeeksInWindow)
	assert.Equal(t, 12, rolling[14].WeeksInWindow)
	assert.Equal(t, week1.AddDate(0, 0, 3*7), rolling[14].WindowStart)
}

func TestAggregateRolling_WindowEndIsSundayLastSecond(t *testing.T) {
	t.Parallel()

	week1 := date(2024, time.January, 1, 0)

	weekly := AggregateWeekly([]Commit{{ID: "c", Author: "a", Timestamp: week1}}, week1, week1)
	rolling := AggregateRolling(weekly, DefaultWindowWeeks)

	require.Len(t, rolling, 1)
	assert.Equal(t, time.Date(2024, time.January, 7, 23, 59, 59, 0, time.UTC), rolling[0].WindowEnd)
}

func TestAggregateRolling_LineCountsSummedNotDeduplicated(t *testing.T) {
	t.Parallel()

	week1 := date(2024, time.January, 1, 0)

	commits := []Commit{
		{ID: "c1", Author: "a", Timestamp: week1, LinesAdded: 100, LinesDeleted: 20},
		{ID: "c2", Author: "a", Timestamp: week1.AddDate(0, 0, 7), LinesAdded: 50, LinesDeleted: 5},
	}

	weekly := AggregateWeekly(commits, week1, week1.AddDate(0, 0, 13))
	rolling := AggregateRolling(weekly, DefaultWindowWeeks)

	require.Len(t, rolling, 2)
	assert.Equal(t, 150, rolling[1].LinesAdded)
	assert.Equal(t, 25, rolling[1].LinesDeleted)
}

func TestAggregateRolling_VersionsUnioned(t *testing.T) {
	t.Parallel()

	week1 := date(2024, time.January, 1, 0)

	commits := []Commit{
		{ID: "c1", Author: "a", Timestamp: week1, Version: "6.4"},
		{ID: "c2", Author: "a", Timestamp: week1.AddDate(0, 0, 7), Version: "6.4.1"},
		{ID: "c3", Author: "a", Timestamp: week1.AddDate(0, 0, 8), Version: "6.4.1"},
	}

	weekly := AggregateWeekly(commits, week1, week1.AddDate(0, 0, 13))
	rolling := AggregateRolling(weekly, DefaultWindowWeeks)

	require.Len(t, rolling, 2)
	assert.Equal(t, []string{"6.4", "6.4.1"}, rolling[1].Versions)
}
