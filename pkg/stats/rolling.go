package stats

import "time"

// DefaultWindowWeeks is the span of a rolling window.
const DefaultWindowWeeks = 12

// RollingStats is the aggregate for one rolling window: the consecutive
// weeks ending at (and including) a given week. Identity sets are unioned
// across the constituent weeks before counting, so a contributor active in
// several weeks of the window counts once. Line counts are plain sums.
type RollingStats struct {
	// WindowStart is the Monday of the earliest constituent week.
	WindowStart time.Time

	// WindowEnd is the last second (Sunday 23:59:59 UTC) of the week the
	// window ends at.
	WindowEnd time.Time

	// WeeksInWindow is the number of constituent weeks. Less than the
	// nominal window size only near the start of the analyzed range; the
	// window is never padded with weeks before the range.
	WeeksInWindow int

	TotalCommits   int
	UniqueAuthors  int
	UniqueCredited int
	LinesAdded     int
	LinesDeleted   int

	// Versions lists the versions released within the window, sorted.
	Versions []string
}

// AggregateRolling emits one RollingStats per week of the weekly series,
// each covering the windowWeeks weeks ending at that week (fewer at the
// start of the series). The weekly series must be ordered by ascending
// WeekStart, as produced by AggregateWeekly.
func AggregateRolling(weekly []WeeklyStats, windowWeeks int) []RollingStats {
	if windowWeeks <= 0 {
		windowWeeks = DefaultWindowWeeks
	}

	windows := make([]RollingStats, 0, len(weekly))

	for i := range weekly {
		lo := i - windowWeeks + 1
		if lo < 0 {
			lo = 0
		}

		span := weekly[lo : i+1]

		authors, credited, versions := Set{}, Set{}, Set{}

		win := RollingStats{
			WindowStart:   span[0].WeekStart,
			WindowEnd:     weekEnd(weekly[i].WeekStart),
			WeeksInWindow: len(span),
		}

		for _, wk := range span {
			win.TotalCommits += wk.TotalCommits
			win.LinesAdded += wk.LinesAdded
			win.LinesDeleted += wk.LinesDeleted

			authors.AddAll(wk.Authors)
			credited.AddAll(wk.Credited)
			versions.AddAll(wk.Versions)
		}

		win.UniqueAuthors = len(authors)
		win.UniqueCredited = len(credited)
		win.Versions = versions.Sorted()

		windows = append(windows, win)
	}

	return windows
}

// weekEnd returns the last second of the ISO week starting at weekStart.
func weekEnd(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, daysPerWeek).Add(-time.Second)
}
