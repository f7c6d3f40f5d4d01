package stats

import "time"

// WeeklyStats is the aggregate for one ISO week (Monday start). Identity
// fields are kept as sets so rolling windows can union them without
// double-counting repeat contributors.
type WeeklyStats struct {
	WeekStart    time.Time
	TotalCommits int
	Authors      Set
	Credited     Set
	LinesAdded   int
	LinesDeleted int
	Versions     Set
}

// UniqueAuthors returns the number of distinct commit authors in the week.
func (w WeeklyStats) UniqueAuthors() int {
	return len(w.Authors)
}

// UniqueCredited returns the number of distinct credited contributors in
// the week.
func (w WeeklyStats) UniqueCredited() int {
	return len(w.Credited)
}

// AggregateWeekly buckets commits into ISO weeks and returns one WeeklyStats
// per week, ordered by ascending WeekStart. The result covers the contiguous
// Monday grid spanning [since, to]; weeks without commits appear with zero
// counters so the series stays gap-free for downstream consumers. Commits are
// bucketed by their own timestamps, never by arrival order.
func AggregateWeekly(commits []Commit, since, to time.Time) []WeeklyStats {
	first, last, ok := weekGrid(commits, since, to)
	if !ok {
		return nil
	}

	buckets := map[time.Time]*WeeklyStats{}
	for ws := first; !ws.After(last); ws = ws.AddDate(0, 0, daysPerWeek) {
		buckets[ws] = &WeeklyStats{
			WeekStart: ws,
			Authors:   Set{},
			Credited:  Set{},
			Versions:  Set{},
		}
	}

	for _, c := range commits {
		bucket := buckets[WeekStart(c.Timestamp)]
		if bucket == nil {
			continue
		}

		bucket.TotalCommits++
		bucket.LinesAdded += c.LinesAdded
		bucket.LinesDeleted += c.LinesDeleted
		bucket.Authors.Add(c.Author)

		for _, name := range c.Credited {
			bucket.Credited.Add(name)
		}

		if c.Version != "" {
			bucket.Versions.Add(c.Version)
		}
	}

	weeks := make([]WeeklyStats, 0, len(buckets))
	for ws := first; !ws.After(last); ws = ws.AddDate(0, 0, daysPerWeek) {
		weeks = append(weeks, *buckets[ws])
	}

	return weeks
}

// weekGrid determines the first and last week of the output series: the
// weeks of [since, to], widened to cover any commit that falls outside the
// requested range so no commit is silently dropped.
func weekGrid(commits []Commit, since, to time.Time) (first, last time.Time, ok bool) {
	switch {
	case !since.IsZero() && !to.IsZero():
		first, last = WeekStart(since), WeekStart(to)
	case len(commits) > 0:
		first, last = WeekStart(commits[0].Timestamp), WeekStart(commits[0].Timestamp)
	default:
		return time.Time{}, time.Time{}, false
	}

	for _, c := range commits {
		ws := WeekStart(c.Timestamp)
		if ws.Before(first) {
			first = ws
		}

		if ws.After(last) {
			last = ws
		}
	}

	return first, last, true
}
