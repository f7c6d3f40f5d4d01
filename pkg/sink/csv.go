// Package sink serializes analysis reports to files: CSV tables for the
// per-commit, weekly, and rolling datasets, plus whole-report JSON/YAML.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/repopulse/repopulse/pkg/stats"
)

// outputDirPerm is the permission for created output directories.
const outputDirPerm = 0o750

// versionSeparator joins multiple release versions in one CSV cell.
const versionSeparator = ";"

// CommitsHeader is the column contract of the per-commit table.
var CommitsHeader = []string{
	"hash", "author_name", "commit_date",
	"lines_added", "lines_deleted", "version", "credited",
}

// WeeklyHeader is the column contract of the weekly table.
var WeeklyHeader = []string{
	"week_start", "total_commits", "unique_authors", "unique_credited",
	"total_lines_added", "total_lines_deleted", "versions_released",
}

// RollingHeader is the column contract of the rolling-window table.
var RollingHeader = []string{
	"window_start", "window_end", "weeks_in_window",
	"total_commits", "unique_authors", "unique_credited",
	"total_lines_added", "total_lines_deleted", "versions_released",
}

// WriteCommitsCSV writes the per-commit table to path, creating parent
// directories as needed.
func WriteCommitsCSV(commits []stats.Commit, path string) error {
	rows := make([][]string, 0, len(commits))

	for _, c := range commits {
		rows = append(rows, []string{
			c.ID,
			c.Author,
			c.Timestamp.Format(time.RFC3339),
			strconv.Itoa(c.LinesAdded),
			strconv.Itoa(c.LinesDeleted),
			c.Version,
			strings.Join(c.Credited, versionSeparator),
		})
	}

	return writeCSV(path, CommitsHeader, rows)
}

// WriteWeeklyCSV writes the weekly aggregate table to path.
func WriteWeeklyCSV(weekly []stats.WeeklyStats, path string) error {
	rows := make([][]string, 0, len(weekly))

	for _, w := range weekly {
		rows = append(rows, []string{
			w.WeekStart.Format(time.DateOnly),
			strconv.Itoa(w.TotalCommits),
			strconv.Itoa(w.UniqueAuthors()),
			strconv.Itoa(w.UniqueCredited()),
			strconv.Itoa(w.LinesAdded),
			strconv.Itoa(w.LinesDeleted),
			strings.Join(w.Versions.Sorted(), versionSeparator),
		})
	}

	return writeCSV(path, WeeklyHeader, rows)
}

// WriteRollingCSV writes the rolling-window table to path.
func WriteRollingCSV(rolling []stats.RollingStats, path string) error {
	rows := make([][]string, 0, len(rolling))

	for _, r := range rolling {
		rows = append(rows, []string{
			r.WindowStart.Format(time.DateOnly),
			r.WindowEnd.Format(time.RFC3339),
			strconv.Itoa(r.WeeksInWindow),
			strconv.Itoa(r.TotalCommits),
			strconv.Itoa(r.UniqueAuthors),
			strconv.Itoa(r.UniqueCredited),
			strconv.Itoa(r.LinesAdded),
			strconv.Itoa(r.LinesDeleted),
			strings.Join(r.Versions, versionSeparator),
		})
	}

	return writeCSV(path, RollingHeader, rows)
}

// WriteCommitsByYear splits the per-commit table into per-year files under
// dir/<year>/commits.csv, mirroring how long histories are browsed.
func WriteCommitsByYear(commits []stats.Commit, dir string) error {
	byYear := make(map[int][]stats.Commit)

	for _, c := range commits {
		year := c.Timestamp.Year()
		byYear[year] = append(byYear[year], c)
	}

	for year, yearCommits := range byYear {
		path := filepath.Join(dir, strconv.Itoa(year), "commits.csv")

		err := WriteCommitsCSV(yearCommits, path)
		if err != nil {
			return err
		}
	}

	return nil
}

// writeCSV writes one table atomically enough for reporting purposes:
// parent dirs are created, the header always precedes the rows, and the
// file is fully flushed before return.
func writeCSV(path string, header []string, rows [][]string) error {
	err := os.MkdirAll(filepath.Dir(path), outputDirPerm)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)

	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	err = writer.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	writer.Flush()

	err = writer.Error()
	if err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return file.Close()
}
