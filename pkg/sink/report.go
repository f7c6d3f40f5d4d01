package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repopulse/repopulse/pkg/analysis"
	"github.com/repopulse/repopulse/pkg/persist"
)

// ReportDoc is the serializable view of a completed run: the aggregate
// tables plus the end-of-run error summary an operator needs to decide
// whether to re-run.
type ReportDoc struct {
	Repo        string    `json:"repo"         yaml:"repo"`
	VCS         string    `json:"vcs"          yaml:"vcs"`
	Since       string    `json:"since,omitempty" yaml:"since,omitempty"`
	To          string    `json:"to,omitempty"    yaml:"to,omitempty"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	TotalCommits int     `json:"total_commits" yaml:"total_commits"`
	ParseErrors  int     `json:"parse_errors"  yaml:"parse_errors"`
	CacheHits    int     `json:"cache_hits"    yaml:"cache_hits"`
	Fetched      int     `json:"fetched"       yaml:"fetched"`
	DurationSec  float64 `json:"duration_seconds" yaml:"duration_seconds"`

	// FailedCommits lists the identifiers whose diff stats could not be
	// resolved; re-running retries exactly this subset.
	FailedCommits []string `json:"failed_commits,omitempty" yaml:"failed_commits,omitempty"`

	Weekly  []WeekDoc   `json:"weekly"  yaml:"weekly"`
	Rolling []WindowDoc `json:"rolling" yaml:"rolling"`
}

// WeekDoc is one weekly bucket in serialized form.
type WeekDoc struct {
	WeekStart      string   `json:"week_start"      yaml:"week_start"`
	TotalCommits   int      `json:"total_commits"   yaml:"total_commits"`
	UniqueAuthors  int      `json:"unique_authors"  yaml:"unique_authors"`
	UniqueCredited int      `json:"unique_credited" yaml:"unique_credited"`
	LinesAdded     int      `json:"lines_added"     yaml:"lines_added"`
	LinesDeleted   int      `json:"lines_deleted"   yaml:"lines_deleted"`
	Versions       []string `json:"versions,omitempty" yaml:"versions,omitempty"`
}

// WindowDoc is one rolling window in serialized form.
type WindowDoc struct {
	WindowStart    string   `json:"window_start"    yaml:"window_start"`
	WindowEnd      string   `json:"window_end"      yaml:"window_end"`
	WeeksInWindow  int      `json:"weeks_in_window" yaml:"weeks_in_window"`
	TotalCommits   int      `json:"total_commits"   yaml:"total_commits"`
	UniqueAuthors  int      `json:"unique_authors"  yaml:"unique_authors"`
	UniqueCredited int      `json:"unique_credited" yaml:"unique_credited"`
	LinesAdded     int      `json:"lines_added"     yaml:"lines_added"`
	LinesDeleted   int      `json:"lines_deleted"   yaml:"lines_deleted"`
	Versions       []string `json:"versions,omitempty" yaml:"versions,omitempty"`
}

// NewReportDoc builds the serializable view of a report.
func NewReportDoc(report *analysis.Report) *ReportDoc {
	doc := &ReportDoc{
		Repo:         report.RepoID,
		VCS:          report.VCS,
		GeneratedAt:  time.Now().UTC(),
		TotalCommits: len(report.Commits),
		ParseErrors:  len(report.ParseErrors),
		CacheHits:    report.CacheHits,
		Fetched:      report.Fetched,
		DurationSec:  report.Duration.Seconds(),
	}

	if !report.Since.IsZero() {
		doc.Since = report.Since.Format(time.DateOnly)
	}

	if !report.To.IsZero() {
		doc.To = report.To.Format(time.DateOnly)
	}

	for _, failure := range report.FetchFailures {
		doc.FailedCommits = append(doc.FailedCommits, failure.CommitID)
	}

	for _, w := range report.Weekly {
		doc.Weekly = append(doc.Weekly, WeekDoc{
			WeekStart:      w.WeekStart.Format(time.DateOnly),
			TotalCommits:   w.TotalCommits,
			UniqueAuthors:  w.UniqueAuthors(),
			UniqueCredited: w.UniqueCredited(),
			LinesAdded:     w.LinesAdded,
			LinesDeleted:   w.LinesDeleted,
			Versions:       w.Versions.Sorted(),
		})
	}

	for _, r := range report.Rolling {
		doc.Rolling = append(doc.Rolling, WindowDoc{
			WindowStart:    r.WindowStart.Format(time.DateOnly),
			WindowEnd:      r.WindowEnd.Format(time.RFC3339),
			WeeksInWindow:  r.WeeksInWindow,
			TotalCommits:   r.TotalCommits,
			UniqueAuthors:  r.UniqueAuthors,
			UniqueCredited: r.UniqueCredited,
			LinesAdded:     r.LinesAdded,
			LinesDeleted:   r.LinesDeleted,
			Versions:       r.Versions,
		})
	}

	return doc
}

// WriteReportJSON writes the report document to dir/report.json atomically.
func WriteReportJSON(report *analysis.Report, dir string) error {
	err := persist.SaveState(dir, "report", persist.NewJSONCodec(), NewReportDoc(report))
	if err != nil {
		return fmt.Errorf("write report json: %w", err)
	}

	return nil
}

// WriteReportYAML writes the report document to dir/report.yaml.
func WriteReportYAML(report *analysis.Report, dir string) error {
	err := os.MkdirAll(dir, outputDirPerm)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := yaml.Marshal(NewReportDoc(report))
	if err != nil {
		return fmt.Errorf("marshal report yaml: %w", err)
	}

	path := filepath.Join(dir, "report.yaml")

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
