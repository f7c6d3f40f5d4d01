// Package svnsource implements the vcs.Source capability by shelling out to
// the svn client. The log is fetched once as XML; per-revision line stats
// come from parsing unified diffs.
package svnsource

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/repopulse/repopulse/pkg/vcs"
)

// svnDateLayout is the timestamp format svn emits in XML logs.
const svnDateLayout = "2006-01-02T15:04:05.000000Z"

// runner abstracts svn invocation for tests.
type runner func(ctx context.Context, args ...string) ([]byte, error)

// Repo is an svn-backed commit source addressing a remote repository URL.
type Repo struct {
	url string
	run runner
}

// New returns a source for the given repository URL.
func New(repoURL string) *Repo {
	return &Repo{url: repoURL, run: runSvn}
}

// runSvn executes the svn client non-interactively.
func runSvn(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"--non-interactive"}, args...)

	out, err := exec.CommandContext(ctx, "svn", full...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("svn %s: %w: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}

		return nil, fmt.Errorf("svn %s: %w", args[0], err)
	}

	return out, nil
}

// Name implements vcs.Source.
func (r *Repo) Name() string {
	return "svn"
}

// RepoID implements vcs.Source.
func (r *Repo) RepoID() string {
	return r.url
}

// logXML mirrors the svn log --xml document shape.
type logXML struct {
	Entries []logEntryXML `xml:"logentry"`
}

type logEntryXML struct {
	Revision string `xml:"revision,attr"`
	Author   string `xml:"author"`
	Date     string `xml:"date"`
	Message  string `xml:"msg"`
}

// ListCommits implements vcs.Source. The range is passed to svn as date
// bounds; zero bounds fall back to the full history. Entries with a missing
// revision or an unparseable date are passed through with the defect intact
// so the caller can account for them as parse failures.
func (r *Repo) ListCommits(ctx context.Context, since, to time.Time) ([]vcs.RawCommit, error) {
	out, err := r.run(ctx, "log", "--xml", "--revision", revisionRange(since, to), r.url)
	if err != nil {
		return nil, err
	}

	return parseLog(out)
}

// revisionRange renders [since, to] as an svn date revision range.
func revisionRange(since, to time.Time) string {
	lower := "1"
	if !since.IsZero() {
		lower = "{" + since.UTC().Format("2006-01-02") + "}"
	}

	upper := "HEAD"
	if !to.IsZero() {
		// svn date revisions resolve to the last revision before the date,
		// so the bound is pushed one day past the requested end.
		upper = "{" + to.UTC().AddDate(0, 0, 1).Format("2006-01-02") + "}"
	}

	return lower + ":" + upper
}

// parseLog decodes an svn XML log into raw commits.
func parseLog(data []byte) ([]vcs.RawCommit, error) {
	var doc logXML

	err := xml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode svn log: %w", err)
	}

	commits := make([]vcs.RawCommit, 0, len(doc.Entries))

	for _, entry := range doc.Entries {
		raw := vcs.RawCommit{
			ID:      strings.TrimSpace(entry.Revision),
			Author:  entry.Author,
			Message: entry.Message,
		}

		when, err := time.Parse(svnDateLayout, entry.Date)
		if err == nil {
			raw.Timestamp = when.UTC()
		}

		commits = append(commits, raw)
	}

	return commits, nil
}

// FetchDiffStats implements vcs.Source by fetching the unified diff for a
// single revision and counting its changed lines.
func (r *Repo) FetchDiffStats(ctx context.Context, commitID string) (vcs.DiffStats, error) {
	out, err := r.run(ctx, "diff", "-c", commitID, r.url)
	if err != nil {
		if ctx.Err() != nil {
			return vcs.DiffStats{}, ctx.Err()
		}

		return vcs.DiffStats{}, &vcs.FetchError{CommitID: commitID, Err: err}
	}

	return parseUnifiedDiff(out), nil
}
