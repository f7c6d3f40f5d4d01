package analysis

import (
	"fmt"

	"github.com/repopulse/repopulse/pkg/credits"
	"github.com/repopulse/repopulse/pkg/stats"
	"github.com/repopulse/repopulse/pkg/vcs"
)

// parseCommits converts raw log entries into resolved commits, extracting
// credited contributors and release versions along the way. Malformed
// entries are collected as parse errors and skipped; a bad entry never
// aborts the run.
func parseCommits(raws []vcs.RawCommit) ([]stats.Commit, []*vcs.ParseError) {
	commits := make([]stats.Commit, 0, len(raws))

	var parseErrs []*vcs.ParseError

	for i, raw := range raws {
		if raw.ID == "" {
			parseErrs = append(parseErrs, &vcs.ParseError{
				Entry: fmt.Sprintf("entry #%d", i),
				Err:   vcs.ErrMissingID,
			})

			continue
		}

		if raw.Timestamp.IsZero() {
			parseErrs = append(parseErrs, &vcs.ParseError{
				Entry: raw.ID,
				Err:   vcs.ErrBadTimestamp,
			})

			continue
		}

		commit := stats.Commit{
			ID:        raw.ID,
			Author:    raw.Author,
			Timestamp: raw.Timestamp.UTC(),
			Credited:  credits.Extract(raw.Message),
		}

		if len(raw.TagRefs) > 0 {
			commit.Version = raw.TagRefs[0]
		}

		commits = append(commits, commit)
	}

	return commits, parseErrs
}
