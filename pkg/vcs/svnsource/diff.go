package svnsource

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/repopulse/repopulse/pkg/vcs"
)

// parseUnifiedDiff counts added and deleted lines in svn unified diff
// output. File headers (---/+++), hunk markers, and the property-change
// sections svn appends after file diffs are excluded from the counts.
func parseUnifiedDiff(data []byte) vcs.DiffStats {
	var stats vcs.DiffStats

	inProps := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "Index: "):
			inProps = false
		case strings.HasPrefix(line, "Property changes on:"):
			inProps = true
		}

		if inProps {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			stats.Added++
		case strings.HasPrefix(line, "-"):
			stats.Deleted++
		}
	}

	return stats
}
