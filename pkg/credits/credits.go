// Package credits extracts contributor-credit mentions from commit messages.
//
// The recognized convention is the "Props" marker: a commit message line
// containing the literal token Props (any casing) followed by a comma or
// whitespace separated list of usernames, each optionally prefixed with "@".
// The list ends at the first token that is not a username, at a token
// carrying a sentence-ending period, or at the end of the line. Multiple
// Props markers in one message are unioned into a single set.
package credits

import (
	"regexp"
	"strings"
)

// markerPattern locates a Props marker and captures the remainder of its line.
var markerPattern = regexp.MustCompile(`(?im)\bprops\b[:\s]+([^\n]*)`)

// usernamePattern matches one credited username token: optional @ prefix,
// alphanumeric start, then word characters including embedded periods and
// dashes. Trailing punctuation is captured separately so "user." credits
// "user" and terminates the list.
var usernamePattern = regexp.MustCompile(`^@?([A-Za-z0-9][A-Za-z0-9._-]*?)([.,;:!]*)$`)

// Extract returns the usernames credited in message, in order of first
// appearance. Names are deduplicated case-insensitively; the first-seen
// casing is kept. A message without a Props marker yields an empty result,
// never an error.
func Extract(message string) []string {
	var (
		credited []string
		seen     = map[string]bool{}
	)

	for _, match := range markerPattern.FindAllStringSubmatch(message, -1) {
		for _, name := range scanList(match[1]) {
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}

			seen[key] = true

			credited = append(credited, name)
		}
	}

	return credited
}

// scanList walks the tokens after one Props marker and collects usernames
// until the list terminates.
func scanList(rest string) []string {
	tokens := strings.FieldsFunc(rest, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	var names []string

	for _, token := range tokens {
		sub := usernamePattern.FindStringSubmatch(token)
		if sub == nil {
			break
		}

		name := sub[1]
		if name == "" {
			break
		}

		names = append(names, name)

		// A sentence-ending period after the name closes the list; anything
		// following it is prose, not credits.
		if strings.Contains(sub[2], ".") {
			break
		}
	}

	return names
}
