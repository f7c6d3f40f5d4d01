package stats

import "sort"

// Set is an unordered collection of strings used for the identity-bearing
// aggregate fields (authors, credited contributors, versions).
type Set map[string]struct{}

// Add inserts v into the set.
func (s Set) Add(v string) {
	s[v] = struct{}{}
}

// AddAll inserts every element of other into the set.
func (s Set) AddAll(other Set) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Sorted returns the elements in ascending order. Used wherever set contents
// reach an output table, to keep runs byte-identical.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}

	sort.Strings(out)

	return out
}
