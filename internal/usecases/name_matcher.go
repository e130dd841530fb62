package usecases

import "strings"

// NameMatcher compares declared and ID-document names. Matching is exact
// after whitespace collapsing and upper-casing; there is no fuzzy scoring.
type NameMatcher struct{}

// Normalize collapses runs of whitespace, trims and upper-cases name
func (NameMatcher) Normalize(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// Match reports whether the names are equal and a score of 1 or 0
func (m NameMatcher) Match(declared, document string) (bool, float64) {
	d, v := m.Normalize(declared), m.Normalize(document)
	if d != "" && d == v {
		return true, 1.0
	}
	return false, 0.0
}
