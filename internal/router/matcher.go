package router

import (
	"regexp"
	"strings"
)

// Route priority constants. Higher priority routes are tried first.
// Exact matches always beat wildcards; among wildcards the longest
// literal prefix wins, and on equal prefixes a multi-segment pattern
// beats a single-segment one.
const (
	priorityExactMatch    = 1000
	priorityWildcardMatch = 500

	// prefixWeight scales the literal prefix length so a one-character
	// longer prefix always outranks the multi-segment bonus.
	prefixWeight = 2

	multiSegmentBonus = 1
)

// PathMatcher is the interface for path matching.
type PathMatcher interface {
	Match(path string) bool
	Type() string
	Pattern() string
}

// ExactMatcher matches exact paths.
type ExactMatcher struct {
	path string
}

// NewExactMatcher creates a new exact path matcher.
func NewExactMatcher(path string) *ExactMatcher {
	return &ExactMatcher{path: path}
}

// Match checks if the path matches exactly.
func (m *ExactMatcher) Match(path string) bool {
	return path == m.path
}

// Type returns the matcher type.
func (m *ExactMatcher) Type() string {
	return "exact"
}

// Pattern returns the pattern.
func (m *ExactMatcher) Pattern() string {
	return m.path
}

// WildcardMatcher matches paths with wildcards (* and **).
type WildcardMatcher struct {
	pattern string
	regex   *regexp.Regexp
}

// NewWildcardMatcher creates a new wildcard path matcher.
func NewWildcardMatcher(pattern string) (*WildcardMatcher, error) {
	regex, err := regexp.Compile(wildcardToRegex(pattern))
	if err != nil {
		return nil, err
	}
	return &WildcardMatcher{pattern: pattern, regex: regex}, nil
}

// wildcardToRegex converts a wildcard pattern to a regex pattern.
// "**" crosses segment boundaries, "*" stops at the next slash.
func wildcardToRegex(pattern string) string {
	var result strings.Builder
	result.WriteString("^")

	i := 0
	for i < len(pattern) {
		switch {
		case i+1 < len(pattern) && pattern[i:i+2] == "**":
			result.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			result.WriteString("[^/]*")
			i++
		default:
			result.WriteString(regexp.QuoteMeta(string(pattern[i])))
			i++
		}
	}

	result.WriteString("$")
	return result.String()
}

// Match checks if the path matches the wildcard pattern.
func (m *WildcardMatcher) Match(path string) bool {
	return m.regex.MatchString(path)
}

// Type returns the matcher type.
func (m *WildcardMatcher) Type() string {
	return "wildcard"
}

// Pattern returns the pattern.
func (m *WildcardMatcher) Pattern() string {
	return m.pattern
}

// HasWildcards checks if a pattern contains wildcards.
func HasWildcards(pattern string) bool {
	return strings.Contains(pattern, "*")
}

// literalPrefix returns the pattern text before the first wildcard.
func literalPrefix(pattern string) string {
	if i := strings.IndexByte(pattern, '*'); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// newPathMatcher builds the matcher for a pattern and computes its
// priority.
func newPathMatcher(pattern string) (PathMatcher, int, error) {
	if !HasWildcards(pattern) {
		return NewExactMatcher(pattern), priorityExactMatch, nil
	}

	matcher, err := NewWildcardMatcher(pattern)
	if err != nil {
		return nil, 0, err
	}

	priority := priorityWildcardMatch + prefixWeight*len(literalPrefix(pattern))
	if strings.Contains(pattern, "**") {
		priority += multiSegmentBonus
	}
	return matcher, priority, nil
}
