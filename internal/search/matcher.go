package search

import (
	"fmt"
	"regexp"
)

// Matcher decides whether a single line matches.
type Matcher interface {
	Match(line []byte) bool
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(line []byte) bool

// Match calls f(line).
func (f MatcherFunc) Match(line []byte) bool {
	return f(line)
}

// RegexpMatcher matches lines against a regular expression. Lines are matched as
// raw bytes, so invalid UTF-8 never prevents a match on the valid parts.
type RegexpMatcher struct {
	re *regexp.Regexp
}

// NewRegexpMatcher compiles pattern. With ignoreCase the match is case-insensitive.
func NewRegexpMatcher(pattern string, ignoreCase bool) (*RegexpMatcher, error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return &RegexpMatcher{re: re}, nil
}

// Match reports whether line contains a match.
func (m *RegexpMatcher) Match(line []byte) bool {
	return m.re.Match(line)
}

// String returns the compiled expression.
func (m *RegexpMatcher) String() string {
	return m.re.String()
}
