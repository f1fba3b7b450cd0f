// Package matcher provides a single regex façade over two backing engines:
// a default RE2-class engine (stdlib regexp) and an extended,
// look-around-capable engine (dlclark/regexp2), selected by which CLI flag
// compiled the pattern. Both are treated as black boxes; this package only
// adapts their APIs to one shared non-overlapping-match iterator.
package matcher

import (
	"regexp"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// Match is one non-overlapping match, as byte offsets into the haystack
// that produced it.
type Match struct {
	Start, End int
}

// Matcher finds non-overlapping matches in a byte slice and reports
// whether any match exists at all, mirroring the two call shapes the
// regex-based strategies need: regex_only's "split on every match" and
// regex_line's "does this line match at all".
type Matcher interface {
	FindAll(haystack []byte) []Match
	MatchAny(haystack []byte) bool
}

// defaultMatcher wraps stdlib regexp, the RE2-class engine without
// look-around that backs -g when neither -G nor -E is given.
type defaultMatcher struct {
	re *regexp.Regexp
}

// NewDefault compiles pattern with the default engine. When dotAll is
// true, "." matches newlines too, mirroring Oniguruma's MULTILINE option
// used by original teip when records span embedded newlines (-z mode).
func NewDefault(pattern string, dotAll bool) (Matcher, error) {
	if dotAll {
		pattern = "(?s)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid regex %q", pattern)
	}
	return &defaultMatcher{re: re}, nil
}

func (m *defaultMatcher) FindAll(haystack []byte) []Match {
	idx := m.re.FindAllIndex(haystack, -1)
	out := make([]Match, len(idx))
	for i, pair := range idx {
		out[i] = Match{Start: pair[0], End: pair[1]}
	}
	return out
}

func (m *defaultMatcher) MatchAny(haystack []byte) bool {
	return m.re.Match(haystack)
}

// extendedMatcher wraps dlclark/regexp2, the look-around-capable engine
// that backs -G and its alias -E.
type extendedMatcher struct {
	re *regexp2.Regexp
}

// NewExtended compiles pattern with the extended engine.
func NewExtended(pattern string, dotAll bool) (Matcher, error) {
	opts := regexp2.None
	if dotAll {
		opts |= regexp2.Singleline
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid regex %q", pattern)
	}
	return &extendedMatcher{re: re}, nil
}

func (m *extendedMatcher) FindAll(haystack []byte) []Match {
	var out []Match
	text := string(haystack)
	// regexp2 reports rune offsets; byteAt maps them back to byte offsets.
	byteAt := make([]int, 0, len(text)+1)
	for i := range text {
		byteAt = append(byteAt, i)
	}
	byteAt = append(byteAt, len(text))
	match, err := m.re.FindStringMatch(text)
	for err == nil && match != nil {
		out = append(out, Match{Start: byteAt[match.Index], End: byteAt[match.Index+match.Length]})
		match, err = m.re.FindNextMatch(match)
	}
	return out
}

func (m *extendedMatcher) MatchAny(haystack []byte) bool {
	match, err := m.re.FindStringMatch(string(haystack))
	return err == nil && match != nil
}
