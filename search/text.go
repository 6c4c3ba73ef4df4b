package search

import (
	"strings"

	"github.com/poiesic/corpora/document"
)

// pattern is a lower-cased query matched as a literal substring.
type pattern string

// newPattern lower-cases the query. Blank queries are rejected.
func newPattern(query string) (pattern, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	return pattern(strings.ToLower(query)), nil
}

// matches reports whether any field contains the pattern, ignoring case.
func (p pattern) matches(fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), string(p)) {
			return true
		}
	}
	return false
}

// text degrades lists and nested objects to a single string so they can be
// matched like scalar columns.
func text(v any) string {
	return document.String(v)
}

func textList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return text(out)
}
