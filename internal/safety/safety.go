// Package safety holds the pattern-based checks that run before any
// engagement or post action.
package safety

import (
	"fmt"
	"regexp"
)

// Filter rejects text matching any of its patterns. An empty pattern set
// is permissive: nothing is flagged.
type Filter struct {
	patterns []*regexp.Regexp
}

func NewFilter(patterns []string) (*Filter, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid safety pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Filter{patterns: compiled}, nil
}

// Offensive reports whether text matches any configured pattern. A match
// blocks every engagement action for the item it belongs to.
func (f *Filter) Offensive(text string) bool {
	for _, re := range f.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
