// Package match provides include/exclude glob matching for object keys
// and file names, using doublestar semantics, plus static-prefix
// derivation so patterns can drive efficient prefix listings.
package match

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with the offending pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Config configures a Matcher. Both lists are optional: with no includes
// every name matches unless excluded.
type Config struct {
	// Includes are glob patterns a name must match at least one of.
	Includes []string

	// Excludes are glob patterns a name must not match any of.
	Excludes []string
}

// Matcher evaluates include/exclude glob patterns against names.
// It is safe for concurrent use after creation.
type Matcher struct {
	includes []string
	excludes []string
}

// New validates the configured patterns and builds a Matcher.
func New(cfg Config) (*Matcher, error) {
	for _, p := range append(append([]string{}, cfg.Includes...), cfg.Excludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
	}
	return &Matcher{
		includes: cfg.Includes,
		excludes: cfg.Excludes,
	}, nil
}

// Match reports whether name matches at least one include pattern (or the
// include list is empty) and no exclude pattern. Names are matched as-is:
// object keys are opaque strings, so no normalization is applied.
func (m *Matcher) Match(name string) bool {
	if len(m.includes) > 0 {
		matched := false
		for _, p := range m.includes {
			if matchPattern(p, name) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, p := range m.excludes {
		if matchPattern(p, name) {
			return false
		}
	}
	return true
}

// matchPattern matches name against a doublestar pattern. Patterns were
// validated at construction, so a match error cannot occur here.
func matchPattern(pattern, name string) bool {
	matched, err := doublestar.Match(pattern, name)
	if err != nil {
		return false
	}
	return matched
}
