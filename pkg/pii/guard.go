// Package pii provides the pattern-based guard that keeps
// personally-identifying information out of the binding store.
package pii

import "regexp"

// Classification is the result of inspecting a piece of text.
type Classification int

const (
	// Clean means no PII pattern matched.
	Clean Classification = iota
	// SuspectedPII means at least one pattern matched.
	SuspectedPII
)

// Classifier decides whether text may enter the store.
// Implementations are heuristics, not proof of absence: the guard is a
// compliance gate, not a security boundary.
type Classifier interface {
	Classify(text string) Classification
}

// Guard is the default Classifier. It checks, in order: an email address,
// a North-American phone number, and a 5-or-9-digit postal code.
type Guard struct {
	patterns []*regexp.Regexp
}

// NewGuard returns a Guard with the default pattern set.
func NewGuard() *Guard {
	return &Guard{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`),
			regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
			regexp.MustCompile(`\b\d{5}(-\d{4})?\b`),
		},
	}
}

// Classify returns SuspectedPII on the first matching pattern.
func (g *Guard) Classify(text string) Classification {
	for _, p := range g.patterns {
		if p.MatchString(text) {
			return SuspectedPII
		}
	}
	return Clean
}

var defaultGuard = NewGuard()

// ContainsPII reports whether text matches any default pattern.
func ContainsPII(text string) bool {
	return defaultGuard.Classify(text) == SuspectedPII
}
