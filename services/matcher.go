package services

import "strings"

// Matcher picks which dictionary entry an address refers to.
// It returns the matched candidate and its byte offset in text, or ("", -1).
type Matcher interface {
	Match(text string, candidates []string) (string, int)
}

// FirstMatch returns the first candidate, in list order, that occurs in the
// text. Overlapping names therefore depend on dictionary order.
type FirstMatch struct{}

func (FirstMatch) Match(text string, candidates []string) (string, int) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if idx := strings.Index(text, c); idx >= 0 {
			return c, idx
		}
	}
	return "", -1
}

// LongestMatch returns the longest candidate that occurs in the text; ties go
// to the earlier candidate in list order.
type LongestMatch struct{}

func (LongestMatch) Match(text string, candidates []string) (string, int) {
	best, bestIdx := "", -1
	for _, c := range candidates {
		if c == "" || len(c) <= len(best) {
			continue
		}
		if idx := strings.Index(text, c); idx >= 0 {
			best, bestIdx = c, idx
		}
	}
	return best, bestIdx
}

// NewMatcher returns the strategy registered under name ("first" or
// "longest"). Unknown names fall back to FirstMatch.
func NewMatcher(name string) Matcher {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "longest":
		return LongestMatch{}
	default:
		return FirstMatch{}
	}
}
