// ABOUTME: Keyword relevance filter for scanned messages
// ABOUTME: Case-insensitive substring matching against position keywords and stop words

// Package filter classifies message text as relevant or not using two keyword
// lists: position keywords that must appear and stop words that must not.
// Matching is plain substring matching on lowercased text, so "go" matches
// inside "golang".
package filter

import "strings"

// Filter holds the lowercased keyword lists. It is immutable after New.
type Filter struct {
	positions []string
	stopWords []string
}

// New builds a filter. Keywords are lowercased and otherwise kept as written,
// so surrounding spaces take part in matching (" go " does not match
// "golang"). Empty strings are dropped; order of positions is kept.
func New(positions, stopWords []string) *Filter {
	return &Filter{
		positions: normalize(positions),
		stopWords: normalize(stopWords),
	}
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		out = append(out, strings.ToLower(w))
	}
	return out
}

// IsRelevant reports whether text contains at least one position keyword and
// no stop word.
func (f *Filter) IsRelevant(text string) bool {
	text = strings.ToLower(text)

	for _, w := range f.stopWords {
		if strings.Contains(text, w) {
			return false
		}
	}
	for _, p := range f.positions {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// ExtractKeywords returns the position keywords found in text, in configured
// order. The result is empty, not nil, when nothing matches.
func (f *Filter) ExtractKeywords(text string) []string {
	return matches(strings.ToLower(text), f.positions)
}

func matches(text string, words []string) []string {
	found := []string{}
	for _, w := range words {
		if strings.Contains(text, w) {
			found = append(found, w)
		}
	}
	return found
}

// MatchedStopWords returns the stop words found in text, in configured order.
func (f *Filter) MatchedStopWords(text string) []string {
	return matches(strings.ToLower(text), f.stopWords)
}

// Positions returns a copy of the normalized position keywords.
func (f *Filter) Positions() []string {
	return append([]string(nil), f.positions...)
}

// StopWords returns a copy of the normalized stop words.
func (f *Filter) StopWords() []string {
	return append([]string(nil), f.stopWords...)
}
