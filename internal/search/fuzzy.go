package search

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// wordMatch is a name that matched every query word
type wordMatch struct {
	Index          int
	Score          int
	MatchedIndexes []int
}

// word is a run of letters or digits and its rune span in the source
type word struct {
	text       string
	start, end int
}

// matchWords matches each query word against the words of every name.
// All query words must match (in any order); each name word is used at
// most once. Results are sorted best first.
func matchWords(query string, names []string) []wordMatch {
	queryWords := splitWords(query)
	if len(queryWords) == 0 {
		return nil
	}

	var matches []wordMatch
	for i, name := range names {
		if m, ok := matchName(name, queryWords); ok {
			m.Index = i
			matches = append(matches, m)
		}
	}
	slices.SortStableFunc(matches, func(a, b wordMatch) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		return cmp.Compare(len(names[a.Index]), len(names[b.Index]))
	})
	return matches
}

func splitWords(text string) []word {
	var words []word
	runes := []rune(strings.ToLower(text))
	start := -1
	for i, r := range runes {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			words = append(words, word{string(runes[start:i]), start, i})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, word{string(runes[start:]), start, len(runes)})
	}
	return words
}

func matchName(name string, queryWords []word) (wordMatch, bool) {
	nameWords := splitWords(name)
	used := make([]bool, len(nameWords))

	var m wordMatch
	for _, q := range queryWords {
		best, bestScore, bestSpan := -1, -1, []int(nil)
		for i, w := range nameWords {
			if used[i] {
				continue
			}
			if score, span, ok := matchWord(q.text, w); ok && (best < 0 || score < bestScore) {
				best, bestScore, bestSpan = i, score, span
			}
		}
		if best < 0 {
			return wordMatch{}, false
		}
		used[best] = true
		m.Score += bestScore
		m.MatchedIndexes = append(m.MatchedIndexes, bestSpan...)
	}

	// Prefer names without many unmatched words
	if extra := len(nameWords) - len(queryWords); extra > 0 {
		m.Score += extra * 5
	}
	slices.Sort(m.MatchedIndexes)
	m.MatchedIndexes = slices.Compact(m.MatchedIndexes)
	return m, true
}

// matchWord scores q against w: exact, prefix, substring, then a small
// number of typos. It returns the matched rune positions.
func matchWord(q string, w word) (score int, span []int, ok bool) {
	qLen := len([]rune(q))
	switch {
	case q == w.text:
		return 0, runeSpan(w.start, w.end), true
	case strings.HasPrefix(w.text, q):
		return 10, runeSpan(w.start, w.start+qLen), true
	case strings.HasPrefix(q, w.text):
		return 20, runeSpan(w.start, w.end), true
	}
	if i := strings.Index(w.text, q); i >= 0 {
		start := w.start + len([]rune(w.text[:i]))
		return 50 + i, runeSpan(start, start+qLen), true
	}
	if typos := allowedTypos(qLen); typos > 0 {
		if d := fuzzy.LevenshteinDistance(q, w.text); d <= typos {
			return 100 + d*20, runeSpan(w.start, w.end), true
		}
	}
	return 0, nil, false
}

// allowedTypos grows with word length: none up to 3 runes, 1 up to 6, else 2
func allowedTypos(n int) int {
	switch {
	case n <= 3:
		return 0
	case n <= 6:
		return 1
	default:
		return 2
	}
}

func runeSpan(start, end int) []int {
	span := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		span = append(span, i)
	}
	return span
}
