// Package search filters the track list as the user types.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// Result is one matching track with the matched rune positions in its
// display name, for highlighting
type Result struct {
	Index          int // Position in the indexed slice
	Track          domain.Track
	MatchedIndexes []int
	Score          int // Lower is better
}

// Index implements sahilm/fuzzy.Source over track display names
type Index struct {
	tracks []domain.Track
	names  []string // lowercase display names
}

// NewIndex builds an index over tracks
func NewIndex(tracks []domain.Track) *Index {
	idx := &Index{}
	idx.Add(tracks...)
	return idx
}

// Add appends tracks to the index
func (idx *Index) Add(tracks ...domain.Track) {
	for _, t := range tracks {
		idx.tracks = append(idx.tracks, t)
		idx.names = append(idx.names, strings.ToLower(t.DisplayName()))
	}
}

// String returns the lowercase name at i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.names[i] }

// Len returns the number of tracks (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.tracks) }

// Filter returns the tracks matching query, best first. Word matches are
// tried first; when no word matches, it falls back to subsequence matching
// so abbreviations like "boc" still find "Boards of Canada".
func (idx *Index) Filter(query string) []Result {
	query = strings.TrimSpace(query)
	if query == "" || idx.Len() == 0 {
		return nil
	}

	if matches := matchWords(query, idx.names); len(matches) > 0 {
		results := make([]Result, len(matches))
		for i, m := range matches {
			results[i] = idx.result(m.Index, m.MatchedIndexes, m.Score)
		}
		return results
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), idx)
	results := make([]Result, len(matches))
	for i, m := range matches {
		// sahilm scores higher-is-better; offset keeps them behind word matches
		results[i] = idx.result(m.Index, runeIndexes(m.Str, m.MatchedIndexes), 1000-m.Score)
	}
	return results
}

// runeIndexes converts sahilm's byte offsets into rune positions
func runeIndexes(s string, byteIdx []int) []int {
	out := make([]int, len(byteIdx))
	for i, b := range byteIdx {
		out[i] = utf8.RuneCountInString(s[:min(b, len(s))])
	}
	return out
}

func (idx *Index) result(i int, matched []int, score int) Result {
	return Result{Index: i, Track: idx.tracks[i], MatchedIndexes: matched, Score: score}
}
