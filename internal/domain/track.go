package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TrackID is the stable unique key of a track
type TrackID string

// Track is an individually playable item. Tracks are created by the catalog
// and never mutated afterwards.
type Track struct {
	ID       TrackID
	Source   string  // Audio source: file path, file:// or http(s):// URI
	Title    string  // Display title
	Artist   string  // Display artist (may be empty)
	Key      string  // Musical key, e.g. "Am" (may be empty)
	BPM      int     // Tempo (0 if unknown)
	Price    float64 // Listed price (0 if not for sale)
	CoverURI string  // Cover art path or URI (may be empty)
}

// DisplayName returns "Artist - Title", or just the title when no artist is known
func (t Track) DisplayName() string {
	if t.Artist != "" {
		return t.Artist + " - " + t.Title
	}
	return t.Title
}

// Details returns the secondary metadata line (key, bpm, price)
func (t Track) Details() string {
	var parts []string
	if t.Key != "" {
		parts = append(parts, t.Key)
	}
	if t.BPM > 0 {
		parts = append(parts, fmt.Sprintf("%d bpm", t.BPM))
	}
	if t.Price > 0 {
		parts = append(parts, fmt.Sprintf("$%.2f", t.Price))
	}
	return strings.Join(parts, " • ")
}

// Ext returns the lowercase file extension of the source, without query strings
func (t Track) Ext() string {
	return SourceExt(t.Source)
}

// SourceExt returns the lowercase extension of an audio source URI
func SourceExt(source string) string {
	s := source
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(filepath.Ext(s))
}
