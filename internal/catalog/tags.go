package catalog

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// applyTags fills title, artist, key and bpm from embedded metadata.
// Files without readable tags are left untouched.
func applyTags(t *domain.Track, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return
	}
	t.Title = strings.TrimSpace(m.Title())
	t.Artist = strings.TrimSpace(m.Artist())

	raw := m.Raw()
	if bpm, ok := rawText(raw, "TBPM", "TBP", "bpm"); ok {
		t.BPM = parseBPM(bpm)
	}
	if key, ok := rawText(raw, "TKEY", "TKE", "initialkey"); ok {
		t.Key = key
	}
}

// rawText returns the first non-empty text frame among names
func rawText(raw map[string]any, names ...string) (string, bool) {
	for _, name := range names {
		switch v := raw[name].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case *tag.Comm:
			if s := strings.TrimSpace(v.Text); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func parseBPM(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}
