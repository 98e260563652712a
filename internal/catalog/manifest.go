package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// manifestEntry overrides display metadata for one file. Zero values keep
// what the tags said.
type manifestEntry struct {
	File   string  `mapstructure:"file"`
	Title  string  `mapstructure:"title"`
	Artist string  `mapstructure:"artist"`
	Key    string  `mapstructure:"key"`
	BPM    int     `mapstructure:"bpm"`
	Price  float64 `mapstructure:"price"`
	Cover  string  `mapstructure:"cover"`
}

// manifest maps a file's base name to its overrides
type manifest map[string]manifestEntry

// loadManifest reads a tracks.yaml file. A missing file is an empty manifest.
func loadManifest(path string) (manifest, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var entries []manifestEntry
	if err := v.UnmarshalKey("tracks", &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m := make(manifest, len(entries))
	dir := filepath.Dir(path)
	for _, e := range entries {
		if e.File == "" {
			continue
		}
		if e.Cover != "" && !filepath.IsAbs(e.Cover) && !isRemote(e.Cover) {
			e.Cover = filepath.Join(dir, e.Cover)
		}
		m[filepath.Base(e.File)] = e
	}
	return m, nil
}

func (m manifest) apply(t *domain.Track, file string) {
	e, ok := m[file]
	if !ok {
		return
	}
	if e.Title != "" {
		t.Title = e.Title
	}
	if e.Artist != "" {
		t.Artist = e.Artist
	}
	if e.Key != "" {
		t.Key = e.Key
	}
	if e.BPM > 0 {
		t.BPM = e.BPM
	}
	if e.Price > 0 {
		t.Price = e.Price
	}
	if e.Cover != "" {
		t.CoverURI = e.Cover
	}
}
