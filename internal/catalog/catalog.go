// Package catalog discovers the tracks tapedeck displays: audio files under
// the configured library paths, plus any remote URLs given directly.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/media"
)

// DefaultManifest is the per-directory metadata override file name
const DefaultManifest = "tracks.yaml"

// Options configures a Catalog
type Options struct {
	// Paths are directories to scan, audio files, or http(s) URLs
	Paths []string
	// Manifest is the per-directory override file name
	Manifest string
	Logger   *slog.Logger
}

// Catalog holds the discovered tracks in scan order
type Catalog struct {
	opts   Options
	logger *slog.Logger

	mu        sync.RWMutex
	tracks    []domain.Track
	byID      map[domain.TrackID]int
	manifests map[string]manifest // by directory
}

// New creates an empty catalog
func New(opts Options) *Catalog {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Manifest == "" {
		opts.Manifest = DefaultManifest
	}
	return &Catalog{
		opts:      opts,
		logger:    opts.Logger.With("component", "catalog"),
		byID:      make(map[domain.TrackID]int),
		manifests: make(map[string]manifest),
	}
}

// Scan walks every configured path and adds the tracks found
func (c *Catalog) Scan(ctx context.Context) error {
	for _, p := range c.opts.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isRemote(p) {
			c.add(remoteTrack(p))
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			c.logger.Warn("skipping library path", "path", p, "error", err)
			continue
		}
		if !info.IsDir() {
			if _, _, err := c.Add(p); err != nil {
				c.logger.Warn("skipping file", "path", p, "error", err)
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				c.logger.Debug("walk error", "path", path, "error", err)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() || !media.IsSupported(domain.SourceExt(path)) {
				return nil
			}
			if _, _, err := c.Add(path); err != nil {
				c.logger.Debug("skipping file", "path", path, "error", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan %s: %w", p, err)
		}
	}

	c.logger.Info("library scanned", "paths", len(c.opts.Paths), "tracks", c.Len())
	if c.Len() == 0 {
		return domain.ErrEmptyLibrary
	}
	return nil
}

// Add reads one audio file and appends it. It reports false when the file
// was already known.
func (c *Catalog) Add(path string) (domain.Track, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Track{}, false, err
	}
	if !media.IsSupported(domain.SourceExt(abs)) {
		return domain.Track{}, false, fmt.Errorf("%s: %w", abs, domain.ErrUnsupportedFormat)
	}
	if t, ok := c.Get(TrackIDFor(abs)); ok {
		return t, false, nil
	}

	t := domain.Track{ID: TrackIDFor(abs), Source: abs}
	applyTags(&t, abs)
	if t.Title == "" {
		t.Artist, t.Title = parseFilename(abs)
	}
	t.CoverURI = findCover(filepath.Dir(abs))
	c.manifestFor(filepath.Dir(abs)).apply(&t, filepath.Base(abs))

	return t, c.add(t), nil
}

func (c *Catalog) add(t domain.Track) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[t.ID]; ok {
		return false
	}
	c.byID[t.ID] = len(c.tracks)
	c.tracks = append(c.tracks, t)
	return true
}

func (c *Catalog) manifestFor(dir string) manifest {
	c.mu.RLock()
	m, ok := c.manifests[dir]
	c.mu.RUnlock()
	if ok {
		return m
	}

	m, err := loadManifest(filepath.Join(dir, c.opts.Manifest))
	if err != nil {
		c.logger.Warn("ignoring manifest", "dir", dir, "error", err)
	}
	c.mu.Lock()
	c.manifests[dir] = m
	c.mu.Unlock()
	return m
}

// Tracks returns a copy of the tracks in scan order
func (c *Catalog) Tracks() []domain.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Track(nil), c.tracks...)
}

// Len returns the number of tracks
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tracks)
}

// Get returns the track with the given ID
func (c *Catalog) Get(id domain.TrackID) (domain.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return domain.Track{}, false
	}
	return c.tracks[i], true
}

// Find returns the track whose display name best matches query
func (c *Catalog) Find(query string) (domain.Track, error) {
	tracks := c.Tracks()
	names := lo.Map(tracks, func(t domain.Track, _ int) string {
		return strings.ToLower(t.DisplayName())
	})

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	if len(ranks) == 0 {
		return domain.Track{}, fmt.Errorf("%q: %w", query, domain.ErrTrackNotFound)
	}
	best := lo.MinBy(ranks, func(a, b fuzzy.Rank) bool {
		return a.Distance < b.Distance
	})
	return tracks[best.OriginalIndex], nil
}

// TrackIDFor derives a stable ID from an absolute path or URL
func TrackIDFor(source string) domain.TrackID {
	hash := sha256.Sum256([]byte(source))
	return domain.TrackID(hex.EncodeToString(hash[:6]))
}

func isRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func remoteTrack(source string) domain.Track {
	name := source
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if u, err := url.PathUnescape(name); err == nil {
		name = u
	}
	artist, title := parseFilename(name)
	return domain.Track{ID: TrackIDFor(source), Source: source, Title: title, Artist: artist}
}

// parseFilename splits "Artist - Title.mp3" into its parts
func parseFilename(path string) (artist, title string) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	if a, t, ok := strings.Cut(base, " - "); ok {
		return strings.TrimSpace(a), strings.TrimSpace(t)
	}
	return "", strings.TrimSpace(base)
}

var coverNames = []string{"cover.jpg", "cover.png", "folder.jpg"}

func findCover(dir string) string {
	for _, name := range coverNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
