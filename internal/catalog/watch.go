package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/media"
)

// settleDelay gives writers a moment to finish a new file before it is read
const settleDelay = 200 * time.Millisecond

// Watch reports audio files created under the catalog's directories until
// ctx ends. onAdd runs on the watcher goroutine for each new track.
func (c *Catalog) Watch(ctx context.Context, onAdd func(domain.Track)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	watched := 0
	for _, p := range c.opts.Paths {
		if isRemote(p) {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				if err := w.Add(path); err == nil {
					watched++
				}
			}
			return nil
		})
		if err != nil {
			c.logger.Debug("watch walk failed", "path", p, "error", err)
		}
	}
	if watched == 0 {
		w.Close()
		return nil
	}
	c.logger.Debug("watching library", "dirs", watched)

	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				c.handleWatchEvent(ctx, w, ev, onAdd)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.logger.Warn("watch error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (c *Catalog) handleWatchEvent(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event, onAdd func(domain.Track)) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		_ = w.Add(ev.Name)
		return
	}
	if !media.IsSupported(domain.SourceExt(ev.Name)) {
		return
	}

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return
	}
	t, added, err := c.Add(ev.Name)
	if err != nil {
		c.logger.Debug("ignoring new file", "path", ev.Name, "error", err)
		return
	}
	if added {
		c.logger.Info("track added", "track", t.ID, "title", t.Title)
		onAdd(t)
	}
}
