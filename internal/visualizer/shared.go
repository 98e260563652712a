// Package visualizer runs the per-item waveform lifecycle: lazy activation,
// hydration from the buffer cache, and keeping each item's cursor in step
// with the shared playback session.
package visualizer

import (
	"log/slog"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/playback"
	"github.com/mmcdole/tapedeck/internal/waveform"
)

// Shared holds the process-wide collaborators every Instance uses. It is
// created once and passed by reference.
type Shared struct {
	Session     *playback.Session
	Buffers     *waveform.BufferCache
	Positions   domain.PositionStore
	Decoder     waveform.Decoder
	Dispatcher  waveform.Dispatcher
	Viewport    *Viewport
	Breakpoints Breakpoints
	Palette     waveform.Palette
	Logger      *slog.Logger
}

func (s *Shared) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
