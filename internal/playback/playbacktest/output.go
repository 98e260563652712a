// Package playbacktest provides a scripted playback output for tests.
package playbacktest

import (
	"context"
	"sync"
)

// Output is an in-memory playback output. Tests drive Position, Ended and
// OpenErr directly to simulate the audio device.
type Output struct {
	mu sync.Mutex

	OpenErr  error
	Opened   []string
	Seeks    []float64
	Playing  bool
	Loop     bool
	Volume   float64
	Pos      float64
	Length   float64
	HasEnded bool
	Closed   bool

	// Durations maps a source to its length. Sources missing from the
	// map get Length.
	Durations map[string]float64

	// Fetch, when set, does the work of Prefetch
	Fetch      func(ctx context.Context, source string) error
	Prefetched []string
}

// Prefetch implements playback.Prefetcher
func (o *Output) Prefetch(ctx context.Context, source string) error {
	o.mu.Lock()
	o.Prefetched = append(o.Prefetched, source)
	fetch := o.Fetch
	o.mu.Unlock()
	if fetch == nil {
		return nil
	}
	return fetch(ctx, source)
}

// Open implements playback.Output
func (o *Output) Open(source string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Opened = append(o.Opened, source)
	if o.OpenErr != nil {
		return o.OpenErr
	}
	if d, ok := o.Durations[source]; ok {
		o.Length = d
	}
	o.Pos, o.HasEnded, o.Playing = 0, false, false
	return nil
}

// Play implements playback.Output
func (o *Output) Play() { o.mu.Lock(); o.Playing = true; o.mu.Unlock() }

// IsPlaying reports whether the simulated device is audible
func (o *Output) IsPlaying() bool { o.mu.Lock(); defer o.mu.Unlock(); return o.Playing }

// Pause implements playback.Output
func (o *Output) Pause() { o.mu.Lock(); o.Playing = false; o.mu.Unlock() }

// Seek implements playback.Output
func (o *Output) Seek(t float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Seeks = append(o.Seeks, t)
	o.Pos = t
	return nil
}

// SetLoop implements playback.Output
func (o *Output) SetLoop(loop bool) { o.mu.Lock(); o.Loop = loop; o.mu.Unlock() }

// SetVolume implements playback.Output
func (o *Output) SetVolume(db float64) { o.mu.Lock(); o.Volume = db; o.mu.Unlock() }

// Position implements playback.Output
func (o *Output) Position() float64 { o.mu.Lock(); defer o.mu.Unlock(); return o.Pos }

// Duration implements playback.Output
func (o *Output) Duration() float64 { o.mu.Lock(); defer o.mu.Unlock(); return o.Length }

// Ended implements playback.Output
func (o *Output) Ended() bool { o.mu.Lock(); defer o.mu.Unlock(); return o.HasEnded }

// Close implements playback.Output
func (o *Output) Close() error { o.mu.Lock(); o.Closed = true; o.mu.Unlock(); return nil }

// SetPosition moves the simulated playhead
func (o *Output) SetPosition(t float64) { o.mu.Lock(); o.Pos = t; o.mu.Unlock() }
