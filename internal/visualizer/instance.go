package visualizer

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/playback"
	"github.com/mmcdole/tapedeck/internal/waveform"
)

// State is an Instance's lifecycle stage
type State int

const (
	Uninitialized State = iota
	Gated
	Activating
	Hydrating
	Ready
	Destroyed
)

func (s State) String() string {
	return [...]string{"uninitialized", "gated", "activating", "hydrating", "ready", "destroyed"}[s]
}

// Instance owns the waveform engine for one mounted list item. All methods
// run on the UI goroutine.
type Instance struct {
	id        string
	track     domain.Track
	shared    *Shared
	container *Container
	logger    *slog.Logger

	state  State
	failed bool
	gate   *Gate
	engine *waveform.Engine

	engineUnsubs  []func()
	sessionUnsubs []func()

	sync     *SyncDriver
	interact *InteractionDriver
	resize   *ResizeDriver

	onReady       []func(duration, start float64)
	currentLabel  float64
	durationLabel float64
}

// NewInstance creates an unmounted instance for track occupying c
func NewInstance(shared *Shared, track domain.Track, c *Container) *Instance {
	id := uuid.NewString()
	i := &Instance{
		id:        id,
		track:     track,
		shared:    shared,
		container: c,
		logger:    shared.logger().With("track", track.ID, "instance", id[:8]),
	}
	i.sync = &SyncDriver{inst: i}
	i.interact = &InteractionDriver{inst: i}
	i.resize = newResizeDriver(i)
	return i
}

// Track returns the track this instance renders
func (i *Instance) Track() domain.Track { return i.track }

// Container returns the region the instance is laid out in
func (i *Instance) Container() *Container { return i.container }

// State returns the lifecycle stage
func (i *Instance) State() State { return i.state }

// Failed reports whether the waveform could not be loaded
func (i *Instance) Failed() bool { return i.failed }

// Engine returns the rendering engine, or nil before activation and after
// destruction
func (i *Instance) Engine() *waveform.Engine { return i.engine }

// Labels returns the current-time and duration labels in seconds
func (i *Instance) Labels() (current, duration float64) {
	return i.currentLabel, i.durationLabel
}

// OnReady registers fn to be told (duration, start) once the first
// waveform paint is possible. A failed load reports (0, 0).
func (i *Instance) OnReady(fn func(duration, start float64)) {
	i.onReady = append(i.onReady, fn)
}

// Mount starts gating the instance. Calling it again has no effect.
func (i *Instance) Mount() {
	if i.state != Uninitialized {
		return
	}
	i.state = Gated
	i.currentLabel = i.shared.Positions.Get(i.track.ID)

	i.sessionUnsubs = append(i.sessionUnsubs,
		i.shared.Session.Subscribe(playback.EventTrackChange, i.onTrackChange))

	i.gate = NewGate(i.shared.Viewport, i.container, i.Activate)
	i.gate.Start(i.shared.Session.IsActive(i.track.ID))
}

func (i *Instance) onTrackChange(ev playback.Event) {
	if i.state == Destroyed {
		return
	}
	if ev.TrackID == i.track.ID {
		i.gate.SetActive(true)
	}
	i.sync.Refresh()
}

// Activate creates the engine and hydrates it, from the buffer cache when
// possible. It is a no-op once an engine exists.
func (i *Instance) Activate() {
	if i.engine != nil || i.state == Destroyed {
		return
	}
	i.state = Activating

	e := waveform.NewEngine(waveform.Options{
		Width:      i.container.Width,
		Height:     i.container.Height,
		Decoder:    i.shared.Decoder,
		Dispatcher: i.shared.Dispatcher,
		Palette:    i.shared.Palette,
		Logger:     i.logger,
	})
	e.SetMuted(true)
	i.engine = e
	i.state = Hydrating
	i.resize.track(i.container.Width, i.container.Height)
	i.engineUnsubs = append(i.engineUnsubs, i.interact.attach(e)...)

	if buf, ok := i.shared.Buffers.Get(i.track.ID); ok {
		inj := waveform.Injector(e)
		inj.InjectBuffer(buf)
		inj.Redraw()
		i.logger.Debug("hydrated from cache")
		i.hydrated()
		return
	}

	i.engineUnsubs = append(i.engineUnsubs,
		e.On(waveform.EventReady, i.onEngineReady),
		e.On(waveform.EventError, i.onEngineError),
	)
	e.Load(i.track.Source)
}

func (i *Instance) onEngineReady(waveform.Event) {
	if i.state == Destroyed || i.engine == nil {
		return
	}
	if buf := i.engine.Buffer(); buf != nil {
		i.shared.Buffers.Set(i.track.ID, buf)
	}
	i.hydrated()
}

func (i *Instance) onEngineError(ev waveform.Event) {
	if i.state == Destroyed {
		return
	}
	if domain.IsBenignLoadError(ev.Err) {
		i.logger.Debug("waveform load aborted", "error", ev.Err)
		return
	}
	i.logger.Warn("waveform load failed", "source", i.track.Source, "error", ev.Err)
	i.failed = true
	i.state = Ready
	i.currentLabel, i.durationLabel = 0, 0
	i.report(0, 0)
}

// hydrated positions the cursor once the engine holds a buffer
func (i *Instance) hydrated() {
	duration := i.engine.Duration()
	start := i.startTime(duration)

	i.currentLabel, i.durationLabel = start, duration
	i.engine.SeekTo(ratio(start, duration))
	i.state = Ready
	i.report(duration, start)
	i.sync.Refresh()
}

func (i *Instance) startTime(duration float64) float64 {
	if i.shared.Session.IsActive(i.track.ID) {
		return min(i.shared.Session.CurrentTime(), duration)
	}
	return min(i.shared.Positions.Get(i.track.ID), duration)
}

func (i *Instance) report(duration, start float64) {
	for _, fn := range i.onReady {
		fn(duration, start)
	}
}

// Resize tells the instance its container changed size
func (i *Instance) Resize(width, height int) {
	if i.state == Destroyed {
		return
	}
	i.resize.Observe(width, height)
}

// HandleClick forwards a click at column col to the engine
func (i *Instance) HandleClick(col int) {
	if i.engine != nil {
		i.engine.HandleClick(col)
	}
}

// HandleDrag forwards a drag to column col to the engine
func (i *Instance) HandleDrag(col int) {
	if i.engine != nil {
		i.engine.HandleDrag(col)
	}
}

// View renders the waveform, or blank rows while gated
func (i *Instance) View() string {
	if i.engine == nil {
		w, h := max(i.container.Width, 0), max(i.container.Height, 0)
		if h == 0 {
			return ""
		}
		return strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", w)+"\n", h), "\n")
	}
	return i.engine.View()
}

// Destroy tears the instance down: the gate, every listener and the
// engine. It is safe to call more than once.
func (i *Instance) Destroy() {
	if i.state == Destroyed {
		return
	}
	i.state = Destroyed

	if i.gate != nil {
		i.gate.Close()
	}
	for _, unsub := range i.sessionUnsubs {
		unsub()
	}
	i.sessionUnsubs = nil
	i.sync.stop()
	for _, unsub := range i.engineUnsubs {
		unsub()
	}
	i.engineUnsubs = nil

	if i.engine != nil {
		i.engine.Destroy()
		i.engine = nil
	}
	i.logger.Debug("instance destroyed")
}

// ratio converts seconds into a cursor position in [0,1]
func ratio(seconds, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return lo.Clamp(seconds/duration, 0, 1)
}
