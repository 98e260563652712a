package waveform

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mmcdole/tapedeck/internal/event"
)

// EventKind identifies engine events
type EventKind int

const (
	// EventReady fires once a Load has decoded its buffer
	EventReady EventKind = iota
	// EventError fires when a Load fails; Event.Err holds the cause
	EventError
	// EventInteraction fires on a click, with no payload. Listeners read
	// CurrentTime to learn where the user clicked.
	EventInteraction
	// EventSeek fires while dragging; Event.Ratio holds the position in [0,1]
	EventSeek
	// EventRedraw fires whenever the rendered output changes shape
	EventRedraw
)

// Event is the payload delivered to engine listeners
type Event struct {
	Ratio float64
	Err   error
}

// Options configures a new Engine
type Options struct {
	Width      int
	Height     int
	Decoder    Decoder
	Dispatcher Dispatcher
	Palette    Palette
	Logger     *slog.Logger
}

// Engine is the per-item waveform renderer. It is visual only: it never
// produces sound. All methods must be called from the dispatcher goroutine.
type Engine struct {
	id     string
	width  int
	height int
	muted  bool

	buffer  *Buffer
	peaks   []float64 // column peaks for the current width, rebuilt lazily
	ratio   float64   // cursor position in [0,1]
	loading bool

	destroyed bool
	ctx       context.Context
	cancel    context.CancelFunc

	decoder  Decoder
	dispatch Dispatcher
	palette  Palette
	logger   *slog.Logger
	events   event.Emitter[EventKind, Event]
}

// NewEngine creates an engine sized to its container
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	palette := opts.Palette
	if palette == (Palette{}) {
		palette = DefaultPalette()
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Engine{
		id:       id,
		width:    max(opts.Width, 0),
		height:   max(opts.Height, 0),
		ctx:      ctx,
		cancel:   cancel,
		decoder:  opts.Decoder,
		dispatch: opts.Dispatcher,
		palette:  palette,
		logger:   logger.With("engine", id),
	}
}

// ID returns the engine's unique identifier
func (e *Engine) ID() string { return e.id }

// On registers fn for events of kind. The returned function unsubscribes.
func (e *Engine) On(kind EventKind, fn func(Event)) func() {
	return e.events.On(kind, fn)
}

// SetMuted toggles the engine's own audio output. Engines never play sound,
// so this only records the setting.
func (e *Engine) SetMuted(muted bool) { e.muted = muted }

// Muted reports whether the engine is muted
func (e *Engine) Muted() bool { return e.muted }

// Load decodes source in the background. Completion is posted back through
// the dispatcher as EventReady or EventError. Completions arriving after
// Destroy are dropped.
func (e *Engine) Load(source string) {
	if e.destroyed || e.decoder == nil || e.dispatch == nil {
		return
	}
	e.loading = true
	ctx := e.ctx
	go func() {
		buf, err := e.decoder.Decode(ctx, source)
		e.dispatch.Post(func() { e.finishLoad(buf, err) })
	}()
}

func (e *Engine) finishLoad(buf *Buffer, err error) {
	if e.destroyed {
		return
	}
	e.loading = false
	if err != nil {
		e.events.Emit(EventError, Event{Err: err})
		return
	}
	e.buffer = buf
	e.peaks = nil
	e.events.Emit(EventReady, Event{})
	e.events.Emit(EventRedraw, Event{})
}

// Buffer returns the decoded buffer, or nil before the engine is hydrated
func (e *Engine) Buffer() *Buffer { return e.buffer }

// Loading reports whether a Load is in flight
func (e *Engine) Loading() bool { return e.loading }

// Duration returns the length of the loaded buffer in seconds (0 if none)
func (e *Engine) Duration() float64 { return e.buffer.Duration() }

// Progress returns the cursor position in [0,1]
func (e *Engine) Progress() float64 { return e.ratio }

// CurrentTime returns the cursor position in seconds
func (e *Engine) CurrentTime() float64 { return e.ratio * e.Duration() }

// SeekTo moves the cursor without emitting interaction events
func (e *Engine) SeekTo(ratio float64) {
	if e.destroyed {
		return
	}
	e.ratio = lo.Clamp(ratio, 0, 1)
}

// SetSize changes the rendered dimensions
func (e *Engine) SetSize(width, height int) {
	if e.destroyed {
		return
	}
	width, height = max(width, 0), max(height, 0)
	if width == e.width && height == e.height {
		return
	}
	e.width, e.height = width, height
	e.peaks = nil
	e.events.Emit(EventRedraw, Event{})
}

// Size returns the rendered dimensions
func (e *Engine) Size() (width, height int) { return e.width, e.height }

// Interactive reports whether clicks and drags are accepted
func (e *Engine) Interactive() bool {
	return !e.destroyed && e.Duration() > 0 && e.width > 0
}

// HandleClick moves the cursor to column col and emits EventInteraction
func (e *Engine) HandleClick(col int) {
	if !e.Interactive() {
		return
	}
	e.ratio = e.columnRatio(col)
	e.events.Emit(EventInteraction, Event{})
}

// HandleDrag moves the cursor to column col and emits EventSeek
func (e *Engine) HandleDrag(col int) {
	if !e.Interactive() {
		return
	}
	e.ratio = e.columnRatio(col)
	e.events.Emit(EventSeek, Event{Ratio: e.ratio})
}

func (e *Engine) columnRatio(col int) float64 {
	if e.width <= 1 {
		return 0
	}
	return lo.Clamp(float64(col)/float64(e.width-1), 0, 1)
}

// Destroy cancels any in-flight load and drops all listeners.
// It is safe to call more than once.
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.loading = false
	e.cancel()
	e.events.Clear()
	e.logger.Debug("engine destroyed")
}

// Destroyed reports whether Destroy has been called
func (e *Engine) Destroyed() bool { return e.destroyed }
