// Package playback owns the one audible output shared by every list item.
package playback

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/event"
	"github.com/mmcdole/tapedeck/internal/media"
)

// EventKind identifies session events
type EventKind int

const (
	// EventTimeUpdate fires on every Poll while playing, and after a Seek
	EventTimeUpdate EventKind = iota
	// EventDurationChange fires once the bound source reports its length
	EventDurationChange
	// EventTrackChange fires when a different track is bound
	EventTrackChange
	// EventStateChange fires when play, loop or volume state flips
	EventStateChange
	// EventError fires when binding a source fails
	EventError
	// EventEnded fires when a non-looping track plays to its end
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventTimeUpdate:
		return "time_update"
	case EventDurationChange:
		return "duration_change"
	case EventTrackChange:
		return "track_change"
	case EventStateChange:
		return "state_change"
	case EventError:
		return "error"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event carries the session state at the moment it was published
type Event struct {
	TrackID     domain.TrackID
	Source      string
	CurrentTime float64
	Duration    float64
	Playing     bool
	Err         error
}

// State is the published transport state
type State struct {
	ActiveTrack mo.Option[domain.Track]
	IsPlaying   bool
	IsLooping   bool
	CurrentTime float64
	Duration    float64
	Volume      float64
	Errored     bool
	// Loading is set while a remote source is fetched
	Loading bool
}

// Dispatcher runs callbacks on the goroutine that issues session commands
type Dispatcher interface {
	Post(fn func())
}

// Prefetcher is implemented by outputs that can do the slow part of binding
// a source ahead of Open. A later Open of the same source uses the result.
type Prefetcher interface {
	Prefetch(ctx context.Context, source string) error
}

// pendingBind is a remote source being fetched for the bound track
type pendingBind struct {
	cancel context.CancelFunc
	start  float64
	play   bool
}

// Session is the process-wide playback controller. Commands may be issued
// from any goroutine; events are delivered on the goroutine that issued the
// command (or called Poll), after the session's lock is released.
type Session struct {
	mu         sync.Mutex
	out        Output
	logger     *slog.Logger
	events     event.Emitter[EventKind, Event]
	dispatcher Dispatcher
	pending    *pendingBind

	track    mo.Option[domain.Track]
	playing  bool
	looping  bool
	errored  bool
	current  float64
	duration float64
	volume   float64
}

// NewSession creates a session driving out
func NewSession(out Output, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{out: out, logger: logger.With("component", "playback")}
}

// SetDispatcher lets the session fetch remote sources off the calling
// goroutine. The bind completes in a callback posted to d, which must run
// on the goroutine that issues commands.
func (s *Session) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// Subscribe registers fn for events of kind. The returned function unsubscribes.
func (s *Session) Subscribe(kind EventKind, fn func(Event)) func() {
	return s.events.On(kind, fn)
}

type queued struct {
	kind EventKind
	ev   Event
}

// outbox collects events under the lock so they can be published after it
type outbox []queued

func (s *Session) queue(ob *outbox, kind EventKind) {
	*ob = append(*ob, queued{kind: kind, ev: s.eventLocked()})
}

func (s *Session) publish(ob outbox) {
	for _, q := range ob {
		s.events.Emit(q.kind, q.ev)
	}
}

func (s *Session) eventLocked() Event {
	ev := Event{
		CurrentTime: s.current,
		Duration:    s.duration,
		Playing:     s.playing,
	}
	if t, ok := s.track.Get(); ok {
		ev.TrackID = t.ID
		ev.Source = t.Source
	}
	return ev
}

// Play binds track and starts it at startAt seconds. If track is already
// bound it resumes in place and startAt is ignored. A source that cannot be
// opened leaves the session errored with zero duration.
//
// With a dispatcher set, a remote source is fetched in the background and
// the session reports Loading until the bind completes.
func (s *Session) Play(track domain.Track, startAt float64) {
	s.mu.Lock()
	var ob outbox
	s.playLocked(&ob, track, startAt)
	s.mu.Unlock()
	s.publish(ob)
}

func (s *Session) playLocked(ob *outbox, track domain.Track, startAt float64) {
	if cur, ok := s.track.Get(); ok && cur.ID == track.ID && !s.errored {
		if s.pending != nil {
			if !s.pending.play {
				s.pending.play = true
				s.queue(ob, EventStateChange)
			}
			return
		}
		if !s.playing {
			s.out.Play()
			s.playing = true
			s.queue(ob, EventStateChange)
		}
		return
	}

	s.cancelPendingLocked()
	if s.track.IsPresent() {
		// The previous source must be silent even if the new one fails
		s.out.Pause()
	}
	s.track = mo.Some(track)
	s.playing = false
	s.errored = false
	s.current = 0
	s.duration = 0
	s.queue(ob, EventTrackChange)

	if pf, ok := s.out.(Prefetcher); ok && s.dispatcher != nil && media.IsRemote(track.Source) {
		s.prefetchLocked(ob, pf, track, startAt)
		return
	}
	s.bindLocked(ob, track, startAt, true)
}

// bindLocked opens track on the output and positions it at startAt
func (s *Session) bindLocked(ob *outbox, track domain.Track, startAt float64, play bool) {
	if err := s.out.Open(track.Source); err != nil {
		s.failLocked(ob, track, err)
		return
	}

	if d := s.out.Duration(); validTime(d) {
		s.duration = d
	}
	start := 0.0
	if validTime(startAt) {
		start = min(startAt, s.duration)
	}
	if start > 0 {
		if err := s.out.Seek(start); err != nil {
			s.logger.Warn("failed to seek to start", "track", track.ID, "start", start, "error", err)
			start = 0
		}
	}
	s.current = start

	s.out.SetLoop(s.looping)
	s.out.SetVolume(s.volume)
	if play {
		s.out.Play()
		s.playing = true
	}

	s.logger.Info("bound", "track", track.ID, "start", start, "duration", s.duration, "playing", play)
	s.queue(ob, EventDurationChange)
	s.queue(ob, EventTimeUpdate)
	s.queue(ob, EventStateChange)
}

func (s *Session) failLocked(ob *outbox, track domain.Track, err error) {
	s.errored = true
	s.playing = false
	s.current = 0
	s.duration = 0
	s.logger.Warn("failed to bind source", "track", track.ID, "source", track.Source, "error", err)
	s.queue(ob, EventDurationChange)
	q := queued{kind: EventError, ev: s.eventLocked()}
	q.ev.Err = err
	*ob = append(*ob, q)
	s.queue(ob, EventStateChange)
}

func (s *Session) prefetchLocked(ob *outbox, pf Prefetcher, track domain.Track, startAt float64) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pendingBind{cancel: cancel, play: true}
	if validTime(startAt) {
		p.start = startAt
	}
	s.pending = p
	s.current = p.start
	s.queue(ob, EventStateChange)
	s.logger.Debug("fetching source", "track", track.ID, "source", track.Source)

	d := s.dispatcher
	go func() {
		err := pf.Prefetch(ctx, track.Source)
		d.Post(func() { s.completeBind(p, track, err) })
	}()
}

// completeBind finishes a background fetch. Results for a bind that has
// since been replaced or cancelled are dropped.
func (s *Session) completeBind(p *pendingBind, track domain.Track, err error) {
	s.mu.Lock()
	var ob outbox
	if s.pending == p {
		s.pending = nil
		p.cancel()
		if err != nil {
			s.failLocked(&ob, track, err)
		} else {
			s.bindLocked(&ob, track, p.start, p.play)
		}
	}
	s.mu.Unlock()
	s.publish(ob)
}

func (s *Session) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.cancel()
		s.pending = nil
	}
}

// Pause stops audible output and keeps the position
func (s *Session) Pause() {
	s.mu.Lock()
	var ob outbox
	s.pauseLocked(&ob)
	s.mu.Unlock()
	s.publish(ob)
}

func (s *Session) pauseLocked(ob *outbox) {
	if s.pending != nil {
		if s.pending.play {
			s.pending.play = false
			s.queue(ob, EventStateChange)
		}
		return
	}
	if !s.playing {
		return
	}
	s.out.Pause()
	s.playing = false
	if t := s.out.Position(); validTime(t) {
		s.current = min(t, s.duration)
	}
	s.queue(ob, EventStateChange)
}

// Toggle pauses when playing and otherwise resumes the bound track from its
// current position. It does nothing when no track is bound.
func (s *Session) Toggle() {
	s.mu.Lock()
	var ob outbox
	if track, ok := s.track.Get(); ok {
		if s.playing || (s.pending != nil && s.pending.play) {
			s.pauseLocked(&ob)
		} else {
			s.playLocked(&ob, track, s.current)
		}
	}
	s.mu.Unlock()
	s.publish(ob)
}

// Seek repositions the bound track to t seconds, clamped to [0, duration].
// Play/pause state is unchanged.
func (s *Session) Seek(t float64) {
	s.mu.Lock()
	var ob outbox
	s.seekLocked(&ob, t)
	s.mu.Unlock()
	s.publish(ob)
}

func (s *Session) seekLocked(ob *outbox, t float64) {
	if s.track.IsAbsent() || s.errored || math.IsNaN(t) {
		return
	}
	if s.pending != nil {
		// Clamped once the duration is known
		s.pending.start = max(t, 0)
		s.current = s.pending.start
		s.queue(ob, EventTimeUpdate)
		return
	}
	t = lo.Clamp(t, 0, s.duration)
	if err := s.out.Seek(t); err != nil {
		s.logger.Warn("seek failed", "to", t, "error", err)
		return
	}
	s.current = t
	s.queue(ob, EventTimeUpdate)
}

// SeekBy moves the position by delta seconds
func (s *Session) SeekBy(delta float64) {
	s.mu.Lock()
	var ob outbox
	s.seekLocked(&ob, s.current+delta)
	s.mu.Unlock()
	s.publish(ob)
}

// ToggleLoop flips looping and applies it to the output immediately
func (s *Session) ToggleLoop() {
	s.mu.Lock()
	var ob outbox
	s.looping = !s.looping
	s.out.SetLoop(s.looping)
	s.queue(&ob, EventStateChange)
	s.mu.Unlock()
	s.publish(ob)
}

// SetVolume sets the output gain in dB, clamped to [MinVolume, MaxVolume]
func (s *Session) SetVolume(db float64) {
	if math.IsNaN(db) {
		return
	}
	s.mu.Lock()
	var ob outbox
	s.volume = lo.Clamp(db, MinVolume, MaxVolume)
	s.out.SetVolume(s.volume)
	s.queue(&ob, EventStateChange)
	s.mu.Unlock()
	s.publish(ob)
}

// Poll samples the output. While playing it publishes EventTimeUpdate,
// EventDurationChange when the length changes, and EventEnded once a
// non-looping track finishes.
func (s *Session) Poll() {
	s.mu.Lock()
	var ob outbox
	s.pollLocked(&ob)
	s.mu.Unlock()
	s.publish(ob)
}

func (s *Session) pollLocked(ob *outbox) {
	if !s.playing || s.errored {
		return
	}

	if d := s.out.Duration(); validTime(d) && d != s.duration {
		s.duration = d
		s.queue(ob, EventDurationChange)
	}

	if !s.looping && s.out.Ended() {
		s.playing = false
		s.current = s.duration
		s.queue(ob, EventTimeUpdate)
		s.queue(ob, EventEnded)
		s.queue(ob, EventStateChange)
		return
	}

	if t := s.out.Position(); validTime(t) {
		s.current = min(t, s.duration)
		s.queue(ob, EventTimeUpdate)
	}
}

// Snapshot returns the current transport state
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ActiveTrack: s.track,
		IsPlaying:   s.playing,
		IsLooping:   s.looping,
		CurrentTime: s.current,
		Duration:    s.duration,
		Volume:      s.volume,
		Errored:     s.errored,
		Loading:     s.pending != nil,
	}
}

// ActiveTrackID returns the bound track's ID
func (s *Session) ActiveTrackID() mo.Option[domain.TrackID] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.track.Get(); ok {
		return mo.Some(t.ID)
	}
	return mo.None[domain.TrackID]()
}

// IsActive reports whether id is the bound track
func (s *Session) IsActive(id domain.TrackID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.track.Get()
	return ok && t.ID == id
}

// Source returns the bound track's audio source, or "" when none is bound
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.track.Get(); ok {
		return t.Source
	}
	return ""
}

// CurrentTime returns the last known position in seconds
func (s *Session) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Duration returns the bound track's length in seconds
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// IsPlaying reports whether audio is currently audible
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Close releases the output
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
	s.playing = false
	return s.out.Close()
}

func validTime(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0) && t >= 0
}
