package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/mmcdole/tapedeck/internal/media"
)

// Volume bounds in dB
const (
	MinVolume = -30.0
	MaxVolume = 6.0
)

// Output is the single audible resource a Session drives. Times are in
// seconds. Implementations must be safe for use from one goroutine at a time.
type Output interface {
	// Open binds a new source, replacing the previous one. The output
	// starts paused at position 0. When it fails nothing stays audible.
	Open(source string) error
	Play()
	Pause()
	Seek(seconds float64) error
	SetLoop(loop bool)
	SetVolume(db float64)
	Position() float64
	Duration() float64
	// Ended reports whether a non-looping source played through to its end
	Ended() bool
	Close() error
}

// SpeakerOutput plays through the system audio device via beep's speaker.
//
// Pipeline: [decode] -> [loop] -> [resample] -> [volume] -> [ctrl] -> [speaker]
type SpeakerOutput struct {
	rate   beep.SampleRate
	logger *slog.Logger

	initOnce sync.Once
	initErr  error

	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	db       float64

	// fetched holds a source decoded by Prefetch until Open claims it
	fetched *fetchedSource

	loop  atomic.Bool
	ended atomic.Bool
	gen   atomic.Uint64 // bumped per Open so a stale end callback is ignored
}

var _ Prefetcher = (*SpeakerOutput)(nil)

// NewSpeakerOutput creates an output mixing at rate. The speaker itself is
// initialized lazily on the first Open.
func NewSpeakerOutput(rate int, logger *slog.Logger) *SpeakerOutput {
	if logger == nil {
		logger = slog.Default()
	}
	if rate <= 0 {
		rate = 44100
	}
	return &SpeakerOutput{rate: beep.SampleRate(rate), logger: logger}
}

func (o *SpeakerOutput) init() error {
	o.initOnce.Do(func() {
		o.initErr = speaker.Init(o.rate, o.rate.N(time.Second/10))
		if o.initErr != nil {
			o.initErr = fmt.Errorf("init speaker: %w", o.initErr)
		}
	})
	return o.initErr
}

type fetchedSource struct {
	source   string
	streamer beep.StreamSeekCloser
	format   beep.Format
}

// Prefetch implements Prefetcher. It fetches and decodes source without
// touching what is currently playing.
func (o *SpeakerOutput) Prefetch(ctx context.Context, source string) error {
	streamer, format, err := load(ctx, source)
	if err != nil {
		return err
	}
	o.mu.Lock()
	prev := o.fetched
	o.fetched = &fetchedSource{source: source, streamer: streamer, format: format}
	o.mu.Unlock()
	if prev != nil {
		prev.streamer.Close()
	}
	return nil
}

func load(ctx context.Context, source string) (beep.StreamSeekCloser, beep.Format, error) {
	rc, ext, err := media.Open(ctx, source)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return media.Decode(rc, ext)
}

// claim returns the prefetched decode of source, if there is one
func (o *SpeakerOutput) claim(source string) (beep.StreamSeekCloser, beep.Format, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f := o.fetched
	if f == nil || f.source != source {
		return nil, beep.Format{}, false
	}
	o.fetched = nil
	return f.streamer, f.format, true
}

// Open implements Output. The previous source is released even when the
// new one fails to open.
func (o *SpeakerOutput) Open(source string) error {
	if err := o.init(); err != nil {
		o.stop()
		return err
	}

	streamer, format, ok := o.claim(source)
	if !ok {
		var err error
		streamer, format, err = load(context.Background(), source)
		if err != nil {
			o.stop()
			return err
		}
	}

	o.stop()

	o.mu.Lock()
	o.streamer = streamer
	o.format = format

	var s beep.Streamer = &loopStreamer{s: streamer, loop: &o.loop}
	if format.SampleRate != o.rate {
		s = beep.Resample(4, format.SampleRate, o.rate, s)
	}
	o.volume = &effects.Volume{Streamer: s, Base: 10}
	applyVolume(o.volume, o.db)
	o.ctrl = &beep.Ctrl{Streamer: o.volume, Paused: true}
	o.ended.Store(false)
	gen := o.gen.Add(1)
	ctrl := o.ctrl
	o.mu.Unlock()

	o.start(ctrl, gen)
	o.logger.Debug("output bound", "source", source, "rate", format.SampleRate)
	return nil
}

// start hands the pipeline to the speaker, flagging the end of the stream
func (o *SpeakerOutput) start(ctrl *beep.Ctrl, gen uint64) {
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		if o.gen.Load() == gen {
			o.ended.Store(true)
		}
	})))
}

// Play implements Output. After the source ended it restarts, from the
// beginning unless it was seeked back since.
func (o *SpeakerOutput) Play() {
	o.mu.Lock()
	ctrl, streamer := o.ctrl, o.streamer
	o.mu.Unlock()
	if ctrl == nil {
		return
	}

	if o.ended.Load() {
		speaker.Lock()
		if streamer.Position() >= streamer.Len() {
			if err := streamer.Seek(0); err != nil {
				o.logger.Debug("rewind failed", "error", err)
			}
		}
		ctrl.Paused = false
		speaker.Unlock()
		o.ended.Store(false)
		o.start(ctrl, o.gen.Load())
		return
	}

	speaker.Lock()
	ctrl.Paused = false
	speaker.Unlock()
}

// Pause implements Output
func (o *SpeakerOutput) Pause() {
	o.mu.Lock()
	ctrl := o.ctrl
	o.mu.Unlock()
	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
}

// Seek implements Output
func (o *SpeakerOutput) Seek(seconds float64) error {
	o.mu.Lock()
	streamer, format := o.streamer, o.format
	o.mu.Unlock()
	if streamer == nil {
		return nil
	}

	speaker.Lock()
	defer speaker.Unlock()
	n := format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	n = max(min(n, streamer.Len()-1), 0)
	if err := streamer.Seek(n); err != nil {
		return fmt.Errorf("seek to %.2fs: %w", seconds, err)
	}
	return nil
}

// SetLoop implements Output
func (o *SpeakerOutput) SetLoop(loop bool) { o.loop.Store(loop) }

// SetVolume implements Output. db is clamped to [MinVolume, MaxVolume].
func (o *SpeakerOutput) SetVolume(db float64) {
	db = max(min(db, MaxVolume), MinVolume)
	o.mu.Lock()
	o.db = db
	vol := o.volume
	o.mu.Unlock()
	if vol == nil {
		return
	}
	speaker.Lock()
	applyVolume(vol, db)
	speaker.Unlock()
}

func applyVolume(v *effects.Volume, db float64) {
	v.Volume = db / 20
	v.Silent = db <= MinVolume
}

// Position implements Output
func (o *SpeakerOutput) Position() float64 {
	o.mu.Lock()
	streamer, format := o.streamer, o.format
	o.mu.Unlock()
	if streamer == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return format.SampleRate.D(streamer.Position()).Seconds()
}

// Duration implements Output
func (o *SpeakerOutput) Duration() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.streamer == nil {
		return 0
	}
	return o.format.SampleRate.D(o.streamer.Len()).Seconds()
}

// Ended implements Output
func (o *SpeakerOutput) Ended() bool { return o.ended.Load() }

// Close implements Output
func (o *SpeakerOutput) Close() error {
	o.stop()
	o.mu.Lock()
	f := o.fetched
	o.fetched = nil
	o.mu.Unlock()
	if f != nil {
		f.streamer.Close()
	}
	return nil
}

func (o *SpeakerOutput) stop() {
	o.mu.Lock()
	bound := o.ctrl != nil
	o.mu.Unlock()
	if bound {
		speaker.Clear()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.streamer != nil {
		o.streamer.Close()
		o.streamer = nil
	}
	o.ctrl = nil
	o.volume = nil
	o.ended.Store(false)
}

// loopStreamer rewinds its source when drained while looping is on
type loopStreamer struct {
	s    beep.StreamSeeker
	loop *atomic.Bool
}

func (l *loopStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		m, more := l.s.Stream(samples[n:])
		n += m
		if more && m > 0 {
			continue
		}
		if !l.loop.Load() || l.s.Len() == 0 || l.s.Seek(0) != nil {
			return n, n > 0
		}
	}
	return n, true
}

func (l *loopStreamer) Err() error { return l.s.Err() }
