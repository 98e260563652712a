package visualizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/playback"
	"github.com/mmcdole/tapedeck/internal/playback/playbacktest"
	"github.com/mmcdole/tapedeck/internal/store"
	"github.com/mmcdole/tapedeck/internal/waveform"
)

const testRate = 10

type queueDispatcher struct {
	ch chan func()
}

func (q *queueDispatcher) Post(fn func()) { q.ch <- fn }

// runNext runs the next posted callback, waiting for it if needed
func (q *queueDispatcher) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-q.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for posted callback")
	}
}

func (q *queueDispatcher) pending() int { return len(q.ch) }

// fakeDecoder serves buffers by source. With hold set, decodes block until
// hold is closed; with ignoreCtx they keep going after cancellation, like
// a decode the caller has already lost interest in.
type fakeDecoder struct {
	mu        sync.Mutex
	calls     map[string]int
	buffers   map[string]*waveform.Buffer
	errs      map[string]error
	hold      chan struct{}
	ignoreCtx bool
}

func (d *fakeDecoder) Decode(ctx context.Context, source string) (*waveform.Buffer, error) {
	d.mu.Lock()
	d.calls[source]++
	hold, ignoreCtx := d.hold, d.ignoreCtx
	buf, err := d.buffers[source], d.errs[source]
	d.mu.Unlock()

	if hold != nil {
		if ignoreCtx {
			<-hold
		} else {
			select {
			case <-hold:
			case <-ctx.Done():
				return nil, fmt.Errorf("decode %s: %w", source, domain.ErrLoadAborted)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, fmt.Errorf("decode %s: not found", source)
	}
	return buf, nil
}

func (d *fakeDecoder) Calls(source string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[source]
}

func silence(seconds float64) *waveform.Buffer {
	samples := make([]float32, int(seconds*testRate))
	for i := range samples {
		samples[i] = 0.5
	}
	return &waveform.Buffer{Samples: samples, SampleRate: testRate}
}

type harness struct {
	out       *playbacktest.Output
	session   *playback.Session
	positions *store.PositionStore
	buffers   *waveform.BufferCache
	decoder   *fakeDecoder
	queue     *queueDispatcher
	viewport  *Viewport
	shared    *Shared
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	out := &playbacktest.Output{Durations: map[string]float64{}}
	positions, err := store.NewPositionStore(store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		out:       out,
		session:   playback.NewSession(out, nil),
		positions: positions,
		buffers:   waveform.NewBufferCache(),
		decoder: &fakeDecoder{
			calls:   map[string]int{},
			buffers: map[string]*waveform.Buffer{},
			errs:    map[string]error{},
		},
		queue:    &queueDispatcher{ch: make(chan func(), 64)},
		viewport: NewViewport(DefaultViewportConfig()),
	}
	h.viewport.Scroll(0, 40)
	h.shared = &Shared{
		Session:     h.session,
		Buffers:     h.buffers,
		Positions:   h.positions,
		Decoder:     h.decoder,
		Dispatcher:  h.queue,
		Viewport:    h.viewport,
		Breakpoints: DefaultBreakpoints(),
	}
	return h
}

// track registers a track of the given length with the decoder and output
func (h *harness) track(id string, seconds float64) domain.Track {
	tr := domain.Track{ID: domain.TrackID(id), Source: "/music/" + id + ".mp3", Title: id}
	h.decoder.mu.Lock()
	h.decoder.buffers[tr.Source] = silence(seconds)
	h.decoder.mu.Unlock()
	h.out.Durations[tr.Source] = seconds
	return tr
}

type readyReport struct {
	duration, start float64
}

// mount creates and mounts an instance near the top of the list
func (h *harness) mount(tr domain.Track) (*Instance, *[]readyReport) {
	return h.mountAt(tr, 0)
}

func (h *harness) mountAt(tr domain.Track, top int) (*Instance, *[]readyReport) {
	inst := NewInstance(h.shared, tr, &Container{Top: top, Width: 21, Height: 2})
	var reports []readyReport
	inst.OnReady(func(d, s float64) { reports = append(reports, readyReport{d, s}) })
	inst.Mount()
	return inst, &reports
}

// mountReady mounts an instance and runs its decode to completion
func (h *harness) mountReady(t *testing.T, tr domain.Track) *Instance {
	t.Helper()
	inst, _ := h.mount(tr)
	if inst.State() == Hydrating {
		h.queue.runNext(t)
	}
	if inst.State() != Ready {
		t.Fatalf("instance state = %v, want ready", inst.State())
	}
	return inst
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}

var errTestUnreachable = errors.New("unreachable")
