package tui

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/playback"
	"github.com/mmcdole/tapedeck/internal/playback/playbacktest"
	"github.com/mmcdole/tapedeck/internal/store"
	"github.com/mmcdole/tapedeck/internal/visualizer"
	"github.com/mmcdole/tapedeck/internal/waveform"
)

const testRate = 10

type decoderFunc func(ctx context.Context, source string) (*waveform.Buffer, error)

func (f decoderFunc) Decode(ctx context.Context, source string) (*waveform.Buffer, error) {
	return f(ctx, source)
}

type harness struct {
	out       *playbacktest.Output
	session   *playback.Session
	positions *store.PositionStore
	shared    *visualizer.Shared
	wake      chan tea.Msg
	tracks    []domain.Track
	model     *Model
}

// newHarness builds a model over tracks of 10 seconds each
func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	h := &harness{
		out:  &playbacktest.Output{Durations: map[string]float64{}},
		wake: make(chan tea.Msg, 256),
	}
	positions, err := store.NewPositionStore(store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	h.positions = positions
	h.session = playback.NewSession(h.out, nil)

	for i, name := range names {
		tr := domain.Track{
			ID:     domain.TrackID(fmt.Sprintf("t%02d", i)),
			Source: fmt.Sprintf("/music/%02d.mp3", i),
			Title:  name,
		}
		h.out.Durations[tr.Source] = 10
		h.tracks = append(h.tracks, tr)
	}

	dispatcher := NewDispatcher()
	dispatcher.attach(func(msg tea.Msg) { h.wake <- msg })

	h.shared = &visualizer.Shared{
		Session:   h.session,
		Buffers:   waveform.NewBufferCache(),
		Positions: h.positions,
		Decoder: decoderFunc(func(ctx context.Context, source string) (*waveform.Buffer, error) {
			samples := make([]float32, 10*testRate)
			for i := range samples {
				samples[i] = 0.4
			}
			return &waveform.Buffer{Samples: samples, SampleRate: testRate}, nil
		}),
		Dispatcher:  dispatcher,
		Viewport:    visualizer.NewViewport(visualizer.DefaultViewportConfig()),
		Breakpoints: visualizer.DefaultBreakpoints(),
	}
	return h
}

func (h *harness) start(t *testing.T, opts Options) *Model {
	t.Helper()
	opts.Shared = h.shared
	opts.Dispatcher = h.shared.Dispatcher.(*Dispatcher)
	if opts.Tracks == nil {
		opts.Tracks = h.tracks
	}
	h.model = NewModel(opts)
	h.model.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return h.model
}

// settle drains decode completions until no instance is still loading
func (h *harness) settle(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		loading := false
		for _, inst := range h.model.instances {
			if s := inst.State(); s == visualizer.Activating || s == visualizer.Hydrating {
				loading = true
			}
		}
		if !loading {
			return
		}
		select {
		case msg := <-h.wake:
			h.model.Update(msg)
		case <-deadline:
			t.Fatal("timed out waiting for waveforms to load")
		}
	}
}

func (h *harness) key(k tea.KeyType) tea.Cmd {
	_, cmd := h.model.Update(tea.KeyMsg{Type: k})
	return cmd
}

func (h *harness) runes(s string) tea.Cmd {
	var cmd tea.Cmd
	for _, r := range s {
		_, cmd = h.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return cmd
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Track %02d", i)
	}
	return out
}
