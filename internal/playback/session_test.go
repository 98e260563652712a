package playback

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/media"
	"github.com/mmcdole/tapedeck/internal/playback/playbacktest"
)

var _ Output = (*playbacktest.Output)(nil)

var (
	t1 = domain.Track{ID: "t1", Source: "/music/t1.mp3"}
	t2 = domain.Track{ID: "t2", Source: "/music/t2.mp3"}
)

func record(s *Session, kinds ...EventKind) *[]EventKind {
	var got []EventKind
	for _, k := range kinds {
		s.Subscribe(k, func(Event) { got = append(got, k) })
	}
	return &got
}

func TestPlayBindsAndStarts(t *testing.T) {
	out := &playbacktest.Output{Length: 180}
	s := NewSession(out, nil)
	got := record(s, EventTrackChange, EventDurationChange, EventTimeUpdate, EventStateChange)

	s.Play(t1, 30)

	st := s.Snapshot()
	if !st.IsPlaying || st.Duration != 180 || st.CurrentTime != 30 {
		t.Fatalf("state = %+v", st)
	}
	if id, ok := s.ActiveTrackID().Get(); !ok || id != "t1" {
		t.Errorf("active = %v", id)
	}
	if s.Source() != t1.Source || !out.Playing {
		t.Error("output not bound and started")
	}
	want := []EventKind{EventTrackChange, EventDurationChange, EventTimeUpdate, EventStateChange}
	if len(*got) != len(want) {
		t.Fatalf("events = %v, want %v", *got, want)
	}
	for i := range want {
		if (*got)[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, (*got)[i], want[i])
		}
	}
}

func TestPlaySameTrackResumesInPlace(t *testing.T) {
	out := &playbacktest.Output{Length: 180}
	s := NewSession(out, nil)
	s.Play(t1, 0)
	out.Pos = 42
	s.Pause()

	s.Play(t1, 100)

	if len(out.Opened) != 1 {
		t.Errorf("same track re-opened: %v", out.Opened)
	}
	if st := s.Snapshot(); !st.IsPlaying || st.CurrentTime != 42 {
		t.Errorf("state = %+v", st)
	}
}

func TestPlayClampsStart(t *testing.T) {
	out := &playbacktest.Output{Length: 10}
	s := NewSession(out, nil)
	s.Play(t1, 99)
	if s.CurrentTime() != 10 {
		t.Errorf("current = %v", s.CurrentTime())
	}
	s.Play(t2, math.NaN())
	if s.CurrentTime() != 0 {
		t.Errorf("NaN start gave %v", s.CurrentTime())
	}
}

func TestPlayUnreachableSourceErrors(t *testing.T) {
	out := &playbacktest.Output{OpenErr: errors.New("404")}
	s := NewSession(out, nil)

	var gotErr error
	s.Subscribe(EventError, func(ev Event) { gotErr = ev.Err })
	s.Play(t1, 0)

	st := s.Snapshot()
	if !st.Errored || st.IsPlaying || st.Duration != 0 {
		t.Errorf("state = %+v", st)
	}
	if gotErr == nil {
		t.Error("no error event")
	}
	// seek on an errored binding is ignored
	s.Seek(5)
	if len(out.Seeks) != 0 {
		t.Error("seek reached errored output")
	}

	// retrying the same track rebinds
	out.OpenErr = nil
	out.Length = 60
	s.Play(t1, 0)
	if st := s.Snapshot(); st.Errored || !st.IsPlaying || len(out.Opened) != 2 {
		t.Errorf("retry state = %+v, opened %v", st, out.Opened)
	}
}

func TestToggle(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)

	s.Toggle()
	if s.IsPlaying() || len(out.Opened) != 0 {
		t.Fatal("toggle with nothing bound should be a no-op")
	}

	s.Play(t1, 0)
	out.Pos = 12
	s.Toggle()
	if s.IsPlaying() || s.CurrentTime() != 12 {
		t.Errorf("after pause: playing=%v time=%v", s.IsPlaying(), s.CurrentTime())
	}
	s.Toggle()
	if !s.IsPlaying() || s.CurrentTime() != 12 || !out.Playing {
		t.Errorf("after resume: playing=%v time=%v", s.IsPlaying(), s.CurrentTime())
	}
}

func TestSeekClampsAndKeepsState(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)

	s.Seek(5)
	if len(out.Seeks) != 0 {
		t.Error("seek with nothing bound reached output")
	}

	s.Play(t1, 0)
	s.Pause()
	updates := record(s, EventTimeUpdate)

	s.Seek(75)
	if s.CurrentTime() != 60 || s.IsPlaying() {
		t.Errorf("time=%v playing=%v", s.CurrentTime(), s.IsPlaying())
	}
	s.Seek(-3)
	if s.CurrentTime() != 0 {
		t.Errorf("time=%v", s.CurrentTime())
	}
	s.SeekBy(10)
	if s.CurrentTime() != 10 {
		t.Errorf("seek by: time=%v", s.CurrentTime())
	}
	if len(*updates) != 3 {
		t.Errorf("time updates = %d", len(*updates))
	}
}

func TestToggleLoopAppliesImmediately(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)
	s.ToggleLoop()
	if !out.Loop || !s.Snapshot().IsLooping {
		t.Error("loop not applied")
	}
	s.Play(t1, 0)
	if !out.Loop {
		t.Error("loop not carried to new binding")
	}
	s.ToggleLoop()
	if out.Loop {
		t.Error("loop not cleared")
	}
}

func TestSetVolumeClamps(t *testing.T) {
	out := &playbacktest.Output{}
	s := NewSession(out, nil)
	s.SetVolume(20)
	if out.Volume != MaxVolume {
		t.Errorf("volume = %v", out.Volume)
	}
	s.SetVolume(-100)
	if s.Snapshot().Volume != MinVolume {
		t.Errorf("volume = %v", s.Snapshot().Volume)
	}
}

func TestPollPublishesWhilePlaying(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)

	var times []float64
	s.Subscribe(EventTimeUpdate, func(ev Event) { times = append(times, ev.CurrentTime) })

	s.Poll()
	if len(times) != 0 {
		t.Fatal("poll published with nothing playing")
	}

	s.Play(t1, 0)
	times = nil
	out.Pos = 1.5
	s.Poll()
	out.Pos = math.Inf(1)
	s.Poll()
	out.Pos = 2
	s.Poll()

	if len(times) != 2 || times[0] != 1.5 || times[1] != 2 {
		t.Errorf("times = %v", times)
	}

	s.Pause()
	times = nil
	s.Poll()
	if len(times) != 0 {
		t.Error("poll published while paused")
	}
}

func TestPollDetectsEnd(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)
	ended := 0
	s.Subscribe(EventEnded, func(Event) { ended++ })

	s.Play(t1, 0)
	out.HasEnded = true
	s.Poll()
	s.Poll()

	if ended != 1 || s.IsPlaying() || s.CurrentTime() != 60 {
		t.Errorf("ended=%d playing=%v time=%v", ended, s.IsPlaying(), s.CurrentTime())
	}
}

func TestListenersMayCallBack(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)
	var seen State
	s.Subscribe(EventStateChange, func(Event) { seen = s.Snapshot() })

	s.Play(t1, 0)
	if !seen.IsPlaying {
		t.Error("listener saw stale state")
	}
}

func TestEventCarriesBinding(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)
	var ev Event
	s.Subscribe(EventTrackChange, func(e Event) { ev = e })

	s.Play(t2, 0)
	if ev.TrackID != "t2" || ev.Source != t2.Source {
		t.Errorf("event = %+v", ev)
	}
	if !s.IsActive("t2") || s.IsActive("t1") {
		t.Error("IsActive wrong")
	}
}

func TestClose(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)
	s.Play(t1, 0)
	if err := s.Close(); err != nil || !out.Closed || s.IsPlaying() {
		t.Errorf("close: err=%v closed=%v", err, out.Closed)
	}
}

func TestFailedBindSilencesPreviousTrack(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	s := NewSession(out, nil)
	s.Play(t1, 0)

	out.OpenErr = errors.New("404")
	s.Play(t2, 0)

	if out.IsPlaying() {
		t.Fatal("previous track still audible after failed bind")
	}
	if st := s.Snapshot(); !st.Errored || st.IsPlaying {
		t.Errorf("state = %+v", st)
	}

	s.Pause()
	s.Toggle()
	if out.IsPlaying() {
		t.Error("output audible after pause and a failed retry")
	}
}

// chanDispatcher hands posted callbacks to the test
type chanDispatcher chan func()

func (d chanDispatcher) Post(fn func()) { d <- fn }

func (d chanDispatcher) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-d:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for bind to complete")
	}
}

var remote = domain.Track{ID: "r1", Source: "http://example.invalid/r1.mp3"}

func TestRemoteBindDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Write([]byte("audio"))
	}))
	defer srv.Close()
	track := domain.Track{ID: "r1", Source: srv.URL + "/r1.mp3"}

	out := &playbacktest.Output{Length: 90}
	out.Fetch = func(ctx context.Context, source string) error {
		rc, _, err := media.Open(ctx, source)
		if err != nil {
			return err
		}
		return rc.Close()
	}
	d := make(chanDispatcher, 4)
	s := NewSession(out, nil)
	s.SetDispatcher(d)

	done := make(chan struct{})
	go func() {
		s.Play(track, 30)
		s.Poll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Play blocked on the remote fetch")
	}

	st := s.Snapshot()
	if !st.Loading || st.IsPlaying || !s.IsActive("r1") || st.CurrentTime != 30 {
		t.Errorf("loading state = %+v", st)
	}
	if len(out.Opened) != 0 {
		t.Errorf("output opened before fetch finished: %v", out.Opened)
	}

	close(release)
	d.runNext(t)

	st = s.Snapshot()
	if st.Loading || !st.IsPlaying || st.CurrentTime != 30 || st.Duration != 90 {
		t.Errorf("bound state = %+v", st)
	}
	if len(out.Opened) != 1 || out.Opened[0] != track.Source {
		t.Errorf("opened = %v", out.Opened)
	}
}

func TestRemoteBindFailure(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	out.Fetch = func(context.Context, string) error { return errors.New("503") }
	d := make(chanDispatcher, 4)
	s := NewSession(out, nil)
	s.SetDispatcher(d)

	var gotErr error
	s.Subscribe(EventError, func(ev Event) { gotErr = ev.Err })

	s.Play(t1, 0)
	s.Play(remote, 0)
	if out.IsPlaying() {
		t.Error("previous track audible while fetching")
	}
	d.runNext(t)

	if st := s.Snapshot(); !st.Errored || st.Loading || st.IsPlaying {
		t.Errorf("state = %+v", st)
	}
	if gotErr == nil {
		t.Error("no error event")
	}
}

func TestRemoteBindSuperseded(t *testing.T) {
	fetching := make(chan struct{})
	out := &playbacktest.Output{Length: 60}
	out.Fetch = func(ctx context.Context, _ string) error {
		close(fetching)
		<-ctx.Done()
		return ctx.Err()
	}
	d := make(chanDispatcher, 4)
	s := NewSession(out, nil)
	s.SetDispatcher(d)

	s.Play(remote, 0)
	<-fetching
	s.Play(t1, 0)
	d.runNext(t)

	if !s.IsActive("t1") || !s.IsPlaying() || s.Snapshot().Errored {
		t.Errorf("stale fetch disturbed the new binding: %+v", s.Snapshot())
	}
	if len(out.Opened) != 1 || out.Opened[0] != t1.Source {
		t.Errorf("opened = %v", out.Opened)
	}
}

func TestPauseWhileFetching(t *testing.T) {
	out := &playbacktest.Output{Length: 60}
	d := make(chanDispatcher, 4)
	s := NewSession(out, nil)
	s.SetDispatcher(d)

	s.Play(remote, 0)
	s.Toggle()
	s.Seek(12)
	d.runNext(t)

	st := s.Snapshot()
	if st.IsPlaying || out.IsPlaying() {
		t.Error("paused fetch started playing")
	}
	if st.CurrentTime != 12 || len(out.Seeks) != 1 {
		t.Errorf("state = %+v, seeks %v", st, out.Seeks)
	}

	s.Toggle()
	if !s.IsPlaying() {
		t.Error("toggle after fetch did not resume")
	}
}
