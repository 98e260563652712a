package playback

import (
	"sync/atomic"
	"testing"

	"github.com/gopxl/beep/v2"
)

// countStreamer yields a fixed number of samples valued by their index
type countStreamer struct {
	pos, n int
}

func (c *countStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.pos >= c.n {
		return 0, false
	}
	k := min(len(samples), c.n-c.pos)
	for i := range k {
		samples[i][0] = float64(c.pos + i)
	}
	c.pos += k
	return k, true
}
func (c *countStreamer) Err() error       { return nil }
func (c *countStreamer) Len() int         { return c.n }
func (c *countStreamer) Position() int    { return c.pos }
func (c *countStreamer) Seek(p int) error { c.pos = p; return nil }

var _ beep.StreamSeeker = (*countStreamer)(nil)

func TestLoopStreamerRewinds(t *testing.T) {
	var loop atomic.Bool
	loop.Store(true)
	l := &loopStreamer{s: &countStreamer{n: 3}, loop: &loop}

	buf := make([][2]float64, 7)
	n, ok := l.Stream(buf)
	if n != 7 || !ok {
		t.Fatalf("n=%d ok=%v", n, ok)
	}
	want := []float64{0, 1, 2, 0, 1, 2, 0}
	for i, w := range want {
		if buf[i][0] != w {
			t.Errorf("sample %d = %v, want %v", i, buf[i][0], w)
		}
	}
}

func TestLoopStreamerDrainsWhenNotLooping(t *testing.T) {
	var loop atomic.Bool
	l := &loopStreamer{s: &countStreamer{n: 3}, loop: &loop}

	buf := make([][2]float64, 5)
	if n, ok := l.Stream(buf); n != 3 || !ok {
		t.Errorf("first: n=%d ok=%v", n, ok)
	}
	if n, ok := l.Stream(buf); n != 0 || ok {
		t.Errorf("drained: n=%d ok=%v", n, ok)
	}
}
