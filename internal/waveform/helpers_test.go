package waveform

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// queueDispatcher collects posted callbacks so tests decide when they run
type queueDispatcher struct {
	ch chan func()
}

func newQueueDispatcher() *queueDispatcher {
	return &queueDispatcher{ch: make(chan func(), 64)}
}

func (q *queueDispatcher) Post(fn func()) { q.ch <- fn }

func (q *queueDispatcher) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-q.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for posted callback")
	}
}

// fakeDecoder returns a fixed buffer, optionally blocking until released
type fakeDecoder struct {
	mu      sync.Mutex
	calls   int
	buf     *Buffer
	err     error
	release chan struct{}
}

func (d *fakeDecoder) Decode(ctx context.Context, source string) (*Buffer, error) {
	d.mu.Lock()
	d.calls++
	release := d.release
	d.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, fmt.Errorf("decode %s: %w", source, domain.ErrLoadAborted)
		}
	}
	return d.buf, d.err
}

func (d *fakeDecoder) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// rampBuffer returns a buffer of seconds length whose amplitude rises linearly
func rampBuffer(seconds float64, rate int) *Buffer {
	n := int(seconds * float64(rate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i) / float32(n)
	}
	return &Buffer{Samples: samples, SampleRate: rate}
}
