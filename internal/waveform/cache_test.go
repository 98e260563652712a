package waveform

import (
	"sync"
	"testing"

	"github.com/mmcdole/tapedeck/internal/domain"
)

func TestBufferCacheWriteOnce(t *testing.T) {
	c := NewBufferCache()
	first := rampBuffer(1, 10)
	second := rampBuffer(2, 10)

	if _, ok := c.Get("t1"); ok {
		t.Fatal("empty cache returned an entry")
	}
	if !c.Set("t1", first) {
		t.Error("first Set should store")
	}
	if c.Set("t1", second) {
		t.Error("second Set should be a no-op")
	}
	got, ok := c.Get("t1")
	if !ok || got != first {
		t.Errorf("Get = %p, want first buffer %p", got, first)
	}
	if c.Set("t2", nil) {
		t.Error("nil buffer should not be stored")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestBufferCacheConcurrentSet(t *testing.T) {
	c := NewBufferCache()
	var wg sync.WaitGroup
	stored := make(chan bool, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored <- c.Set(domain.TrackID("t"), rampBuffer(1, 10))
		}()
	}
	wg.Wait()
	close(stored)

	wins := 0
	for ok := range stored {
		if ok {
			wins++
		}
	}
	if wins != 1 || c.Len() != 1 {
		t.Errorf("wins = %d, Len = %d; want exactly one entry", wins, c.Len())
	}
}
