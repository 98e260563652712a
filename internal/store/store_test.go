package store

import (
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/tapedeck/internal/domain"
)

var _ domain.PositionStore = (*PositionStore)(nil)

func TestMemoryOnly(t *testing.T) {
	s, err := NewPositionStore(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if got := s.Get("missing"); got != 0 {
		t.Errorf("Get(missing) = %v", got)
	}
	s.Set("t1", 42.5)
	if got := s.Get("t1"); got != 42.5 {
		t.Errorf("Get(t1) = %v", got)
	}
	if err := s.Flush(); err != nil {
		t.Errorf("Flush in memory mode: %v", err)
	}
}

func TestSetFiltersInvalid(t *testing.T) {
	s, _ := NewPositionStore(Options{})
	s.Set("t1", 10)

	s.Set("t1", math.NaN())
	s.Set("t1", math.Inf(1))
	if got := s.Get("t1"); got != 10 {
		t.Errorf("non-finite write applied: %v", got)
	}

	s.Set("t1", -4)
	if got := s.Get("t1"); got != 0 {
		t.Errorf("negative not clamped: %v", got)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "positions.db")

	s, err := NewPositionStore(Options{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	s.Set("t1", 42.5)
	s.Set("t2", 7)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewPositionStore(Options{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if got := s.Get("t1"); got != 42.5 {
		t.Errorf("t1 = %v", got)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestBufferedWritesFlushOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.db")

	s, err := NewPositionStore(Options{Path: path, FlushInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	for i := range 100 {
		s.Set("t1", float64(i))
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	s, err = NewPositionStore(Options{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if got := s.Get("t1"); got != 99 {
		t.Errorf("t1 = %v, want 99", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := NewPositionStore(Options{})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := domain.TrackID([]string{"a", "b"}[i%2])
			for j := range 100 {
				s.Set(id, float64(j))
				_ = s.Get(id)
			}
		}()
	}
	wg.Wait()
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestPositionCodec(t *testing.T) {
	if pos, ok := decodePosition(encodePosition(12.25)); !ok || pos != 12.25 {
		t.Errorf("decode = %v, %v", pos, ok)
	}
	if _, ok := decodePosition([]byte{1, 2}); ok {
		t.Error("short value accepted")
	}
	if _, ok := decodePosition(encodePosition(math.NaN())); ok {
		t.Error("NaN accepted")
	}
}
