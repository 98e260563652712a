package store

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/tapedeck/internal/domain"
)

var bucketPositions = []byte("positions")

// PositionStore implements domain.PositionStore. Reads and writes hit an
// in-memory map; when opened with a path, writes are also flushed to BoltDB
// so resume points survive restarts.
type PositionStore struct {
	db     *bolt.DB
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[domain.TrackID]float64
	dirty map[domain.TrackID]struct{}

	flushEvery time.Duration
	stop       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

// Options configures a PositionStore
type Options struct {
	// Path of the bolt file. Empty means memory-only.
	Path string
	// FlushInterval batches bolt writes. Zero writes through on every Set.
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// NewPositionStore opens the store, loading any persisted positions
func NewPositionStore(opts Options) (*PositionStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &PositionStore{
		logger:     logger.With("component", "positions"),
		cache:      make(map[domain.TrackID]float64),
		dirty:      make(map[domain.TrackID]struct{}),
		flushEvery: opts.FlushInterval,
	}
	if opts.Path == "" {
		// Memory-only mode (no persistence)
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(opts.Path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketPositions)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			if pos, ok := decodePosition(v); ok {
				s.cache[domain.TrackID(k)] = pos
			}
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db

	if s.flushEvery > 0 {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.flushLoop()
	}
	s.logger.Debug("position store opened", "path", opts.Path, "entries", len(s.cache))
	return s, nil
}

// Get returns the last offset for id in seconds, or 0 when unknown
func (s *PositionStore) Get(id domain.TrackID) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[id]
}

// Set records seconds as the last offset for id. Negative values are
// clamped to 0 and non-finite values are dropped.
func (s *PositionStore) Set(id domain.TrackID, seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	seconds = max(seconds, 0)

	s.mu.Lock()
	s.cache[id] = seconds
	if s.db != nil {
		s.dirty[id] = struct{}{}
	}
	s.mu.Unlock()

	if s.db != nil && s.flushEvery <= 0 {
		if err := s.Flush(); err != nil {
			s.logger.Warn("failed to persist position", "track", id, "error", err)
		}
	}
}

// Len returns the number of tracks with a recorded position
func (s *PositionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Flush writes pending positions to BoltDB
func (s *PositionStore) Flush() error {
	if s.db == nil {
		return nil
	}

	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := make(map[domain.TrackID]float64, len(s.dirty))
	for id := range s.dirty {
		batch[id] = s.cache[id]
	}
	clear(s.dirty)
	s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPositions)
		for id, pos := range batch {
			if err := b.Put([]byte(id), encodePosition(pos)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Re-mark so the next flush retries
		s.mu.Lock()
		for id := range batch {
			s.dirty[id] = struct{}{}
		}
		s.mu.Unlock()
		return fmt.Errorf("flush positions: %w", err)
	}
	return nil
}

func (s *PositionStore) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.logger.Warn("periodic flush failed", "error", err)
			}
		case <-s.stop:
			return
		}
	}
}

// Close flushes pending writes and closes the database
func (s *PositionStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
		if s.db == nil {
			return
		}
		err = s.Flush()
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

func encodePosition(pos float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(pos))
	return buf
}

func decodePosition(v []byte) (float64, bool) {
	if len(v) != 8 {
		return 0, false
	}
	pos := math.Float64frombits(binary.BigEndian.Uint64(v))
	if math.IsNaN(pos) || math.IsInf(pos, 0) || pos < 0 {
		return 0, false
	}
	return pos, true
}
