// Package mediatest writes small audio fixtures for tests.
package mediatest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
)

// WriteTone writes a mono-ish 440Hz sine WAV of the given length into dir
// and returns its path.
func WriteTone(t testing.TB, dir, name string, length time.Duration, rate beep.SampleRate) string {
	t.Helper()

	tone, err := generators.SineTone(rate, 440)
	if err != nil {
		t.Fatalf("sine tone: %v", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, beep.Take(rate.N(length), tone), format); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return path
}
