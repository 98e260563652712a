package waveform

import (
	"math"
	"testing"
)

func TestBufferDuration(t *testing.T) {
	if got := rampBuffer(180, 100).Duration(); math.Abs(got-180) > 1e-9 {
		t.Errorf("Duration() = %v, want 180", got)
	}
	var nilBuf *Buffer
	if got := nilBuf.Duration(); got != 0 {
		t.Errorf("nil Duration() = %v", got)
	}
	if got := (&Buffer{Samples: make([]float32, 10)}).Duration(); got != 0 {
		t.Errorf("zero-rate Duration() = %v", got)
	}
}

func TestBufferPeaks(t *testing.T) {
	buf := rampBuffer(10, 100)
	peaks := buf.Peaks(10)
	if len(peaks) != 10 {
		t.Fatalf("len = %d", len(peaks))
	}
	if peaks[9] != 1 {
		t.Errorf("loudest column = %v, want 1", peaks[9])
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i] < peaks[i-1] {
			t.Errorf("ramp peaks not increasing at %d: %v", i, peaks)
		}
	}
}

func TestBufferPeaksMoreColumnsThanSamples(t *testing.T) {
	buf := &Buffer{Samples: []float32{0.5, -1}, SampleRate: 2}
	peaks := buf.Peaks(5)
	if len(peaks) != 5 {
		t.Fatalf("len = %d", len(peaks))
	}
	for _, p := range peaks {
		if p < 0 || p > 1 {
			t.Errorf("peak %v out of range", p)
		}
	}
}

func TestBufferPeaksSilence(t *testing.T) {
	buf := &Buffer{Samples: make([]float32, 100), SampleRate: 10}
	for _, p := range buf.Peaks(4) {
		if p != 0 {
			t.Errorf("silence peak = %v", p)
		}
	}
	if (&Buffer{}).Peaks(4) != nil {
		t.Error("empty buffer should have no peaks")
	}
}
