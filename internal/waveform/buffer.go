// Package waveform decodes audio into sample buffers, caches them per track,
// and renders them as terminal waveforms.
package waveform

import "math"

// Buffer is a fully decoded, mono sample buffer at the analysis rate.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the length of the buffer in seconds
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Peaks reduces the buffer to n columns. Each column holds the peak absolute
// amplitude of its bucket, normalised so the loudest column is 1.
func (b *Buffer) Peaks(n int) []float64 {
	if b == nil || n <= 0 || len(b.Samples) == 0 {
		return nil
	}

	peaks := make([]float64, n)
	step := float64(len(b.Samples)) / float64(n)

	var loudest float64
	for col := range n {
		start := int(float64(col) * step)
		end := int(float64(col+1) * step)
		if end <= start {
			end = start + 1
		}
		if end > len(b.Samples) {
			end = len(b.Samples)
		}

		var peak float64
		for _, s := range b.Samples[start:end] {
			if v := math.Abs(float64(s)); v > peak {
				peak = v
			}
		}
		peaks[col] = peak
		loudest = max(loudest, peak)
	}

	if loudest > 0 {
		for i := range peaks {
			peaks[i] /= loudest
		}
	}
	return peaks
}
