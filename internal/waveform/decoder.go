package waveform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/media"
)

// DefaultAnalysisRate is the sample rate buffers are decoded to.
// Waveform previews need far less resolution than playback.
const DefaultAnalysisRate = 8000

const decodeChunk = 4096

// Decoder turns an audio source into a Buffer
type Decoder interface {
	Decode(ctx context.Context, source string) (*Buffer, error)
}

// BeepDecoder decodes sources with beep, down-mixed to mono and resampled
// to the analysis rate.
type BeepDecoder struct {
	rate   beep.SampleRate
	logger *slog.Logger
}

// NewBeepDecoder creates a decoder producing buffers at rate samples/second
func NewBeepDecoder(rate int, logger *slog.Logger) *BeepDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	if rate <= 0 {
		rate = DefaultAnalysisRate
	}
	return &BeepDecoder{rate: beep.SampleRate(rate), logger: logger}
}

// Decode reads source to the end. It checks ctx between chunks and returns
// domain.ErrLoadAborted once ctx is done.
func (d *BeepDecoder) Decode(ctx context.Context, source string) (*Buffer, error) {
	start := time.Now()

	rc, ext, err := media.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	streamer, format, err := media.Decode(rc, ext)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if format.SampleRate != d.rate {
		s = beep.Resample(3, format.SampleRate, d.rate, s)
	}

	// Pre-size from the source length to avoid repeated growth
	expected := int(float64(streamer.Len()) * float64(d.rate) / float64(format.SampleRate))
	samples := make([]float32, 0, expected+decodeChunk)
	chunk := make([][2]float64, decodeChunk)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", source, domain.ErrLoadAborted)
		}
		n, ok := s.Stream(chunk)
		for i := range n {
			samples = append(samples, float32((chunk[i][0]+chunk[i][1])/2))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}

	buf := &Buffer{Samples: samples, SampleRate: int(d.rate)}
	d.logger.Debug("decoded waveform",
		"source", source,
		"duration", buf.Duration(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf, nil
}
