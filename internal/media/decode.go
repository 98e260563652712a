package media

import (
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/samber/lo"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// SupportedExts lists the extensions Decode understands
var SupportedExts = []string{".mp3", ".wav"}

// Decode builds a seekable streamer for rc based on its extension.
// On success the streamer owns rc; closing the streamer closes rc.
func Decode(rc io.ReadSeekCloser, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)

	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(rc)
	case ".wav":
		streamer, format, err = wav.Decode(rc)
	default:
		rc.Close()
		return nil, beep.Format{}, fmt.Errorf("%q: %w", ext, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		rc.Close()
		return nil, beep.Format{}, fmt.Errorf("decode: %w", err)
	}
	return streamer, format, nil
}

// IsSupported reports whether ext has a decoder
func IsSupported(ext string) bool {
	return lo.Contains(SupportedExts, ext)
}
