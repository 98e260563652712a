package waveform

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// SharedDecoder collapses concurrent decodes of the same source into one.
// The shared decode runs detached from any single caller, so a caller that
// gives up does not abort the decode for the others still waiting.
type SharedDecoder struct {
	inner Decoder
	group singleflight.Group
}

// NewSharedDecoder wraps inner with in-flight de-duplication
func NewSharedDecoder(inner Decoder) *SharedDecoder {
	return &SharedDecoder{inner: inner}
}

// Decode returns the result of the in-flight decode for source, starting
// one if none is running. It returns domain.ErrLoadAborted if ctx ends first.
func (d *SharedDecoder) Decode(ctx context.Context, source string) (*Buffer, error) {
	ch := d.group.DoChan(source, func() (any, error) {
		return d.inner.Decode(context.WithoutCancel(ctx), source)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Buffer), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("decode %s: %w", source, domain.ErrLoadAborted)
	}
}
