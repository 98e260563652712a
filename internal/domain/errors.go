package domain

import (
	"context"
	"errors"
)

// Sentinel errors for domain operations
var (
	// ErrLoadAborted indicates a load was cancelled because its owner went away.
	// It is expected and never a failure.
	ErrLoadAborted = errors.New("load aborted")

	// ErrUnsupportedFormat indicates the audio source has no known decoder
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrTrackNotFound indicates the requested track does not exist
	ErrTrackNotFound = errors.New("track not found")

	// ErrEmptyLibrary indicates the catalog found no playable tracks
	ErrEmptyLibrary = errors.New("no playable tracks found")
)

// IsBenignLoadError reports whether err is the expected cancellation of a load
func IsBenignLoadError(err error) bool {
	return errors.Is(err, ErrLoadAborted) || errors.Is(err, context.Canceled)
}
