package domain

// PositionStore is the resume-position store: last known offset per track.
// Get returns 0 for unknown tracks.
type PositionStore interface {
	Get(id TrackID) float64
	Set(id TrackID, seconds float64)
}
