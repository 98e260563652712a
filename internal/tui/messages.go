package tui

import (
	"github.com/mmcdole/tapedeck/internal/domain"
)

// Message types for the TUI

// TrackAddedMsg signals that the library watcher found a new track
type TrackAddedMsg struct {
	Track domain.Track
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// tickMsg drives session polling
type tickMsg struct{}

// clearStatusMsg clears the status line if it still shows the message with
// the same sequence number
type clearStatusMsg struct {
	seq int
}

// dispatchMsg wakes the UI loop to drain callbacks posted by the Dispatcher
type dispatchMsg struct{}
