package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsBenignLoadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"aborted", ErrLoadAborted, true},
		{"wrapped aborted", fmt.Errorf("decode: %w", ErrLoadAborted), true},
		{"canceled", context.Canceled, true},
		{"unsupported", ErrUnsupportedFormat, false},
		{"other", errors.New("404"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBenignLoadError(tt.err); got != tt.want {
				t.Errorf("IsBenignLoadError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTrackDetails(t *testing.T) {
	tr := Track{Title: "Night Drive", Artist: "Kilo", Key: "Am", BPM: 92, Price: 29.99}
	if got := tr.DisplayName(); got != "Kilo - Night Drive" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := tr.Details(); got != "Am • 92 bpm • $29.99" {
		t.Errorf("Details() = %q", got)
	}
	if got := (Track{Title: "Solo"}).DisplayName(); got != "Solo" {
		t.Errorf("DisplayName() without artist = %q", got)
	}
}

func TestSourceExt(t *testing.T) {
	tests := map[string]string{
		"/music/a.MP3":                    ".mp3",
		"https://cdn.example/b.wav?sig=1": ".wav",
		"file:///tmp/c.mp3#t=3":           ".mp3",
		"noext":                           "",
	}
	for in, want := range tests {
		if got := SourceExt(in); got != want {
			t.Errorf("SourceExt(%q) = %q, want %q", in, got, want)
		}
	}
}
