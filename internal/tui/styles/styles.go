package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/tapedeck/internal/waveform"
)

// Color palette
var (
	Amber      = lipgloss.Color("#E5A00D")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
)

// Waveform returns the palette waveforms are drawn with
func Waveform() waveform.Palette {
	return waveform.Palette{
		Played:   Amber,
		Unplayed: DimGray,
		Cursor:   White,
		Muted:    SlateLight,
	}
}

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)
)

// Track row styles
var (
	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight)

	NormalRowStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	MatchStyle = lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true)

	MatchSelectedStyle = lipgloss.NewStyle().
				Foreground(Amber).
				Background(SlateLight).
				Bold(true)
)

// Transport indicator characters
const (
	PlayingChar = "▶"
	PausedChar  = "‖"
	ErrorChar   = "✗"
	LoopChar    = "⟳"
	LoadingChar = "…"
)

// Filter styles
var (
	FilterPromptStyle = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
)

// Progress bar styles
var (
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(Amber)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(DimGray)
)

// Truncate shortens s to width cells, ending in an ellipsis when cut
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

// RenderProgressBar renders a bar filled to ratio in [0, 1]
func RenderProgressBar(ratio float64, width int) string {
	if width < 3 {
		return ""
	}
	filled := min(max(int(float64(width)*ratio), 0), width)
	return ProgressFullStyle.Render(strings.Repeat("━", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("─", width-filled))
}

// Highlight renders text with the runes at matched positions emphasised
func Highlight(text string, matched []int, selected bool) string {
	base, match := NormalRowStyle, MatchStyle
	if selected {
		base, match = SelectedRowStyle, MatchSelectedStyle
	}
	if len(matched) == 0 {
		return base.Render(text)
	}

	set := make(map[int]bool, len(matched))
	for _, i := range matched {
		set[i] = true
	}

	var b strings.Builder
	var run []rune
	inMatch := false
	flush := func() {
		if len(run) == 0 {
			return
		}
		if inMatch {
			b.WriteString(match.Render(string(run)))
		} else {
			b.WriteString(base.Render(string(run)))
		}
		run = run[:0]
	}
	for i, r := range []rune(text) {
		if set[i] != inMatch {
			flush()
			inMatch = set[i]
		}
		run = append(run, r)
	}
	flush()
	return b.String()
}

// SpinnerFrames animate the startup library scan
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
