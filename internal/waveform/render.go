package waveform

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// waveBlocks are the eighth-height block elements, index = eighths filled
var waveBlocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Palette holds the colors a waveform is drawn with
type Palette struct {
	Played   lipgloss.Color
	Unplayed lipgloss.Color
	Cursor   lipgloss.Color
	Muted    lipgloss.Color // skeleton and flat (errored) waveforms
}

// DefaultPalette returns the stock colors
func DefaultPalette() Palette {
	return Palette{
		Played:   lipgloss.Color("#E5A00D"),
		Unplayed: lipgloss.Color("#6B7280"),
		Cursor:   lipgloss.Color("#F9FAFB"),
		Muted:    lipgloss.Color("#374151"),
	}
}

type segmentKind int

const (
	segPlayed segmentKind = iota
	segCursor
	segUnplayed
)

// View renders the waveform as height lines of width cells.
// Columns left of the cursor use the played color.
func (e *Engine) View() string {
	if e.width <= 0 || e.height <= 0 {
		return ""
	}
	if e.Duration() <= 0 {
		return e.placeholder()
	}

	if len(e.peaks) != e.width {
		e.peaks = e.buffer.Peaks(e.width)
	}

	played := int(math.Round(e.ratio * float64(e.width)))
	cursor := min(played, e.width-1)

	styles := map[segmentKind]lipgloss.Style{
		segPlayed:   lipgloss.NewStyle().Foreground(e.palette.Played),
		segCursor:   lipgloss.NewStyle().Foreground(e.palette.Cursor),
		segUnplayed: lipgloss.NewStyle().Foreground(e.palette.Unplayed),
	}
	kindAt := func(col int) segmentKind {
		switch {
		case col == cursor:
			return segCursor
		case col < played:
			return segPlayed
		default:
			return segUnplayed
		}
	}

	lines := make([]string, e.height)
	for row := range e.height {
		floor := (e.height - 1 - row) * 8 // eighths below this row

		var line, run strings.Builder
		runKind := kindAt(0)
		for col := range e.width {
			if k := kindAt(col); k != runKind {
				line.WriteString(styles[runKind].Render(run.String()))
				run.Reset()
				runKind = k
			}
			run.WriteString(waveBlocks[columnFill(e.peaks[col], e.height, floor)])
		}
		line.WriteString(styles[runKind].Render(run.String()))
		lines[row] = line.String()
	}
	return strings.Join(lines, "\n")
}

// columnFill returns how many eighths of the row starting at floor are
// covered by a column of the given peak level
func columnFill(peak float64, height, floor int) int {
	units := int(math.Round(peak * float64(height*8)))
	if peak > 0 && units == 0 {
		units = 1
	}
	return min(max(units-floor, 0), 8)
}

// placeholder renders the skeleton while loading, or a flat line when the
// engine holds no audio
func (e *Engine) placeholder() string {
	style := lipgloss.NewStyle().Foreground(e.palette.Muted)
	glyph := "─"
	if e.loading {
		glyph = "┄"
	}
	mid := e.height / 2
	lines := make([]string, e.height)
	for row := range e.height {
		if row == mid {
			lines[row] = style.Render(strings.Repeat(glyph, e.width))
		} else {
			lines[row] = strings.Repeat(" ", e.width)
		}
	}
	return strings.Join(lines, "\n")
}
