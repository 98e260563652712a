package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/tapedeck/internal/playback"
	"github.com/mmcdole/tapedeck/internal/tui/styles"
	"github.com/mmcdole/tapedeck/internal/visualizer"
)

// View renders the whole screen
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	body := m.renderList()
	if m.showHelp {
		body = m.renderHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderTransport(),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

func (m *Model) renderHeader() string {
	if m.filtering {
		return m.filter.View()
	}
	title := styles.TitleStyle.Render("tapedeck")
	count := fmt.Sprintf(" %d tracks", len(m.tracks))
	if q := m.filter.Value(); q != "" {
		count = fmt.Sprintf(" %d of %d tracks matching %q", len(m.rows), len(m.tracks), q)
	}
	return title + styles.DimStyle.Render(count)
}

func (m *Model) renderHelp() string {
	full := m.help.FullHelpView(m.keys.FullHelp())
	return lipgloss.NewStyle().Height(m.listHeight()).MaxHeight(m.listHeight()).Padding(1, indent).Render(full)
}

// renderList draws the visible slice of the list, exactly listHeight lines
func (m *Model) renderList() string {
	h, ih := m.listHeight(), m.itemHeight()
	if h == 0 {
		return ""
	}
	if len(m.rows) == 0 {
		msg := "no tracks"
		if m.filter.Value() != "" {
			msg = "no matches"
		}
		return lipgloss.NewStyle().Height(h).Padding(1, indent).Render(styles.DimStyle.Render(msg))
	}

	first := m.offset / ih
	skip := m.offset - first*ih
	lines := make([]string, 0, h+ih)
	for i := first; i < len(m.rows) && len(lines) < skip+h; i++ {
		lines = append(lines, m.renderItem(i)...)
	}
	lines = lines[min(skip, len(lines)):]
	if len(lines) > h {
		lines = lines[:h]
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderItem returns the title line, the waveform rows and the spacer of row i
func (m *Model) renderItem(i int) []string {
	r := m.rows[i]
	inst := m.instances[r.track.ID]
	pad := strings.Repeat(" ", indent)

	lines := []string{m.renderTitle(i, inst)}
	waveRows := m.bucket.WaveRows()
	var wave []string
	if inst != nil {
		wave = strings.Split(inst.View(), "\n")
	}
	for j := range waveRows {
		if j < len(wave) {
			lines = append(lines, pad+wave[j])
		} else {
			lines = append(lines, "")
		}
	}
	return append(lines, "")
}

func (m *Model) renderTitle(i int, inst *visualizer.Instance) string {
	r := m.rows[i]
	selected := i == m.cursor

	cursorMark := " "
	if selected {
		cursorMark = styles.AccentStyle.Render("›")
	}
	playMark := " "
	if m.shared.Session.IsActive(r.track.ID) {
		playMark = transportMark(m.shared.Session.Snapshot())
	}

	right := ""
	if inst != nil {
		switch {
		case inst.Failed():
			right = styles.ErrorStyle.Render("unavailable")
		case m.loaded[r.track.ID]:
			cur, dur := inst.Labels()
			right = styles.DimStyle.Render(formatTime(cur) + " / " + formatTime(dur))
		}
	}
	details := ""
	if d := r.track.Details(); d != "" {
		details = styles.DimStyle.Render("  " + d)
	}

	avail := m.width - indent - lipgloss.Width(right) - lipgloss.Width(details) - 1
	name := styles.Highlight(styles.Truncate(r.track.DisplayName(), max(avail, 1)), r.matched, selected)

	left := cursorMark + playMark + name + details
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderTransport() string {
	st := m.shared.Session.Snapshot()
	ratio := 0.0
	if st.Duration > 0 {
		ratio = st.CurrentTime / st.Duration
	}
	bar := styles.RenderProgressBar(ratio, max(m.width, 3))

	t, ok := st.ActiveTrack.Get()
	var info string
	if !ok {
		info = styles.DimStyle.Render("nothing playing")
	} else {
		info = transportMark(st) + " " + styles.TitleStyle.Render(t.DisplayName()) +
			styles.SubtitleStyle.Render("  "+formatTime(st.CurrentTime)+" / "+formatTime(st.Duration))
		if st.IsLooping {
			info += styles.AccentStyle.Render("  " + styles.LoopChar)
		}
	}
	info += styles.DimStyle.Render(fmt.Sprintf("  vol %+.0f dB", st.Volume))

	if m.status != "" {
		style := styles.SuccessStyle
		if m.statusErr {
			style = styles.ErrorStyle
		}
		info += "  " + style.Render(m.status)
	}
	return bar + "\n" + lipgloss.NewStyle().MaxWidth(max(m.width, 1)).Render(info)
}

func transportMark(st playback.State) string {
	switch {
	case st.Errored:
		return styles.ErrorStyle.Render(styles.ErrorChar)
	case st.Loading:
		return styles.DimStyle.Render(styles.LoadingChar)
	case st.IsPlaying:
		return styles.AccentStyle.Render(styles.PlayingChar)
	default:
		return styles.SubtitleStyle.Render(styles.PausedChar)
	}
}

// formatTime renders seconds as m:ss, or h:mm:ss past an hour
func formatTime(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		sec = 0
	}
	s := int(sec)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
