package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/mo"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// hit is what a screen cell maps to in the list
type hit struct {
	row    int
	col    int  // column within the waveform
	onWave bool // the cell is inside the row's waveform
}

// hitTest maps screen coordinates to a list row
func (m *Model) hitTest(x, y int) (hit, bool) {
	line := y - headerHeight
	if line < 0 || line >= m.listHeight() {
		return hit{}, false
	}
	line += m.offset
	ih := m.itemHeight()
	r := line / ih
	if r >= len(m.rows) {
		return hit{}, false
	}
	within := line % ih
	col := x - indent
	return hit{
		row:    r,
		col:    col,
		onWave: within >= 1 && within <= m.bucket.WaveRows() && col >= 0 && col < m.waveWidth(),
	}, true
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.moveCursor(-1)
		return
	case tea.MouseButtonWheelDown:
		m.moveCursor(1)
		return
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		h, ok := m.hitTest(msg.X, msg.Y)
		if !ok {
			return
		}
		m.cursor = h.row
		if !h.onWave {
			return
		}
		id := m.rows[h.row].track.ID
		if inst, ok := m.instances[id]; ok {
			inst.HandleClick(h.col)
			m.dragging = mo.Some(id)
		}

	case tea.MouseActionMotion:
		id, ok := m.dragging.Get()
		if !ok || msg.Button != tea.MouseButtonLeft {
			return
		}
		// Dragging keeps following the pointer even off the waveform;
		// the engine clamps the column
		if inst, ok := m.instances[id]; ok {
			inst.HandleDrag(msg.X - indent)
		}

	case tea.MouseActionRelease:
		m.dragging = mo.None[domain.TrackID]()
	}
}
