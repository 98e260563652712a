package tui

import (
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/visualizer"
)

// Vertical chrome around the track list
const (
	headerHeight    = 1
	transportHeight = 2
	footerHeight    = 1

	// indent is the left margin of every list line: cursor mark, play mark
	indent = 2
)

// Each item is a title line, the waveform, then a blank spacer line
func (m *Model) itemHeight() int { return m.bucket.WaveRows() + 2 }

func (m *Model) listHeight() int {
	return max(m.height-headerHeight-transportHeight-footerHeight, 0)
}

func (m *Model) waveWidth() int { return max(m.width-2*indent, 1) }

// rowTop returns the list line the waveform of row i starts on
func (m *Model) rowTop(i int) int { return i*m.itemHeight() + 1 }

func (m *Model) place(c *visualizer.Container, i int) {
	c.Top = m.rowTop(i)
	c.Width = m.waveWidth()
	c.Height = m.bucket.WaveRows()
}

func (m *Model) halfPage() int {
	return max(m.listHeight()/m.itemHeight()/2, 1)
}

// relayout applies new terminal dimensions to every mounted instance
func (m *Model) relayout() {
	m.bucket = m.shared.Breakpoints.BucketFor(m.width)
	for id, inst := range m.instances {
		inst.Container().Top = m.rowTop(m.rowOf[id])
		inst.Resize(m.waveWidth(), m.bucket.WaveRows())
	}
	m.ensureVisible()
	m.syncWindow()
}

func (m *Model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = lo.Clamp(m.cursor+delta, 0, len(m.rows)-1)
	m.ensureVisible()
	m.syncWindow()
}

// ensureVisible scrolls so the whole cursor item is on screen
func (m *Model) ensureVisible() {
	ih, h := m.itemHeight(), m.listHeight()
	top := m.cursor * ih
	if top < m.offset {
		m.offset = top
	}
	if top+ih > m.offset+h {
		m.offset = top + ih - h
	}
	m.clampOffset()
}

func (m *Model) clampOffset() {
	maxOffset := max(len(m.rows)*m.itemHeight()-m.listHeight(), 0)
	m.offset = lo.Clamp(m.offset, 0, maxOffset)
}

// mountRange returns the rows that should have an instance: the visible
// ones plus overscan on either side. last < first when there are none.
func (m *Model) mountRange() (first, last int) {
	if len(m.rows) == 0 || m.listHeight() == 0 {
		return 0, -1
	}
	ih := m.itemHeight()
	first = max(m.offset/ih-m.overscan, 0)
	last = min((m.offset+m.listHeight()-1)/ih+m.overscan, len(m.rows)-1)
	return first, last
}

// syncWindow mounts instances for rows entering the mount range and
// destroys those that left it, then moves the viewport so gates re-check.
func (m *Model) syncWindow() {
	if !m.ready {
		return
	}
	first, last := m.mountRange()
	want := make(map[domain.TrackID]int, max(last-first+1, 0))
	for i := first; i <= last; i++ {
		want[m.rows[i].track.ID] = i
	}

	stale := lo.OmitBy(m.instances, func(id domain.TrackID, _ *visualizer.Instance) bool {
		_, keep := want[id]
		return keep
	})
	for id, inst := range stale {
		inst.Destroy()
		delete(m.instances, id)
		delete(m.loaded, id)
	}
	if id, ok := m.dragging.Get(); ok && m.instances[id] == nil {
		m.dragging = mo.None[domain.TrackID]()
	}

	// Surviving instances move with the list (filtering reorders rows)
	for id, inst := range m.instances {
		inst.Container().Top = m.rowTop(want[id])
	}
	m.shared.Viewport.Scroll(m.offset, m.listHeight())

	for i := first; i <= last; i++ {
		t := m.rows[i].track
		if _, ok := m.instances[t.ID]; ok {
			continue
		}
		c := &visualizer.Container{}
		m.place(c, i)
		inst := visualizer.NewInstance(m.shared, t, c)
		inst.OnReady(func(float64, float64) {
			if m.instances[t.ID] == inst {
				m.loaded[t.ID] = true
			}
		})
		m.instances[t.ID] = inst
		inst.Mount()
	}
}
