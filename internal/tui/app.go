package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/mmcdole/tapedeck/internal/domain"
	"github.com/mmcdole/tapedeck/internal/playback"
	"github.com/mmcdole/tapedeck/internal/search"
	"github.com/mmcdole/tapedeck/internal/tui/styles"
	"github.com/mmcdole/tapedeck/internal/visualizer"
)

const statusTimeout = 4 * time.Second

// Options configures the Model
type Options struct {
	Shared *visualizer.Shared
	// Dispatcher is drained on dispatchMsg. It should be the same value as
	// Shared.Dispatcher.
	Dispatcher   *Dispatcher
	Tracks       []domain.Track
	Autoplay     mo.Option[domain.Track]
	PollInterval time.Duration
	SeekStep     time.Duration
	Overscan     int // Items kept mounted above and below the viewport
	Logger       *slog.Logger
}

// row is one entry of the (possibly filtered) list
type row struct {
	track   domain.Track
	matched []int
}

// Model is the main Bubble Tea model for the application
type Model struct {
	shared     *visualizer.Shared
	dispatcher *Dispatcher
	logger     *slog.Logger

	keys   KeyMap
	help   help.Model
	filter textinput.Model

	// Data
	tracks    []domain.Track
	index     *search.Index
	rows      []row
	rowOf     map[domain.TrackID]int
	instances map[domain.TrackID]*visualizer.Instance
	// loaded marks mounted instances that reported ready
	loaded map[domain.TrackID]bool

	// Dimensions
	width  int
	height int
	bucket visualizer.Bucket
	ready  bool

	// UI state
	cursor    int
	offset    int // first visible list line
	filtering bool
	showHelp  bool
	dragging  mo.Option[domain.TrackID]

	status         string
	statusErr      bool
	statusSeq      int
	clearScheduled int

	pollInterval time.Duration
	seekStep     time.Duration
	overscan     int
	unsubs       []func()
}

// NewModel creates a new application model
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.SeekStep <= 0 {
		opts.SeekStep = 5 * time.Second
	}

	input := textinput.New()
	input.Prompt = "/"
	input.PromptStyle = styles.FilterPromptStyle
	input.Placeholder = "artist or title"

	m := &Model{
		shared:       opts.Shared,
		dispatcher:   opts.Dispatcher,
		logger:       logger.With("component", "tui"),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		filter:       input,
		tracks:       opts.Tracks,
		index:        search.NewIndex(opts.Tracks),
		instances:    make(map[domain.TrackID]*visualizer.Instance),
		loaded:       make(map[domain.TrackID]bool),
		pollInterval: opts.PollInterval,
		seekStep:     opts.SeekStep,
		overscan:     max(opts.Overscan, 0),
	}
	m.setRows(allRows(m.tracks))

	m.unsubs = append(m.unsubs,
		m.shared.Session.Subscribe(playback.EventError, m.onPlaybackError))

	if t, ok := opts.Autoplay.Get(); ok {
		if i, found := m.rowOf[t.ID]; found {
			m.cursor = i
		}
		m.shared.Session.Play(t, m.shared.Positions.Get(t.ID))
	}
	return m
}

// Init initializes the application
func (m *Model) Init() tea.Cmd {
	return tickCmd(m.pollInterval)
}

// Update handles all messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.filter.Width = max(msg.Width-4, 1)
		m.ready = true
		m.relayout()

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tickMsg:
		m.shared.Session.Poll()
		cmds = append(cmds, tickCmd(m.pollInterval))

	case dispatchMsg:
		if m.dispatcher != nil {
			m.dispatcher.Drain()
		}

	case TrackAddedMsg:
		m.addTrack(msg.Track)

	case StatusMsg:
		m.setStatus(msg.Message, msg.IsError)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
	}

	if m.statusSeq != m.clearScheduled {
		m.clearScheduled = m.statusSeq
		cmds = append(cmds, clearStatusCmd(m.statusSeq, statusTimeout))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	session := m.shared.Session
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Escape):
		if m.showHelp {
			m.showHelp = false
		} else if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter("")
		}
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m.filter.Focus()

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.HalfUp):
		m.moveCursor(-m.halfPage())
	case key.Matches(msg, m.keys.HalfDown):
		m.moveCursor(m.halfPage())
	case key.Matches(msg, m.keys.Home):
		m.moveCursor(-len(m.rows))
	case key.Matches(msg, m.keys.End):
		m.moveCursor(len(m.rows))

	case key.Matches(msg, m.keys.Play):
		m.playSelected()
	case key.Matches(msg, m.keys.Toggle):
		if session.ActiveTrackID().IsAbsent() {
			m.playSelected()
		} else {
			session.Toggle()
		}
	case key.Matches(msg, m.keys.Loop):
		session.ToggleLoop()
	case key.Matches(msg, m.keys.SeekBack):
		session.SeekBy(-m.seekStep.Seconds())
	case key.Matches(msg, m.keys.SeekForward):
		session.SeekBy(m.seekStep.Seconds())
	case key.Matches(msg, m.keys.VolumeUp):
		session.SetVolume(session.Snapshot().Volume + 1)
	case key.Matches(msg, m.keys.VolumeDown):
		session.SetVolume(session.Snapshot().Volume - 1)
	}
	return nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter("")
		return nil
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return nil
	}

	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.applyFilter(m.filter.Value())
	}
	return cmd
}

// playSelected starts the selected track from its resume point
func (m *Model) playSelected() {
	r, ok := m.selected()
	if !ok {
		return
	}
	m.shared.Session.Play(r.track, m.shared.Positions.Get(r.track.ID))
}

func (m *Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) applyFilter(query string) {
	m.setRows(m.filterRows(query))
	m.cursor, m.offset = 0, 0
	m.syncWindow()
}

func (m *Model) filterRows(query string) []row {
	if strings.TrimSpace(query) == "" {
		return allRows(m.tracks)
	}
	return lo.Map(m.index.Filter(query), func(r search.Result, _ int) row {
		return row{track: r.Track, matched: r.MatchedIndexes}
	})
}

func (m *Model) addTrack(t domain.Track) {
	if lo.ContainsBy(m.tracks, func(x domain.Track) bool { return x.ID == t.ID }) {
		return
	}
	m.tracks = append(m.tracks, t)
	m.index.Add(t)
	if q := m.filter.Value(); q != "" {
		m.setRows(m.filterRows(q))
		m.cursor = min(m.cursor, max(len(m.rows)-1, 0))
		m.clampOffset()
	} else {
		m.setRows(append(m.rows, row{track: t}))
	}
	m.syncWindow()
	m.setStatus(fmt.Sprintf("added %s", t.DisplayName()), false)
}

func (m *Model) setRows(rows []row) {
	m.rows = rows
	m.rowOf = make(map[domain.TrackID]int, len(rows))
	for i, r := range rows {
		m.rowOf[r.track.ID] = i
	}
}

func allRows(tracks []domain.Track) []row {
	return lo.Map(tracks, func(t domain.Track, _ int) row { return row{track: t} })
}

func (m *Model) onPlaybackError(ev playback.Event) {
	m.setStatus(fmt.Sprintf("playback failed: %v", ev.Err), true)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status, m.statusErr = msg, isErr
	m.statusSeq++
}

// Close destroys every mounted instance and detaches from the session
func (m *Model) Close() {
	for id, inst := range m.instances {
		inst.Destroy()
		delete(m.instances, id)
	}
	clear(m.loaded)
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}
