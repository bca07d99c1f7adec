// Package monitor is a read-only live dashboard over the project state:
// gate results, task progress and sync mappings, refreshed on an interval.
package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/specdriven/sdd/internal/gates"
	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/run"
	"github.com/specdriven/sdd/internal/state"
)

// snapshot is one refresh worth of project state
type snapshot struct {
	Gates *models.GateState
	Run   *models.RunState
	Sync  *models.SyncState
	Err   error
}

type tickMsg time.Time

// keyMap defines the monitor key bindings
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Refresh, k.Help, k.Quit}}
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the bubbletea model for the monitor
type Model struct {
	dir      string
	interval time.Duration
	version  string

	snap    snapshot
	loaded  bool
	cursor  int
	width   int
	height  int
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel builds a monitor over a project directory
func NewModel(dir string, interval time.Duration, version string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		dir:      dir,
		interval: interval,
		version:  version,
		spinner:  sp,
		help:     help.New(),
		keys:     keys,
	}
}

// Init starts the spinner and the first load
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// load reads all state documents off the files; it runs as a tea.Cmd so the
// UI never blocks on disk.
func (m Model) load() tea.Msg {
	var snap snapshot

	g, err := gates.Load(m.dir)
	if err != nil {
		snap.Err = err
		return snap
	}
	snap.Gates = g

	if machine, err := run.Open(m.dir); err == nil {
		snap.Run = machine.State
	}

	var ss models.SyncState
	if found, err := state.Load(m.dir, state.SyncFile, &ss); err == nil && found {
		snap.Sync = &ss
	}

	return snap
}

// Update handles key, tick and snapshot messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.snap.Run != nil && m.cursor < len(m.snap.Run.Tasks)-1 {
				m.cursor++
			}
			return m, nil
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.load, m.tick())

	case snapshot:
		m.snap = msg
		m.loaded = true
		if msg.Run != nil && m.cursor >= len(msg.Run.Tasks) {
			m.cursor = 0
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}
