package tui

import (
	"fmt"

	"github.com/appver/appver/internal/adapters/tuisvc"
	"github.com/appver/appver/internal/config"
	"github.com/appver/appver/internal/inspect"
	"github.com/appver/appver/internal/ports"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// View represents the current view state
type View int

const (
	EntriesView View = iota // Browsing the archive's entry tree
	PreviewView             // Showing one entry's content
)

// Model is the main TUI model
type Model struct {
	svc    ports.TUIService
	config *config.Config

	view     View
	width    int
	height   int
	quitting bool

	// Archive being browsed
	archivePath string
	archive     ports.TUIArchiveInfo

	// Entries view
	dir         string // current directory, "" is the archive root
	entries     []ports.TUIEntryInfo
	entryCursor int

	// Preview view
	previewPath   string
	previewLines  []string
	previewScroll int

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Probe key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Probe: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "probe version"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel creates a TUI model browsing the archive at path, using the
// real archive service.
func NewModel(path string) (*Model, error) {
	return NewModelWithService(tuisvc.New(), path)
}

// NewModelWithService creates a TUI model with an injected service.
func NewModelWithService(svc ports.TUIService, path string) (*Model, error) {
	cfg, err := svc.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	info, err := svc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	m := &Model{
		svc:         svc,
		config:      cfg,
		view:        EntriesView,
		archivePath: path,
		archive:     info,
	}

	if err := m.loadEntries(); err != nil {
		_ = svc.Close()
		return nil, err
	}

	return m, nil
}

// loadEntries loads the listing for the current directory.
func (m *Model) loadEntries() error {
	entries, err := m.svc.List(m.dir)
	if err != nil {
		return err
	}
	m.entries = entries
	if m.entryCursor >= len(m.entries) {
		m.entryCursor = 0
	}
	return nil
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case previewMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Preview failed: %v", msg.err)
			m.statusErr = true
		} else {
			m.previewPath = msg.path
			m.previewLines = splitLines(msg.text)
			m.previewScroll = 0
			m.view = PreviewView
			m.statusMsg = ""
		}
		return m, nil

	case probeMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Probe failed: %v", msg.err)
			m.statusErr = true
		} else {
			m.statusMsg = fmt.Sprintf("✓ %s: %s", msg.entry, msg.version)
			m.statusErr = false
		}
		return m, nil

	case tea.KeyMsg:
		// Clear status on any key
		m.statusMsg = ""
		m.statusErr = false

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			_ = m.svc.Close()
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.Enter):
			if m.view == EntriesView && len(m.entries) > 0 {
				entry := m.entries[m.entryCursor]
				if entry.Dir {
					m.dir = entry.Path
					m.entryCursor = 0
					if err := m.loadEntries(); err != nil {
						m.statusMsg = fmt.Sprintf("Error: %v", err)
						m.statusErr = true
					}
				} else if entry.Link == "" {
					return m, m.loadPreview(entry.Path)
				}
			}

		case key.Matches(msg, keys.Back):
			switch m.view {
			case PreviewView:
				m.view = EntriesView
				m.previewLines = nil
				m.previewScroll = 0
			case EntriesView:
				if m.dir != "" {
					m.dir = parentDir(m.dir)
					m.entryCursor = 0
					if err := m.loadEntries(); err != nil {
						m.statusMsg = fmt.Sprintf("Error: %v", err)
						m.statusErr = true
					}
				}
			}

		case key.Matches(msg, keys.Probe):
			if m.view == EntriesView {
				return m, m.probeVersion()
			}
		}
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.view {
	case EntriesView:
		m.entryCursor += delta
		if m.entryCursor < 0 {
			m.entryCursor = 0
		}
		if m.entryCursor >= len(m.entries) {
			m.entryCursor = len(m.entries) - 1
		}
		if m.entryCursor < 0 {
			m.entryCursor = 0
		}
	case PreviewView:
		m.previewScroll += delta
		if m.previewScroll < 0 {
			m.previewScroll = 0
		}
		maxScroll := len(m.previewLines) - (m.height - 10)
		if maxScroll < 0 {
			maxScroll = 0
		}
		if m.previewScroll > maxScroll {
			m.previewScroll = maxScroll
		}
	}
}

// previewBytes bounds how much entry content is rendered in the
// preview view.
const previewBytes = 64 * 1024

func (m *Model) loadPreview(path string) tea.Cmd {
	return func() tea.Msg {
		text, err := m.svc.Preview(path, previewBytes)
		return previewMsg{path: path, text: text, err: err}
	}
}

func (m *Model) probeVersion() tea.Cmd {
	entry := m.config.DefaultEntry
	if entry == "" {
		entry = inspect.DefaultEntry
	}
	verKey := m.config.DefaultKey
	if verKey == "" {
		verKey = inspect.DefaultKey
	}
	return func() tea.Msg {
		version, err := m.svc.Version(entry, verKey)
		return probeMsg{entry: entry, version: version, err: err}
	}
}

type previewMsg struct {
	path string
	text string
	err  error
}

type probeMsg struct {
	entry   string
	version string
	err     error
}

// Run starts the TUI browsing the archive at path.
func Run(path string) error {
	m, err := NewModel(path)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
