// Package tui provides the BubbleTea-based settings screen.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/model"
	"github.com/jmylchreest/hevsound/internal/notify"
	"github.com/jmylchreest/hevsound/internal/store"
)

// SourceTUI is the source recorded when the settings screen changes the
// master switch.
const SourceTUI = "tui"

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeHelp
)

// PreviewFunc plays the sound configured for an event.
type PreviewFunc func(kind model.EventKind, sound model.Sound) error

// Options configures the settings screen.
type Options struct {
	Config     *config.Config
	ConfigPath string
	StatePath  string
	Preview    PreviewFunc // nil disables previews
}

// row is one line of the settings list. The zero kind is the master switch.
type row struct {
	kind model.EventKind
}

func (r row) master() bool {
	return r.kind == ""
}

// Model is the settings screen model.
type Model struct {
	cfg        *config.Config
	configPath string
	statePath  string
	preview    PreviewFunc

	mode Mode
	help help.Model
	keys KeyMap

	rows   []row
	cursor int

	sounds      bool
	savedSounds bool
	dirty       bool
	confirmQuit bool

	width  int
	height int

	statusMsg string
	statusErr bool
}

// New creates a settings model. The master switch is read from the shared
// state, falling back to the config.
func New(opts Options) (Model, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	state, err := store.LoadSharedState(opts.StatePath)
	if err != nil {
		return Model{}, fmt.Errorf("failed to load state: %w", err)
	}
	sounds := state.SoundsOn(cfg.Sounds.Enabled)

	rows := []row{{}}
	for _, kind := range model.AllEvents() {
		rows = append(rows, row{kind: kind})
	}

	return Model{
		cfg:         cfg.Clone(),
		configPath:  opts.ConfigPath,
		statePath:   opts.StatePath,
		preview:     opts.Preview,
		mode:        ModeList,
		help:        help.New(),
		keys:        DefaultKeyMap(),
		rows:        rows,
		sounds:      sounds,
		savedSounds: sounds,
	}, nil
}

// Config returns the working copy of the configuration.
func (m Model) Config() *config.Config {
	return m.cfg
}

// SoundsEnabled returns the master switch as currently shown.
func (m Model) SoundsEnabled() bool {
	return m.sounds
}

// Dirty reports whether there are unsaved changes.
func (m Model) Dirty() bool {
	return m.dirty
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return nil
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type savedMsg struct {
	sounds bool
	err    error
}

type previewMsg struct {
	kind model.EventKind
	err  error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case savedMsg:
		if msg.err != nil {
			return m.setStatus("Save failed: "+msg.err.Error(), true)
		}
		m.dirty = false
		m.confirmQuit = false
		m.savedSounds = msg.sounds
		return m.setStatus("Settings saved", false)

	case previewMsg:
		if msg.err != nil {
			return m.setStatus("Preview failed: "+msg.err.Error(), true)
		}
		return m, nil

	case statusMsg:
		return m.setStatus(msg.text, msg.isErr)

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	return m, nil
}

func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.statusMsg = text
	m.statusErr = isErr
	return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.dirty && !m.confirmQuit {
			m.confirmQuit = true
			m.statusMsg = "Unsaved changes: s to save, q again to discard"
			m.statusErr = true
			return m, nil
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	m.confirmQuit = false

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}

	return m.handleListKey(msg)
}

// handleListKey handles keys in list mode.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.rows) - 1

	case key.Matches(msg, m.keys.Toggle):
		r := m.rows[m.cursor]
		if r.master() {
			m.sounds = !m.sounds
		} else {
			m.cfg.SetEventEnabled(r.kind, !m.cfg.IsEventEnabled(r.kind))
		}
		m.dirty = true

	case key.Matches(msg, m.keys.AllOn), key.Matches(msg, m.keys.AllOff):
		enabled := key.Matches(msg, m.keys.AllOn)
		for _, r := range m.rows {
			if !r.master() {
				m.cfg.SetEventEnabled(r.kind, enabled)
			}
		}
		m.dirty = true

	case key.Matches(msg, m.keys.Preview):
		r := m.rows[m.cursor]
		if r.master() || m.preview == nil {
			return m, nil
		}
		return m, m.previewSound(r.kind)

	case key.Matches(msg, m.keys.Save):
		return m, m.save()
	}

	return m, nil
}

func (m Model) previewSound(kind model.EventKind) tea.Cmd {
	sound, _ := m.cfg.EventSound(kind)
	preview := m.preview
	return func() tea.Msg {
		return previewMsg{kind: kind, err: preview(kind, sound)}
	}
}

// save writes the config and, if the master switch changed, the shared
// state. Both files are picked up by a running daemon.
func (m Model) save() tea.Cmd {
	cfg := m.cfg.Clone()
	configPath := m.configPath
	statePath := m.statePath
	sounds := m.sounds
	soundsChanged := m.sounds != m.savedSounds

	return func() tea.Msg {
		if err := cfg.Save(configPath); err != nil {
			return savedMsg{err: err}
		}
		if soundsChanged {
			_, err := store.UpdateSharedState(statePath, func(s *store.SharedState) {
				s.SetSounds(sounds, "settings", SourceTUI)
			})
			if err != nil {
				return savedMsg{err: err}
			}
		}
		return savedMsg{sounds: sounds}
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// View renders the TUI.
func (m Model) View() string {
	if m.mode == ModeHelp {
		return m.viewHelp()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	var sb strings.Builder

	title := "HEV suit sounds"
	if m.dirty {
		title += " *"
	}
	sb.WriteString(titleStyle.Render(title) + "\n\n")

	for i, r := range m.rows {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		sb.WriteString(prefix + m.renderRow(r) + "\n")
		if r.master() {
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	switch {
	case m.statusMsg != "" && m.statusErr:
		sb.WriteString(errStyle.Render(m.statusMsg))
	case m.statusMsg != "":
		sb.WriteString(statusStyle.Render(m.statusMsg))
	default:
		sb.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	return sb.String()
}

func (m Model) renderRow(r row) string {
	if r.master() {
		state := offStyle.Render("DEACTIVATED")
		if m.sounds {
			state = onStyle.Render("ACTIVATED")
		}
		return fmt.Sprintf("%s All sounds  %s", checkbox(m.sounds), state)
	}

	enabled := m.cfg.IsEventEnabled(r.kind)
	line := fmt.Sprintf("%s %-16s", checkbox(enabled), r.kind.Label())

	if sound, ok := m.cfg.EventSound(r.kind); ok {
		line += dimStyle.Render(fmt.Sprintf("%-28s vol %.2f  p%d",
			filepath.Base(sound.File), sound.Volume, sound.Priority))
	}

	if !m.sounds || !enabled {
		return dimStyle.Render(line)
	}
	return line
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewHelp() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Keyboard Shortcuts") + "\n\n")
	sb.WriteString(m.help.FullHelpView(m.keys.FullHelp()) + "\n\n")
	sb.WriteString(dimStyle.Render(notify.SoundsMessage(m.sounds)) + "\n")
	sb.WriteString(dimStyle.Render("Press ? or esc to return"))
	return sb.String()
}

// Run starts the settings screen.
func Run(opts Options) error {
	m, err := New(opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
