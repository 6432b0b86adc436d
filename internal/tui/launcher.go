// Package tui renders the one-tap home screen: a grid of show tiles where a
// single key press starts the next episode.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	"github.com/tessro/onetap/internal/tui/components"
	"github.com/tessro/onetap/internal/tui/styles"
)

// MaxTiles is how many tiles fit on the home screen.
const MaxTiles = 12

const columns = 4

const (
	recentLines  = 5
	statePoll    = time.Second
	panelWidth   = 4 * 20
	recentFailed = "history unavailable"
)

// PlayFunc starts playback of a show.
type PlayFunc func(ctx context.Context, showID string) (core.Outcome, error)

// RecentFunc returns a show's history, oldest first.
type RecentFunc func(ctx context.Context, showID string) ([]core.HistoryEntry, error)

// StateFunc reports what the playback host is doing.
type StateFunc func(ctx context.Context) (*core.PlaybackState, error)

// StopFunc stops whatever is playing.
type StopFunc func(ctx context.Context) error

// Option configures a Model.
type Option func(*Model)

// WithRecent shows the focused tile's recent episodes under the grid.
func WithRecent(fn RecentFunc) Option {
	return func(m *Model) { m.recentFn = fn }
}

// WithState shows a now playing panel, refreshed every second.
func WithState(fn StateFunc) Option {
	return func(m *Model) { m.stateFn = fn }
}

// WithStop binds the stop key to fn.
func WithStop(fn StopFunc) Option {
	return func(m *Model) { m.stopFn = fn }
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Play  key.Binding
	Stop  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Play, k.Stop, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Left, k.Right}, {k.Play, k.Stop, k.Quit}}
}

var keys = keyMap{
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "left")),
	Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "right")),
	Play:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "play")),
	Stop:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// playedMsg carries the result of a play request back to the model.
type playedMsg struct {
	outcome core.Outcome
	err     error
}

type stoppedMsg struct {
	err error
}

type recentMsg struct {
	showID  string
	entries []core.HistoryEntry
	err     error
}

type stateMsg struct {
	state *core.PlaybackState
}

type tickMsg struct{}

// Model is the bubbletea model for the tile launcher.
type Model struct {
	ctx    context.Context
	tiles  []core.Show
	mode   core.Mode
	play   PlayFunc
	cursor int
	busy   bool
	status string
	failed bool
	help   help.Model
	width  int
	height int

	recentFn   RecentFunc
	stateFn    StateFunc
	stopFn     StopFunc
	recent     []core.HistoryEntry
	recentErr  error
	state      *core.PlaybackState
	recentView *components.Recent
	nowPlaying *components.NowPlaying
}

// NewModel creates a launcher for shows. Only the first MaxTiles are shown.
func NewModel(ctx context.Context, shows []core.Show, mode core.Mode, play PlayFunc, opts ...Option) Model {
	if len(shows) > MaxTiles {
		shows = shows[:MaxTiles]
	}
	m := Model{
		ctx:        ctx,
		tiles:      shows,
		mode:       mode,
		play:       play,
		help:       help.New(),
		width:      80,
		recentView: components.NewRecent(),
		nowPlaying: components.NewNowPlaying(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadRecent(), m.pollState())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Play):
			if m.busy || len(m.tiles) == 0 {
				return m, nil
			}
			show := m.tiles[m.cursor]
			m.busy = true
			m.failed = false
			m.status = "Starting " + show.DisplayLabel() + "…"
			return m, m.playCmd(show.ID)
		case key.Matches(msg, keys.Stop):
			if m.stopFn == nil {
				return m, nil
			}
			return m, m.stopCmd()
		}

		prev := m.cursor
		switch {
		case key.Matches(msg, keys.Left):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Right):
			if m.cursor < len(m.tiles)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Up):
			if m.cursor-columns >= 0 {
				m.cursor -= columns
			}
		case key.Matches(msg, keys.Down):
			if m.cursor+columns < len(m.tiles) {
				m.cursor += columns
			}
		}
		if m.cursor != prev {
			m.recent, m.recentErr = nil, nil
			return m, m.loadRecent()
		}

	case playedMsg:
		m.busy = false
		m.failed = msg.err != nil
		m.status = statusLine(msg.outcome, msg.err)
		return m, m.loadRecent()

	case stoppedMsg:
		m.failed = msg.err != nil
		if msg.err != nil {
			m.status = "Could not stop: " + msg.err.Error()
		} else {
			m.status = "Stopped"
		}

	case recentMsg:
		if m.focusedID() == msg.showID {
			m.recent, m.recentErr = msg.entries, msg.err
		}

	case tickMsg:
		return m, m.fetchState()

	case stateMsg:
		m.state = msg.state
		return m, m.pollState()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	}

	return m, nil
}

func (m Model) playCmd(showID string) tea.Cmd {
	ctx, play := m.ctx, m.play
	return func() tea.Msg {
		out, err := play(ctx, showID)
		return playedMsg{outcome: out, err: err}
	}
}

func (m Model) stopCmd() tea.Cmd {
	ctx, stop := m.ctx, m.stopFn
	return func() tea.Msg {
		return stoppedMsg{err: stop(ctx)}
	}
}

func (m Model) focusedID() string {
	if len(m.tiles) == 0 {
		return ""
	}
	return m.tiles[m.cursor].ID
}

func (m Model) loadRecent() tea.Cmd {
	showID := m.focusedID()
	if m.recentFn == nil || showID == "" {
		return nil
	}
	ctx, fn := m.ctx, m.recentFn
	return func() tea.Msg {
		entries, err := fn(ctx, showID)
		return recentMsg{showID: showID, entries: entries, err: err}
	}
}

func (m Model) pollState() tea.Cmd {
	if m.stateFn == nil {
		return nil
	}
	return tea.Tick(statePoll, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) fetchState() tea.Cmd {
	ctx, fn := m.ctx, m.stateFn
	return func() tea.Msg {
		// An unreachable host reads as nothing playing.
		state, err := fn(ctx)
		if err != nil {
			return stateMsg{}
		}
		return stateMsg{state: state}
	}
}

func statusLine(out core.Outcome, err error) string {
	if err != nil {
		if s := apperr.GetSuggestion(err); s != "" {
			return fmt.Sprintf("%v (%s)", err, s)
		}
		return err.Error()
	}
	return "Playing " + baseName(out.Episode)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("One Tap"))
	b.WriteString(" ")
	b.WriteString(styles.Muted.Render(string(m.mode) + " mode"))
	b.WriteString("\n\n")

	if len(m.tiles) == 0 {
		b.WriteString(styles.Muted.Render("No tiles configured."))
		b.WriteString("\n")
		b.WriteString(styles.Dim.Render("Ask a caregiver to run 'onetap tiles add'."))
		b.WriteString("\n")
	} else {
		var rows []string
		for start := 0; start < len(m.tiles); start += columns {
			end := min(start+columns, len(m.tiles))
			var row []string
			for i := start; i < end; i++ {
				t := m.tiles[i]
				label := t.DisplayLabel()
				if badge := styles.ModeBadge(string(t.Mode)); badge != "" {
					label += " " + badge
				}
				row = append(row, styles.TileBox(label, i == m.cursor))
			}
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
		}
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
		b.WriteString("\n")
	}

	if m.recentFn != nil && len(m.tiles) > 0 {
		b.WriteString("\n")
		if m.recentErr != nil {
			b.WriteString(styles.Dim.Render(recentFailed))
		} else {
			b.WriteString(m.recentView.Render(m.tiles[m.cursor].DisplayLabel(), m.recent, panelWidth, recentLines, false))
		}
		b.WriteString("\n")
	}

	if m.stateFn != nil {
		b.WriteString("\n")
		b.WriteString(m.nowPlaying.Render(m.state, panelWidth))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		if m.failed {
			b.WriteString(styles.Failed.Render(m.status))
		} else {
			b.WriteString(styles.Playing.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

// Cursor returns the index of the focused tile.
func (m Model) Cursor() int {
	return m.cursor
}

// Run shows the launcher until the user quits.
func Run(ctx context.Context, shows []core.Show, mode core.Mode, play PlayFunc, opts ...Option) error {
	p := tea.NewProgram(NewModel(ctx, shows, mode, play, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
