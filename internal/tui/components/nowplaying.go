package components

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/onetap/internal/core"
	"github.com/tessro/onetap/internal/tui/styles"
)

// NowPlaying displays what the playback host is showing.
type NowPlaying struct{}

// NewNowPlaying creates a new NowPlaying component
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

// Render renders the now playing panel
func (n *NowPlaying) Render(state *core.PlaybackState, width int) string {
	title := styles.PanelTitle("Now Playing", false)

	var content string
	if !state.HasItem() {
		content = styles.Muted.Render("Nothing playing")
	} else {
		content = n.renderState(state, width-4)
	}

	return styles.Panel(false).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
}

func (n *NowPlaying) renderState(state *core.PlaybackState, width int) string {
	icon := styles.StatusIcon(state.IsPlaying)
	name := truncate(filepath.Base(state.File), width-2)

	// times on either side of the bar
	barWidth := width - 14
	if barWidth < 10 {
		barWidth = 10
	}
	progress := fmt.Sprintf("%s %s %s",
		formatDuration(state.Progress),
		styles.ProgressBar(state.ProgressPercent(), barWidth),
		formatDuration(state.Duration))

	return lipgloss.JoinVertical(lipgloss.Left,
		icon+" "+styles.Title.Render(name),
		"",
		progress,
	)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
