package components

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/onetap/internal/core"
	"github.com/tessro/onetap/internal/tui/styles"
)

// Recent displays the latest episodes played for one show.
type Recent struct {
	now func() time.Time
}

// NewRecent creates a new Recent component
func NewRecent() *Recent {
	return &Recent{now: time.Now}
}

// Render renders the recent panel. entries are oldest first, as stored.
func (r *Recent) Render(label string, entries []core.HistoryEntry, width, maxLines int, focused bool) string {
	title := styles.PanelTitle("Recently watched: "+label, focused)

	var content string
	if len(entries) == 0 {
		content = styles.Muted.Render("Nothing watched yet")
	} else {
		content = r.renderEntries(entries, width-4, maxLines)
	}

	return styles.Panel(focused).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
}

func (r *Recent) renderEntries(entries []core.HistoryEntry, width, maxLines int) string {
	lines := make([]string, 0, maxLines)

	// icon (2) + gap before the time (1)
	const overhead = 3

	for i := len(entries) - 1; i >= 0 && len(lines) < maxLines; i-- {
		entry := entries[i]

		ago := formatTimeAgo(entry.PlayedAt, r.now())
		name := truncate(filepath.Base(entry.Episode), width-overhead-len(ago))

		padding := width - overhead - len([]rune(name)) - len(ago)
		if padding < 1 {
			padding = 1
		}

		lines = append(lines, fmt.Sprintf("%s %s%s%s",
			styles.Dim.Render("✓"),
			name,
			lipgloss.NewStyle().Width(padding).Render(""),
			styles.Dim.Render(ago)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)

	if d < time.Minute {
		return "now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return t.Format("Jan 2")
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen <= 0 {
		return ""
	}
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
