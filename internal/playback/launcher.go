package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	"github.com/tessro/onetap/internal/history"
	xlog "github.com/tessro/onetap/internal/log"
	"github.com/tessro/onetap/internal/metrics"
	"github.com/tessro/onetap/internal/selector"
)

// Settings is the part of the configuration a Launcher needs.
type Settings struct {
	Shows  []core.Show
	Mode   core.Mode
	Random core.RandomOptions
}

// Show returns the tile with the given ID.
func (s Settings) Show(showID string) (core.Show, error) {
	for _, sh := range s.Shows {
		if sh.ID == showID {
			return sh, nil
		}
	}
	return core.Show{}, fmt.Errorf("%w: %q", apperr.ErrShowNotFound, showID)
}

// Launcher is the single entry point that turns a tile tap into playback.
type Launcher struct {
	lister   core.EpisodeLister
	selector *selector.Selector
	history  *history.Tolerant
	session  *Session
	logger   zerolog.Logger

	mu       sync.RWMutex
	settings Settings
}

// NewLauncher wires a launcher. A nil selector uses the default one.
func NewLauncher(settings Settings, lister core.EpisodeLister, sel *selector.Selector, h *history.Tolerant, session *Session) *Launcher {
	if sel == nil {
		sel = selector.New()
	}
	return &Launcher{
		lister:   lister,
		selector: sel,
		history:  h,
		session:  session,
		logger:   xlog.WithComponent("launcher"),
		settings: settings,
	}
}

// Settings returns the current settings.
func (l *Launcher) Settings() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settings
}

// SetSettings replaces the settings, e.g. after a config reload.
func (l *Launcher) SetSettings(s Settings) {
	l.mu.Lock()
	l.settings = s
	l.mu.Unlock()
}

// History returns the history the launcher reads and writes.
func (l *Launcher) History() *history.Tolerant {
	return l.history
}

// Lister returns the episode lister.
func (l *Launcher) Lister() core.EpisodeLister {
	return l.lister
}

// Session returns the session that runs attempts.
func (l *Launcher) Session() *Session {
	return l.session
}

// Selector returns the selector used for candidate generation.
func (l *Launcher) Selector() *selector.Selector {
	return l.selector
}

// Candidates lists the show's episodes and orders them for playback without
// playing anything.
func (l *Launcher) Candidates(ctx context.Context, showID string) ([]string, error) {
	settings := l.Settings()
	show, err := settings.Show(showID)
	if err != nil {
		return nil, err
	}

	episodes, err := l.lister.ListEpisodes(show.Path)
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 {
		return nil, fmt.Errorf("%s: %w", show.Path, apperr.ErrEmptyDirectory)
	}

	played := l.history.Get(ctx, showID)
	mode := show.EffectiveMode(settings.Mode)
	candidates, err := l.selector.EpisodeCandidates(showID, episodes, played, mode, settings.Random)
	if err != nil {
		return nil, err
	}
	metrics.ObserveCandidates(len(candidates))

	l.logger.Debug().
		Str("show_id", showID).
		Str("mode", string(mode)).
		Int("episodes", len(episodes)).
		Int("history", len(played)).
		Msg("candidates generated")
	return candidates, nil
}

// Play generates candidates for showID and runs a playback session over them.
// Configuration errors are returned before any attempt is made.
func (l *Launcher) Play(ctx context.Context, showID string) (core.Outcome, error) {
	candidates, err := l.Candidates(ctx, showID)
	if err != nil {
		return core.Outcome{ShowID: showID}, err
	}
	return l.session.Run(ctx, showID, candidates)
}
