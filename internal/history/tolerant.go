package history

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tessro/onetap/internal/core"
	xlog "github.com/tessro/onetap/internal/log"
	"github.com/tessro/onetap/internal/metrics"
)

// Tolerant wraps a store so that persistence failures never stop playback:
// reads degrade to empty history and writes are logged and dropped.
type Tolerant struct {
	store  core.HistoryStore
	logger zerolog.Logger
}

// NewTolerant wraps store.
func NewTolerant(store core.HistoryStore, logger zerolog.Logger) *Tolerant {
	return &Tolerant{store: store, logger: logger}
}

// Store returns the wrapped store.
func (t *Tolerant) Store() core.HistoryStore {
	return t.store
}

// Get returns the show's history, or nil if the store failed.
func (t *Tolerant) Get(ctx context.Context, showID string) []string {
	eps, err := t.store.Get(ctx, showID)
	if err != nil {
		l := xlog.FromContext(ctx, t.logger)
		l.Warn().Err(err).Str("show_id", showID).Msg("history read failed, using empty history")
		return nil
	}
	return eps
}

// Append records a play. It reports whether the write succeeded.
func (t *Tolerant) Append(ctx context.Context, showID, episode string, max int) bool {
	err := t.store.Append(ctx, showID, episode, max)
	metrics.RecordHistoryWrite("append", err == nil)
	if err != nil {
		l := xlog.FromContext(ctx, t.logger)
		l.Error().Err(err).Str("show_id", showID).Str("episode", episode).Msg("history append failed")
		return false
	}
	return true
}

// RemoveLast drops the newest entry. It reports whether the write succeeded.
func (t *Tolerant) RemoveLast(ctx context.Context, showID string) bool {
	err := t.store.RemoveLast(ctx, showID)
	metrics.RecordHistoryWrite("remove_last", err == nil)
	if err != nil {
		l := xlog.FromContext(ctx, t.logger)
		l.Error().Err(err).Str("show_id", showID).Msg("history remove-last failed")
		return false
	}
	return true
}
