package core

import (
	"context"
	"time"
)

// DefaultMaxHistory is the number of entries retained per show.
const DefaultMaxHistory = 50

// HistoryEntry records one confirmed playback start.
type HistoryEntry struct {
	ShowID   string    `json:"show_id"`
	Episode  string    `json:"episode"`
	PlayedAt time.Time `json:"played_at"`
}

// HistoryStore is the per-show append log of played episodes.
//
// Append (including its trim to max) and RemoveLast must each be atomic:
// the direct-play path and the auto-advance path call them without
// coordinating with each other.
type HistoryStore interface {
	// Get returns the episode identifiers for a show, oldest first.
	Get(ctx context.Context, showID string) ([]string, error)

	// Entries returns the full entries for a show, oldest first.
	Entries(ctx context.Context, showID string) ([]HistoryEntry, error)

	// Append records episode and keeps only the newest max entries.
	Append(ctx context.Context, showID, episode string, max int) error

	// RemoveLast drops the newest entry for a show. No-op on empty history.
	RemoveLast(ctx context.Context, showID string) error

	// Purge deletes history for one show, or for every show if showID is empty.
	Purge(ctx context.Context, showID string) error

	// Close releases any resources held by the store.
	Close() error
}
