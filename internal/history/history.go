// Package history implements the per-show playback history stores.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tessro/onetap/internal/core"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the timestamp source for new entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns the store for backend at path.
func Open(backend, path string, opts ...Option) (core.HistoryStore, error) {
	switch strings.ToLower(backend) {
	case BackendSQLite, "":
		return NewSQLiteStore(path, opts...)
	case BackendJSON:
		return NewFileStore(path, opts...)
	case BackendMemory:
		return NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("unknown history backend: %q (must be sqlite, json, or memory)", backend)
	}
}

func limit(max int) int {
	if max <= 0 {
		return core.DefaultMaxHistory
	}
	return max
}

// trim keeps the newest max entries of entries.
func trim(entries []core.HistoryEntry, max int) []core.HistoryEntry {
	max = limit(max)
	if len(entries) <= max {
		return entries
	}
	return append([]core.HistoryEntry(nil), entries[len(entries)-max:]...)
}

func episodesOf(entries []core.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Episode
	}
	return out
}

// ShowLister is implemented by stores that can enumerate their shows.
type ShowLister interface {
	ShowIDs(ctx context.Context) ([]string, error)
}

func sortedKeys(m map[string][]core.HistoryEntry) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
