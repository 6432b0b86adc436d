package history

import (
	"context"
	"sync"

	"github.com/tessro/onetap/internal/core"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	shows map[string][]core.HistoryEntry
	opts  options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		shows: make(map[string][]core.HistoryEntry),
		opts:  buildOptions(opts),
	}
}

func (s *MemoryStore) Get(ctx context.Context, showID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return episodesOf(s.shows[showID]), nil
}

func (s *MemoryStore) Entries(ctx context.Context, showID string) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.HistoryEntry(nil), s.shows[showID]...), nil
}

func (s *MemoryStore) Append(ctx context.Context, showID, episode string, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append(s.shows[showID], core.HistoryEntry{
		ShowID:   showID,
		Episode:  episode,
		PlayedAt: s.opts.now().UTC(),
	})
	s.shows[showID] = trim(entries, max)
	return nil
}

func (s *MemoryStore) RemoveLast(ctx context.Context, showID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.shows[showID]
	if len(entries) == 0 {
		return nil
	}
	s.shows[showID] = entries[:len(entries)-1]
	return nil
}

func (s *MemoryStore) Purge(ctx context.Context, showID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if showID == "" {
		s.shows = make(map[string][]core.HistoryEntry)
		return nil
	}
	delete(s.shows, showID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ core.HistoryStore = (*MemoryStore)(nil)

// ShowIDs returns every show that has history, sorted.
func (s *MemoryStore) ShowIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.shows), nil
}
