package history

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessro/onetap/internal/core"
)

type storeFactory func(t *testing.T, opts ...Option) core.HistoryStore

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		BackendMemory: func(t *testing.T, opts ...Option) core.HistoryStore {
			return NewMemoryStore(opts...)
		},
		BackendJSON: func(t *testing.T, opts ...Option) core.HistoryStore {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "history.json"), opts...)
			require.NoError(t, err)
			return s
		},
		BackendSQLite: func(t *testing.T, opts ...Option) core.HistoryStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), opts...)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, newStore storeFactory)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory)
		})
	}
}

func TestAppendKeepsNewestEntries(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t)

		for i := 0; i < 60; i++ {
			require.NoError(t, s.Append(ctx, "show", fmt.Sprintf("ep%d", i), 50))
		}

		got, err := s.Get(ctx, "show")
		require.NoError(t, err)
		require.Len(t, got, 50)
		assert.Equal(t, "ep10", got[0])
		assert.Equal(t, "ep59", got[49])
		for i, ep := range got {
			assert.Equal(t, fmt.Sprintf("ep%d", i+10), ep)
		}
	})
}

func TestAppendDefaultMax(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t)

		for i := 0; i < core.DefaultMaxHistory+5; i++ {
			require.NoError(t, s.Append(ctx, "show", fmt.Sprintf("ep%d", i), 0))
		}

		got, err := s.Get(ctx, "show")
		require.NoError(t, err)
		assert.Len(t, got, core.DefaultMaxHistory)
	})
}

func TestShowsAreIsolated(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Append(ctx, "a", "a1", 2))
		require.NoError(t, s.Append(ctx, "b", "b1", 2))
		require.NoError(t, s.Append(ctx, "a", "a2", 2))
		require.NoError(t, s.Append(ctx, "a", "a3", 2))

		a, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"a2", "a3"}, a)

		b, err := s.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, []string{"b1"}, b)

		none, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestRemoveLast(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.RemoveLast(ctx, "show"), "remove on empty history")

		require.NoError(t, s.Append(ctx, "show", "A", 50))
		require.NoError(t, s.Append(ctx, "other", "X", 50))
		require.NoError(t, s.Append(ctx, "show", "B", 50))
		require.NoError(t, s.RemoveLast(ctx, "show"))

		got, err := s.Get(ctx, "show")
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, got)

		other, err := s.Get(ctx, "other")
		require.NoError(t, err)
		assert.Equal(t, []string{"X"}, other)

		require.NoError(t, s.RemoveLast(ctx, "show"))
		got, err = s.Get(ctx, "show")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPurge(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Append(ctx, "a", "a1", 50))
		require.NoError(t, s.Append(ctx, "b", "b1", 50))

		require.NoError(t, s.Purge(ctx, "a"))
		a, _ := s.Get(ctx, "a")
		b, _ := s.Get(ctx, "b")
		assert.Empty(t, a)
		assert.Equal(t, []string{"b1"}, b)

		require.NoError(t, s.Purge(ctx, ""))
		b, _ = s.Get(ctx, "b")
		assert.Empty(t, b)

		ids, err := s.(ShowLister).ShowIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestEntriesCarryTimestamps(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		now := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
		s := newStore(t, WithClock(func() time.Time { return now }))

		require.NoError(t, s.Append(ctx, "show", "A", 50))

		entries, err := s.Entries(ctx, "show")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "show", entries[0].ShowID)
		assert.Equal(t, "A", entries[0].Episode)
		assert.True(t, entries[0].PlayedAt.Equal(now), "PlayedAt = %v, want %v", entries[0].PlayedAt, now)
	})
}

func TestShowIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Append(ctx, "b", "b1", 50))
		require.NoError(t, s.Append(ctx, "a", "a1", 50))

		ids, err := s.(ShowLister).ShowIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})
}

func TestConcurrentAppendsAreAtomic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore storeFactory) {
		ctx := context.Background()
		s := newStore(t)

		const writers, perWriter, max = 4, 10, 25
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					assert.NoError(t, s.Append(ctx, "show", fmt.Sprintf("w%d-%d", w, i), max))
				}
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, "show")
		require.NoError(t, err)
		assert.Len(t, got, max)

		seen := make(map[string]bool)
		for _, ep := range got {
			assert.False(t, seen[ep], "duplicate entry %s", ep)
			seen[ep] = true
		}
	})
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	s1, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Append(ctx, "show", "A", 50))
	require.NoError(t, s1.Append(ctx, "show", "B", 50))

	s2, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := s2.Get(ctx, "show")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)
	assert.Equal(t, path, s2.Path())
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s1, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Append(ctx, "show", "A", 50))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "show")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(BackendJSON, filepath.Join(dir, "h.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("SQLite", filepath.Join(dir, "h.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", "")
	assert.Error(t, err)
}
