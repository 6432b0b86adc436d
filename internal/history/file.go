package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Version int                            `json:"version"`
	Shows   map[string][]core.HistoryEntry `json:"shows"`
}

const fileVersion = 1

// FileStore keeps history in a single JSON document. Every mutation is a
// read-modify-write under one lock, committed with an atomic rename.
type FileStore struct {
	mu   sync.Mutex
	path string
	opts options
}

// NewFileStore creates a JSON-backed store at path. The file is created on
// first write.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: json history path is empty", apperr.ErrHistoryStore)
	}
	return &FileStore{path: path, opts: buildOptions(opts)}, nil
}

// Path returns the path to the history file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (*fileDocument, error) {
	doc := &fileDocument{Version: fileVersion, Shows: make(map[string][]core.HistoryEntry)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrHistoryStore, s.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", apperr.ErrHistoryStore, s.path, err)
	}
	if doc.Shows == nil {
		doc.Shows = make(map[string][]core.HistoryEntry)
	}
	return doc, nil
}

func (s *FileStore) save(doc *fileDocument) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("%w: mkdir: %v", apperr.ErrHistoryStore, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", apperr.ErrHistoryStore, err)
	}

	pendingFile, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("%w: create pending file: %v", apperr.ErrHistoryStore, err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("%w: write: %v", apperr.ErrHistoryStore, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: replace %s: %v", apperr.ErrHistoryStore, s.path, err)
	}
	return nil
}

// update runs fn on the current document and persists the result.
func (s *FileStore) update(fn func(doc *fileDocument)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	fn(doc)
	return s.save(doc)
}

func (s *FileStore) Get(ctx context.Context, showID string) ([]string, error) {
	entries, err := s.Entries(ctx, showID)
	if err != nil {
		return nil, err
	}
	return episodesOf(entries), nil
}

func (s *FileStore) Entries(ctx context.Context, showID string) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Shows[showID], nil
}

func (s *FileStore) Append(ctx context.Context, showID, episode string, max int) error {
	return s.update(func(doc *fileDocument) {
		entries := append(doc.Shows[showID], core.HistoryEntry{
			ShowID:   showID,
			Episode:  episode,
			PlayedAt: s.opts.now().UTC(),
		})
		doc.Shows[showID] = trim(entries, max)
	})
}

func (s *FileStore) RemoveLast(ctx context.Context, showID string) error {
	return s.update(func(doc *fileDocument) {
		entries := doc.Shows[showID]
		switch len(entries) {
		case 0:
		case 1:
			delete(doc.Shows, showID)
		default:
			doc.Shows[showID] = entries[:len(entries)-1]
		}
	})
}

func (s *FileStore) Purge(ctx context.Context, showID string) error {
	return s.update(func(doc *fileDocument) {
		if showID == "" {
			doc.Shows = make(map[string][]core.HistoryEntry)
			return
		}
		delete(doc.Shows, showID)
	})
}

// Close is a no-op; the file is not held open between calls.
func (s *FileStore) Close() error { return nil }

var _ core.HistoryStore = (*FileStore)(nil)

// ShowIDs returns every show that has history, sorted.
func (s *FileStore) ShowIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc.Shows), nil
}
