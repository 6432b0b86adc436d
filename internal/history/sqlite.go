package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// SQLiteStore keeps history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: sqlite history path is empty", apperr.ErrHistoryStore)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db dir: %v", apperr.ErrHistoryStore, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", apperr.ErrHistoryStore, err)
	}
	// One connection serialises writers so append+trim never interleave.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, opts: buildOptions(opts)}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", apperr.ErrHistoryStore, err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		show_id   TEXT NOT NULL,
		episode   TEXT NOT NULL,
		played_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_show ON history(show_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, showID string) ([]string, error) {
	entries, err := s.Entries(ctx, showID)
	if err != nil {
		return nil, err
	}
	return episodesOf(entries), nil
}

func (s *SQLiteStore) Entries(ctx context.Context, showID string) ([]core.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT episode, played_at FROM history WHERE show_id = ? ORDER BY id`, showID)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", apperr.ErrHistoryStore, err)
	}
	defer rows.Close()

	var entries []core.HistoryEntry
	for rows.Next() {
		var episode, playedAt string
		if err := rows.Scan(&episode, &playedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", apperr.ErrHistoryStore, err)
		}
		t, _ := time.Parse(time.RFC3339Nano, playedAt)
		entries = append(entries, core.HistoryEntry{ShowID: showID, Episode: episode, PlayedAt: t})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", apperr.ErrHistoryStore, err)
	}
	return entries, nil
}

func (s *SQLiteStore) Append(ctx context.Context, showID, episode string, max int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", apperr.ErrHistoryStore, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (show_id, episode, played_at) VALUES (?, ?, ?)`,
		showID, episode, s.opts.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("%w: insert: %v", apperr.ErrHistoryStore, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history
		 WHERE show_id = ?
		   AND id NOT IN (
		     SELECT id FROM history WHERE show_id = ? ORDER BY id DESC LIMIT ?
		   )`, showID, showID, limit(max)); err != nil {
		return fmt.Errorf("%w: trim: %v", apperr.ErrHistoryStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperr.ErrHistoryStore, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveLast(ctx context.Context, showID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE id = (SELECT MAX(id) FROM history WHERE show_id = ?)`, showID)
	if err != nil {
		return fmt.Errorf("%w: remove last: %v", apperr.ErrHistoryStore, err)
	}
	return nil
}

func (s *SQLiteStore) Purge(ctx context.Context, showID string) error {
	var err error
	if showID == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM history`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM history WHERE show_id = ?`, showID)
	}
	if err != nil {
		return fmt.Errorf("%w: purge: %v", apperr.ErrHistoryStore, err)
	}
	return nil
}

// ShowIDs returns every show that has history, sorted.
func (s *SQLiteStore) ShowIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT show_id FROM history ORDER BY show_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", apperr.ErrHistoryStore, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", apperr.ErrHistoryStore, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ core.HistoryStore = (*SQLiteStore)(nil)
