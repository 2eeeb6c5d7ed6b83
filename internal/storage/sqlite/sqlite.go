// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	"github.com/colinjianingxie/walletfreak-sub001/internal/storage"
	_ "github.com/mattn/go-sqlite3"
)

// Storage keeps usage ledgers in a local SQLite file.
type Storage struct {
	db *sql.DB
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite: db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Storage{db: db}, nil
}

func createSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS card_usage (
	user_id    TEXT NOT NULL,
	card_slug  TEXT NOT NULL,
	usage      TEXT NOT NULL DEFAULT '{}',
	version    INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, card_slug)
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) ListUsers(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT user_id FROM card_usage ORDER BY user_id`)
}

func (s *Storage) ListCards(ctx context.Context, userID string) ([]string, error) {
	return s.queryStrings(ctx, `SELECT card_slug FROM card_usage WHERE user_id = ? ORDER BY card_slug`, userID)
}

func (s *Storage) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Storage) ReadUsage(ctx context.Context, userID, cardSlug string) (*domain.Ledger, error) {
	var (
		raw     string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT usage, version FROM card_usage WHERE user_id = ? AND card_slug = ?`,
		userID, cardSlug).Scan(&raw, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read usage: %w", err)
	}

	entries, err := storage.DecodeUsage([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &domain.Ledger{UserID: userID, CardSlug: cardSlug, Entries: entries, Version: version}, nil
}

func (s *Storage) WriteUsage(ctx context.Context, ledger domain.Ledger) error {
	data, err := storage.EncodeUsage(ledger.Entries)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE card_usage
SET usage = ?, version = version + 1, updated_at = ?
WHERE user_id = ? AND card_slug = ? AND version = ?`,
		string(data), time.Now().UTC(), ledger.UserID, ledger.CardSlug, ledger.Version)
	if err != nil {
		return fmt.Errorf("write usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write usage: %w", err)
	}
	if n == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}

// InsertUsage creates a ledger at version 1, replacing any existing one.
func (s *Storage) InsertUsage(ctx context.Context, userID, cardSlug string, entries map[string][]byte) error {
	data, err := storage.EncodeUsage(entries)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO card_usage (user_id, card_slug, usage, version, updated_at)
VALUES (?, ?, ?, 1, ?)`,
		userID, cardSlug, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}
