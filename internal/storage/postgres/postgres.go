// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	"github.com/colinjianingxie/walletfreak-sub001/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

func (s *Storage) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT user_id FROM card_usage ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

func (s *Storage) ListCards(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT card_slug FROM card_usage
		WHERE user_id = $1
		ORDER BY card_slug
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cards, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan cards: %w", err)
	}
	return cards, nil
}

func (s *Storage) ReadUsage(ctx context.Context, userID, cardSlug string) (*domain.Ledger, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.db.QueryRow(ctx, `
		SELECT usage, version FROM card_usage
		WHERE user_id = $1 AND card_slug = $2
	`, userID, cardSlug).Scan(&raw, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read usage: %w", err)
	}

	entries, err := storage.DecodeUsage(raw)
	if err != nil {
		return nil, err
	}
	return &domain.Ledger{UserID: userID, CardSlug: cardSlug, Entries: entries, Version: version}, nil
}

// WriteUsage replaces the usage document if nobody changed it since it was read.
func (s *Storage) WriteUsage(ctx context.Context, ledger domain.Ledger) error {
	data, err := storage.EncodeUsage(ledger.Entries)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE card_usage
		SET usage = $3, version = version + 1, updated_at = now()
		WHERE user_id = $1 AND card_slug = $2 AND version = $4
	`, ledger.UserID, ledger.CardSlug, data, ledger.Version)
	if err != nil {
		return fmt.Errorf("write usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrVersionConflict
	}

	slog.Debug("WriteUsage completed", "user_id", ledger.UserID, "card", ledger.CardSlug, "version", ledger.Version+1)
	return nil
}

// InsertUsage creates a ledger at version 1, replacing any existing one.
func (s *Storage) InsertUsage(ctx context.Context, userID, cardSlug string, entries map[string][]byte) error {
	data, err := storage.EncodeUsage(entries)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO card_usage (user_id, card_slug, usage, version)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, card_slug) DO UPDATE SET usage = EXCLUDED.usage, version = 1, updated_at = now()
	`, userID, cardSlug, data)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}
