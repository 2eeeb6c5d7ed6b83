// internal/storage/storage.go
package storage

//go:generate mockgen -source=storage.go -destination=mocks/mock_storage.go -package=mocks

import (
	"context"
	"errors"
	"fmt"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	"github.com/goccy/go-json"
)

var (
	ErrNotFound        = errors.New("ledger not found")
	ErrVersionConflict = errors.New("ledger was modified concurrently")
)

// LedgerStore is the per-user, per-card usage ledger contract the migrator
// depends on. WriteUsage only succeeds when the stored version still equals
// ledger.Version; otherwise it returns ErrVersionConflict.
type LedgerStore interface {
	ListUsers(ctx context.Context) ([]string, error)
	ListCards(ctx context.Context, userID string) ([]string, error)
	ReadUsage(ctx context.Context, userID, cardSlug string) (*domain.Ledger, error)
	WriteUsage(ctx context.Context, ledger domain.Ledger) error
}

// EncodeUsage renders ledger entries as a JSON object, values untouched.
func EncodeUsage(entries map[string][]byte) ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(entries))
	for k, v := range entries {
		obj[k] = json.RawMessage(v)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode usage: %w", err)
	}
	return data, nil
}

// DecodeUsage parses a JSON object of usage entries.
func DecodeUsage(data []byte) (map[string][]byte, error) {
	if len(data) == 0 {
		return map[string][]byte{}, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode usage: %w", err)
	}
	entries := make(map[string][]byte, len(obj))
	for k, v := range obj {
		entries[k] = []byte(v)
	}
	return entries, nil
}
