// Package credentials keeps generation backend API keys in the database so
// workers launched without the key in their environment can still run.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"genvid/internal/infra"
	"genvid/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// APIKey returns the stored key for provider, or "" when none is stored.
func (s *Store) APIKey(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderKey, provider)
	var key string
	if err := row.Scan(&key); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("load %s api key: %w", provider, err)
	}
	return strings.TrimSpace(key), nil
}

// Resolve prefers configured over the stored key.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if k := strings.TrimSpace(configured); k != "" {
		return k, nil
	}
	return s.APIKey(ctx, provider)
}

func (s *Store) SetAPIKey(ctx context.Context, provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is required")
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderKey, provider, key); err != nil {
		return fmt.Errorf("store %s api key: %w", provider, err)
	}
	return nil
}
