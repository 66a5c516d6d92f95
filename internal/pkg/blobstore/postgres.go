package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/employee-directory/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps blobs in a single key/value table.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(ctx context.Context, db *database.DB) (*PostgresStore, error) {
	query := `
		CREATE TABLE IF NOT EXISTS blobs (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := db.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value::text FROM blobs WHERE key = $1`

	var value string
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO blobs (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
