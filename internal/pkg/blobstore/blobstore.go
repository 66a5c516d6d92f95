package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/employee-directory/internal/pkg/database"
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("blob not found")

// Store is a key-value blob store holding one JSON document per key.
type Store interface {
	// Load returns the stored document, or ErrNotFound
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the document stored under key in a single write
	Save(ctx context.Context, key string, value []byte) error

	// Close releases the underlying resources
	Close() error
}

const (
	TypeBadger   = "badger"
	TypeFile     = "file"
	TypePostgres = "postgres"
	TypeMemory   = "memory"
)

type Options struct {
	Type        string
	Path        string
	DatabaseURL string
	Logger      *slog.Logger
}

// Open builds the store selected by opts.Type.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case TypeBadger:
		cfg := DefaultBadgerConfig()
		cfg.Path = opts.Path
		cfg.Logger = opts.Logger
		return NewBadgerStore(cfg)
	case TypeFile:
		return NewFileStore(opts.Path)
	case TypePostgres:
		db, err := database.NewPostgreSQLDB(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return NewPostgresStore(ctx, db)
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", opts.Type)
	}
}
