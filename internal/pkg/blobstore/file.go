package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore keeps each key as <basePath>/<key>.json.
type FileStore struct {
	basePath string
}

func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required for file storage")
	}
	// Create base directory if not exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	return &FileStore{basePath: abs}, nil
}

func (s *FileStore) path(key string) (string, error) {
	cleanKey := filepath.Clean(key)
	fullPath := filepath.Join(s.basePath, cleanKey+".json")

	// Ensure file is within basePath
	if !strings.HasPrefix(fullPath, s.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: %s", key)
	}
	return fullPath, nil
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Save writes to a temp file in the same directory and renames it over the target,
// so readers never see a partial document.
func (s *FileStore) Save(ctx context.Context, key string, value []byte) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, value, 0644); err != nil {
		// Cleanup on error
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write blob: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace blob: %w", err)
	}

	return nil
}

func (s *FileStore) Close() error {
	return nil
}
