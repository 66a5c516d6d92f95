package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig holds configuration for the embedded BadgerDB store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger

	// GCDiscardRatio is the minimum discardable fraction of a value log file before
	// RunGC rewrites it.
	GCDiscardRatio float64
}

func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites:     true,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:       true,
		GCDiscardRatio: 0.5,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type BadgerStore struct {
	db             *badger.DB
	gcDiscardRatio float64
}

func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent badger storage")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	ratio := cfg.GCDiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}

	return &BadgerStore{db: db, gcDiscardRatio: ratio}, nil
}

func (s *BadgerStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return value, nil
}

func (s *BadgerStore) Save(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	return nil
}

// RunGC rewrites value log files until there is nothing left to reclaim.
func (s *BadgerStore) RunGC(ctx context.Context) error {
	start := time.Now()
	rewrites := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(s.gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) || errors.Is(err, badger.ErrGCInMemoryMode) {
			break
		}
		if err != nil {
			return fmt.Errorf("value log gc: %w", err)
		}
		rewrites++
	}
	slog.Debug("Badger value log GC finished", "rewrites", rewrites, "duration", time.Since(start))
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
