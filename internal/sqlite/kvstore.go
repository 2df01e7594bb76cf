package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aquamarinepk/aqm"
	_ "modernc.org/sqlite"
)

// KVStore persists display preferences in a local SQLite file.
type KVStore struct {
	path   string
	db     *sql.DB
	logger aqm.Logger
}

func NewKVStore(path string, logger aqm.Logger) *KVStore {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &KVStore{
		path:   path,
		logger: logger,
	}
}

func (s *KVStore) Start(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("cannot open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return fmt.Errorf("cannot create preferences table: %w", err)
	}

	s.db = db
	s.logger.Infof("Opened SQLite preferences store: %s", s.path)
	return nil
}

func (s *KVStore) Stop(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("cannot close SQLite database: %w", err)
	}
	s.logger.Info("Closed SQLite preferences store")
	return nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.db == nil {
		return "", false, errors.New("sqlite store not started")
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cannot read preference %s: %w", key, err)
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if s.db == nil {
		return errors.New("sqlite store not started")
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	if err != nil {
		return fmt.Errorf("cannot write preference %s: %w", key, err)
	}
	return nil
}
