package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docsmill/internal/store"
)

// GetConfigValue returns nil when the name has never been set.
func (s *Store) GetConfigValue(ctx context.Context, name store.ConfigName) (*string, error) {
	return configValue(ctx, s.db, name)
}

func configValue(ctx context.Context, dbtx store.DBTransaction, name store.ConfigName) (*string, error) {
	var value string
	err := dbtx.QueryRowContext(ctx, `
		SELECT value FROM config WHERE name = $1
	`, string(name)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.StorageError{Op: "config get", Err: err}
	}
	return &value, nil
}

// SetConfigValue creates or replaces a config value. Last-writer-wins.
func (s *Store) SetConfigValue(ctx context.Context, name store.ConfigName, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (name, value)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
	`, string(name), value)
	if err != nil {
		return &store.StorageError{Op: "config set", Err: err}
	}
	return nil
}
