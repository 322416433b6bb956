package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"docsmill/internal/store"
)

// GetOverrides returns the sandbox overrides for a crate, or nil when none
// are stored.
func (s *Store) GetOverrides(ctx context.Context, crateName string) (*store.Overrides, error) {
	var (
		memory  sql.NullInt64
		targets sql.NullInt32
		timeout sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT max_memory_bytes, max_targets, timeout_seconds
		FROM sandbox_overrides
		WHERE crate_name = $1
	`, crateName).Scan(&memory, &targets, &timeout)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.StorageError{Op: "overrides get", Err: err}
	}

	o := overridesFromColumns(memory, targets, timeout)
	return &o, nil
}

// SetOverrides creates or replaces the sandbox overrides for a crate.
func (s *Store) SetOverrides(ctx context.Context, crateName string, o store.Overrides) error {
	var timeoutSeconds *int64
	if o.Timeout != nil {
		secs := int64(o.Timeout.Seconds())
		timeoutSeconds = &secs
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sandbox_overrides (crate_name, max_memory_bytes, max_targets, timeout_seconds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (crate_name) DO UPDATE SET
			max_memory_bytes = EXCLUDED.max_memory_bytes,
			max_targets = EXCLUDED.max_targets,
			timeout_seconds = EXCLUDED.timeout_seconds
	`, crateName, o.MaxMemoryBytes, o.MaxTargets, timeoutSeconds)
	if err != nil {
		return &store.StorageError{Op: "overrides set", Err: err}
	}
	return nil
}

// RemoveOverrides deletes a crate's overrides, reporting whether an entry
// existed.
func (s *Store) RemoveOverrides(ctx context.Context, crateName string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sandbox_overrides WHERE crate_name = $1
	`, crateName)
	if err != nil {
		return false, &store.StorageError{Op: "overrides remove", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, &store.StorageError{Op: "overrides remove", Err: err}
	}
	return affected > 0, nil
}

// ListOverrides returns all stored overrides keyed by crate name.
func (s *Store) ListOverrides(ctx context.Context) (map[string]store.Overrides, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT crate_name, max_memory_bytes, max_targets, timeout_seconds
		FROM sandbox_overrides
		ORDER BY crate_name
	`)
	if err != nil {
		return nil, &store.StorageError{Op: "overrides list", Err: err}
	}
	defer rows.Close()

	all := make(map[string]store.Overrides)
	for rows.Next() {
		var (
			name    string
			memory  sql.NullInt64
			targets sql.NullInt32
			timeout sql.NullInt64
		)
		if err := rows.Scan(&name, &memory, &targets, &timeout); err != nil {
			return nil, &store.StorageError{Op: "overrides list scan", Err: err}
		}
		all[name] = overridesFromColumns(memory, targets, timeout)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StorageError{Op: "overrides list rows", Err: err}
	}
	return all, nil
}

func overridesFromColumns(memory sql.NullInt64, targets sql.NullInt32, timeout sql.NullInt64) store.Overrides {
	var o store.Overrides
	if memory.Valid {
		o.MaxMemoryBytes = &memory.Int64
	}
	if targets.Valid {
		t := int(targets.Int32)
		o.MaxTargets = &t
	}
	if timeout.Valid {
		d := time.Duration(timeout.Int64) * time.Second
		o.Timeout = &d
	}
	return o
}
