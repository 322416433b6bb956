package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docsmill/internal/store"
)

// AddRequest inserts a pending build request. The UNIQUE (name, version)
// constraint makes the dedup check and the insert a single atomic unit:
// a concurrent duplicate add resolves to exactly one row, and the loser
// observes added=false instead of an error.
func (s *Store) AddRequest(ctx context.Context, name, version string, priority int, registry *string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO queue (name, version, priority, registry)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name, version) DO NOTHING
	`, name, version, priority, registry)
	if err != nil {
		return false, &store.StorageError{Op: "queue add", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, &store.StorageError{Op: "queue add", Err: err}
	}

	return affected > 0, nil
}

// HasPending reports whether a pending request exists for (name, version).
func (s *Store) HasPending(ctx context.Context, name, version string) (bool, error) {
	var pending bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM queue WHERE name = $1 AND version = $2)
	`, name, version).Scan(&pending)
	if err != nil {
		return false, &store.StorageError{Op: "queue pending check", Err: err}
	}
	return pending, nil
}

// ClaimNext selects the highest-urgency pending request and removes it, all
// inside one transaction. FOR UPDATE SKIP LOCKED keeps concurrent claimers
// from blocking on or double-claiming the same row, so independent instances
// of this binary can share one queue table safely.
func (s *Store) ClaimNext(ctx context.Context) (*store.BuildRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &store.StorageError{Op: "queue claim begin", Err: err}
	}
	defer tx.Rollback()

	req, err := nextRequest(ctx, tx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM queue WHERE id = $1", req.ID); err != nil {
		return nil, &store.StorageError{Op: "queue claim delete", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &store.StorageError{Op: "queue claim commit", Err: err}
	}

	return req, nil
}

// nextRequest reads the most urgent pending request without removing it.
// Run on the claim transaction, the row stays locked for the DELETE that
// follows, and concurrent claimers skip it instead of blocking.
func nextRequest(ctx context.Context, dbtx store.DBTransaction) (*store.BuildRequest, error) {
	var req store.BuildRequest
	err := dbtx.QueryRowContext(ctx, `
		SELECT id, name, version, priority, registry, inserted_at
		FROM queue
		ORDER BY priority ASC, inserted_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&req.ID, &req.Name, &req.Version, &req.Priority, &req.Registry, &req.InsertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.StorageError{Op: "queue claim select", Err: err}
	}
	return &req, nil
}

// PendingCount returns the number of pending requests.
func (s *Store) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue").Scan(&count); err != nil {
		return 0, &store.StorageError{Op: "queue count", Err: err}
	}
	return count, nil
}
