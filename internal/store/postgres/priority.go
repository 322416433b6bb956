package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docsmill/internal/store"
)

// MatchingPriority returns the stored pattern matching name, or nil when
// none matches. When several patterns match, the longest pattern wins, with
// length ties broken lexicographically, so resolution is deterministic and
// the most specific rule applies.
func (s *Store) MatchingPriority(ctx context.Context, name string) (*store.PriorityPattern, error) {
	return matchingPriority(ctx, s.db, name)
}

func matchingPriority(ctx context.Context, dbtx store.DBTransaction, name string) (*store.PriorityPattern, error) {
	var p store.PriorityPattern
	err := dbtx.QueryRowContext(ctx, `
		SELECT pattern, priority
		FROM crate_priorities
		WHERE $1 LIKE pattern
		ORDER BY LENGTH(pattern) DESC, pattern ASC
		LIMIT 1
	`, name).Scan(&p.Pattern, &p.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.StorageError{Op: "priority match", Err: err}
	}
	return &p, nil
}

// ResolvePriority is MatchingPriority with the global default applied when
// no pattern matches.
func (s *Store) ResolvePriority(ctx context.Context, name string) (int, error) {
	p, err := matchingPriority(ctx, s.db, name)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return store.DefaultPriority, nil
	}
	return p.Priority, nil
}

// SetPriority creates or updates the priority for a pattern.
func (s *Store) SetPriority(ctx context.Context, pattern string, priority int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crate_priorities (pattern, priority)
		VALUES ($1, $2)
		ON CONFLICT (pattern) DO UPDATE SET priority = EXCLUDED.priority
	`, pattern, priority)
	if err != nil {
		return &store.StorageError{Op: "priority set", Err: err}
	}
	return nil
}

// RemovePriority deletes a pattern and returns its previous priority, or nil
// when the pattern did not exist.
func (s *Store) RemovePriority(ctx context.Context, pattern string) (*int, error) {
	var priority int
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM crate_priorities WHERE pattern = $1 RETURNING priority
	`, pattern).Scan(&priority)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.StorageError{Op: "priority remove", Err: err}
	}
	return &priority, nil
}

// ListPriorities returns all stored patterns ordered by pattern.
func (s *Store) ListPriorities(ctx context.Context) ([]store.PriorityPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern, priority FROM crate_priorities ORDER BY pattern
	`)
	if err != nil {
		return nil, &store.StorageError{Op: "priority list", Err: err}
	}
	defer rows.Close()

	var patterns []store.PriorityPattern
	for rows.Next() {
		var p store.PriorityPattern
		if err := rows.Scan(&p.Pattern, &p.Priority); err != nil {
			return nil, &store.StorageError{Op: "priority list scan", Err: err}
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StorageError{Op: "priority list rows", Err: err}
	}
	return patterns, nil
}
