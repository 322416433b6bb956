package postgres

import (
	"context"

	"docsmill/internal/store"
)

// ForEachRelease streams catalog releases with a known release time, most
// recent first, so audits check fresh high-traffic releases before the long
// tail. Iteration stops at the first error returned by fn.
func (s *Store) ForEachRelease(ctx context.Context, fn func(store.Release) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, version, release_time, yanked
		FROM releases
		WHERE release_time IS NOT NULL
		ORDER BY release_time DESC
	`)
	if err != nil {
		return &store.StorageError{Op: "releases query", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var rel store.Release
		if err := rows.Scan(&rel.Name, &rel.Version, &rel.ReleaseTime, &rel.Yanked); err != nil {
			return &store.StorageError{Op: "releases scan", Err: err}
		}
		if err := fn(rel); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &store.StorageError{Op: "releases rows", Err: err}
	}
	return nil
}

// SetYanked flips the yanked flag on a release. Missing rows are a no-op:
// the watcher can observe a yank for a release that was never built.
func (s *Store) SetYanked(ctx context.Context, name, version string, yanked bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE releases SET yanked = $3 WHERE name = $1 AND version = $2
	`, name, version, yanked)
	if err != nil {
		return &store.StorageError{Op: "release yank", Err: err}
	}
	return nil
}

// DeleteRelease removes a release row, reporting whether one existed.
func (s *Store) DeleteRelease(ctx context.Context, name, version string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM releases WHERE name = $1 AND version = $2
	`, name, version)
	if err != nil {
		return false, &store.StorageError{Op: "release delete", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, &store.StorageError{Op: "release delete", Err: err}
	}
	return affected > 0, nil
}
