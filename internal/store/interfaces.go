package store

import (
	"context"
	"database/sql"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// Row-read helpers take it so the same query runs against the pool or
// inside an open claim transaction.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// QueueStore is the persistent pending-build set. Implementations must make
// each operation atomic against the backing store: the dedup check and the
// insert, and the dequeue selection and removal, are single units even when
// multiple processes share one database.
type QueueStore interface {
	// AddRequest inserts a pending request with the given final priority.
	// Returns false (and no error) when a pending request for the same
	// (name, version) already exists.
	AddRequest(ctx context.Context, name, version string, priority int, registry *string) (bool, error)

	// HasPending reports whether a pending request exists for (name, version).
	HasPending(ctx context.Context, name, version string) (bool, error)

	// ClaimNext atomically removes and returns the pending request with the
	// lowest priority value, ties broken by earliest insertion. Returns nil
	// when the queue is empty. No two concurrent claims observe the same
	// request.
	ClaimNext(ctx context.Context) (*BuildRequest, error)

	// PendingCount returns the number of pending requests.
	PendingCount(ctx context.Context) (int64, error)
}

// PriorityStore maps LIKE patterns over crate names to default priorities.
type PriorityStore interface {
	// MatchingPriority returns the pattern that matches name, or nil when no
	// pattern matches. When several patterns match, the longest pattern wins
	// (ties on length broken by lexicographic order) so the most specific
	// rule applies deterministically.
	MatchingPriority(ctx context.Context, name string) (*PriorityPattern, error)

	// ResolvePriority is MatchingPriority with DefaultPriority applied when
	// nothing matches.
	ResolvePriority(ctx context.Context, name string) (int, error)

	SetPriority(ctx context.Context, pattern string, priority int) error

	// RemovePriority deletes a pattern and returns its previous priority,
	// or nil when the pattern did not exist.
	RemovePriority(ctx context.Context, pattern string) (*int, error)

	ListPriorities(ctx context.Context) ([]PriorityPattern, error)
}

// ConfigStore is a persisted key/value table for small process-wide state:
// the queue lock, the watcher's resume reference, the toolchain name.
// Last-writer-wins.
type ConfigStore interface {
	// GetConfigValue returns nil when the name has never been set.
	GetConfigValue(ctx context.Context, name ConfigName) (*string, error)
	SetConfigValue(ctx context.Context, name ConfigName, value string) error
}

// OverridesStore persists per-crate sandbox resource overrides.
type OverridesStore interface {
	// GetOverrides returns nil when no overrides are stored for the crate.
	GetOverrides(ctx context.Context, crateName string) (*Overrides, error)
	SetOverrides(ctx context.Context, crateName string, o Overrides) error
	// RemoveOverrides reports whether an entry existed.
	RemoveOverrides(ctx context.Context, crateName string) (bool, error)
	ListOverrides(ctx context.Context) (map[string]Overrides, error)
}

// ReleaseStore reads and corrects the catalog's view of published releases.
type ReleaseStore interface {
	// ForEachRelease streams releases with a known release time, most recent
	// first, stopping at the first error returned by fn.
	ForEachRelease(ctx context.Context, fn func(Release) error) error

	SetYanked(ctx context.Context, name, version string, yanked bool) error

	// DeleteRelease reports whether a row was removed.
	DeleteRelease(ctx context.Context, name, version string) (bool, error)
}
