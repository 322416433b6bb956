// Package store contains the database layer for docsmill.
package store

import "time"

// DefaultPriority is the build priority used when no explicit priority is
// given and no crate priority pattern matches. Lower values dequeue first;
// newly published releases are fast-tracked with priority 0.
const DefaultPriority = 5

// BuildRequest is one pending unit of work: build the documentation for a
// single (crate, version) pair. At most one pending request may exist per
// pair; the queue enforces this at insert time.
type BuildRequest struct {
	ID         int64
	Name       string
	Version    string
	Priority   int
	Registry   *string // alternate registry URL, nil for the default upstream
	InsertedAt time.Time
}

// PriorityPattern maps a SQL LIKE pattern over crate names to a default
// build priority.
type PriorityPattern struct {
	Pattern  string
	Priority int
}

// Overrides are per-crate sandbox resource overrides consulted by the build
// executor. Nil fields mean "use the sandbox default".
type Overrides struct {
	MaxMemoryBytes *int64
	MaxTargets     *int
	Timeout        *time.Duration
}

// Release is one published (crate, version) known to the catalog.
type Release struct {
	Name        string
	Version     string
	ReleaseTime time.Time
	Yanked      bool
}

// ConfigName identifies a value in the persistent config table.
type ConfigName string

const (
	// ConfigQueueLocked gates the queue's dequeue operation. Add is
	// unaffected; in-flight builds are unaffected.
	ConfigQueueLocked ConfigName = "queue_locked"

	// ConfigLastSeenReference is the registry watcher's resume point: the
	// last upstream index state whose changes have all been enqueued.
	ConfigLastSeenReference ConfigName = "last_seen_index_reference"

	// ConfigToolchain is the toolchain name the build executor should use.
	ConfigToolchain ConfigName = "toolchain"
)
