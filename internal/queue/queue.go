// Package queue implements the priority build queue: deduplicated adds,
// priority/FIFO dequeue, the process-wide queue lock, and the registry
// watcher's resume reference.
package queue

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"docsmill/internal/store"

	"go.opentelemetry.io/otel/metric"
)

// Outcome reports what an Add actually did. A duplicate add is a normal
// outcome, not an error: the dedup invariant guarantees at most one pending
// request per (name, version).
type Outcome int

const (
	// OutcomeQueued means a new pending request was created.
	OutcomeQueued Outcome = iota
	// OutcomeAlreadyQueued means a pending request for the same
	// (name, version) already existed and nothing was inserted.
	OutcomeAlreadyQueued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeQueued:
		return "queued"
	case OutcomeAlreadyQueued:
		return "already queued"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Store is the persistence the build queue needs: the pending set, the
// priority patterns, and the config table holding the lock flag and the
// watcher's resume reference.
type Store interface {
	store.QueueStore
	store.PriorityStore
	store.ConfigStore
}

// BuildQueue is the single producer-consumer coordination point. All
// cross-process safety lives in the backing store's transactions; BuildQueue
// itself holds no mutable state and is safe for concurrent use.
type BuildQueue struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

// Metrics are the queue's otel counters. A nil *Metrics is valid and
// records nothing, which keeps tests and short-lived CLI invocations free of
// meter setup.
type Metrics struct {
	queued       metric.Int64Counter
	deduplicated metric.Int64Counter
	dequeued     metric.Int64Counter
}

// NewMetrics registers the queue's counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	queued, err := meter.Int64Counter("docsmill.queue.builds_queued")
	if err != nil {
		return nil, fmt.Errorf("failed to create builds_queued counter: %w", err)
	}
	deduplicated, err := meter.Int64Counter("docsmill.queue.builds_deduplicated")
	if err != nil {
		return nil, fmt.Errorf("failed to create builds_deduplicated counter: %w", err)
	}
	dequeued, err := meter.Int64Counter("docsmill.queue.builds_dequeued")
	if err != nil {
		return nil, fmt.Errorf("failed to create builds_dequeued counter: %w", err)
	}
	return &Metrics{queued: queued, deduplicated: deduplicated, dequeued: dequeued}, nil
}

func (m *Metrics) recordQueued(ctx context.Context) {
	if m != nil {
		m.queued.Add(ctx, 1)
	}
}

func (m *Metrics) recordDeduplicated(ctx context.Context) {
	if m != nil {
		m.deduplicated.Add(ctx, 1)
	}
}

func (m *Metrics) recordDequeued(ctx context.Context) {
	if m != nil {
		m.dequeued.Add(ctx, 1)
	}
}

// New creates a BuildQueue. metrics may be nil.
func New(s Store, logger *slog.Logger, metrics *Metrics) *BuildQueue {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BuildQueue{store: s, logger: logger, metrics: metrics}
}

// Add enqueues a build request for (name, version). When priority is nil the
// effective priority is resolved against the stored priority patterns, with
// the global default applied when nothing matches. registry names an
// alternate package source, nil for the default upstream.
func (q *BuildQueue) Add(ctx context.Context, name, version string, priority *int, registry *string) (Outcome, error) {
	var effective int
	if priority != nil {
		effective = *priority
	} else {
		resolved, err := q.store.ResolvePriority(ctx, name)
		if err != nil {
			return 0, err
		}
		effective = resolved
	}

	added, err := q.store.AddRequest(ctx, name, version, effective, registry)
	if err != nil {
		return 0, err
	}
	if !added {
		q.metrics.recordDeduplicated(ctx)
		q.logger.Debug("build already queued", "crate", name, "version", version)
		return OutcomeAlreadyQueued, nil
	}

	q.metrics.recordQueued(ctx)
	q.logger.Info("build queued", "crate", name, "version", version, "priority", effective)
	return OutcomeQueued, nil
}

// HasPending reports whether a pending request exists for (name, version).
// Callers scheduling rebuilds use it to avoid redundant adds; the dedup
// invariant would absorb them anyway.
func (q *BuildQueue) HasPending(ctx context.Context, name, version string) (bool, error) {
	return q.store.HasPending(ctx, name, version)
}

// DequeueNext removes and returns the most urgent pending request: lowest
// priority value first, FIFO among equal priorities. Returns nil without
// touching the pending set when the queue is locked or empty.
func (q *BuildQueue) DequeueNext(ctx context.Context) (*store.BuildRequest, error) {
	locked, err := q.IsLocked(ctx)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, nil
	}

	req, err := q.store.ClaimNext(ctx)
	if err != nil {
		return nil, err
	}
	if req != nil {
		q.metrics.recordDequeued(ctx)
	}
	return req, nil
}

// Lock stops DequeueNext from yielding new work. Idempotent; pending
// requests and in-flight builds are untouched.
func (q *BuildQueue) Lock(ctx context.Context) error {
	return q.store.SetConfigValue(ctx, store.ConfigQueueLocked, "true")
}

// Unlock re-enables DequeueNext. Idempotent.
func (q *BuildQueue) Unlock(ctx context.Context) error {
	return q.store.SetConfigValue(ctx, store.ConfigQueueLocked, "false")
}

// IsLocked reports the persisted lock state. The queue starts unlocked.
func (q *BuildQueue) IsLocked(ctx context.Context) (bool, error) {
	value, err := q.store.GetConfigValue(ctx, store.ConfigQueueLocked)
	if err != nil {
		return false, err
	}
	return value != nil && *value == "true", nil
}

// PendingCount returns the number of pending requests.
func (q *BuildQueue) PendingCount(ctx context.Context) (int64, error) {
	return q.store.PendingCount(ctx)
}

// LastSeenReference returns the watcher's persisted resume reference, or nil
// when none has been recorded yet.
func (q *BuildQueue) LastSeenReference(ctx context.Context) (*string, error) {
	return q.store.GetConfigValue(ctx, store.ConfigLastSeenReference)
}

// SetLastSeenReference persists the resume reference. Callers must only
// advance it after the enqueues it represents have been committed; a crash
// before that point replays the old reference and the dedup invariant
// absorbs the re-observed releases.
func (q *BuildQueue) SetLastSeenReference(ctx context.Context, ref string) error {
	return q.store.SetConfigValue(ctx, store.ConfigLastSeenReference, ref)
}
