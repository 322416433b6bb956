// Package watcher polls the upstream registry index and enqueues newly
// observed releases. Progress is a single persisted resume reference,
// advanced only after a whole peeked batch has been enqueued; a crash
// mid-batch replays the batch and the queue's dedup invariant absorbs it.
package watcher

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"docsmill/internal/queue"
	"docsmill/internal/registry"
	"docsmill/internal/store"

	"golang.org/x/time/rate"
)

// NewReleasePriority fast-tracks freshly published releases ahead of
// administrative and backfill work.
const NewReleasePriority = 0

// State is the watcher's coarse activity state, for diagnostics.
type State int

const (
	// Idle means the watcher is waiting for the next poll.
	Idle State = iota
	// Diffing means the watcher is comparing its resume point against the
	// upstream head and enqueuing what it finds.
	Diffing
)

func (s State) String() string {
	if s == Diffing {
		return "diffing"
	}
	return "idle"
}

// BuildQueue is the slice of the queue the watcher needs.
type BuildQueue interface {
	Add(ctx context.Context, name, version string, priority *int, registry *string) (queue.Outcome, error)
	LastSeenReference(ctx context.Context) (*string, error)
	SetLastSeenReference(ctx context.Context, ref string) error
}

// Config tunes the poll loop.
type Config struct {
	// PollInterval is the delay between syncs. Defaults to one minute.
	PollInterval time.Duration

	// MinFetchInterval caps how often the upstream index is actually
	// fetched, regardless of poll triggers. Defaults to PollInterval.
	MinFetchInterval time.Duration
}

// Watcher is the registry watcher state machine.
type Watcher struct {
	index   registry.DiffSource
	queue   BuildQueue
	catalog store.ReleaseStore
	logger  *slog.Logger
	config  Config
	limiter *rate.Limiter
	trigger chan struct{}

	mu    sync.Mutex
	state State
}

// New creates a watcher. catalog may be nil when yank tracking is not
// wanted (yank changes are then ignored).
func New(index registry.DiffSource, q BuildQueue, catalog store.ReleaseStore, logger *slog.Logger, config Config) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.MinFetchInterval <= 0 {
		config.MinFetchInterval = config.PollInterval
	}
	return &Watcher{
		index:   index,
		queue:   q,
		catalog: catalog,
		logger:  logger,
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.MinFetchInterval), 1),
		trigger: make(chan struct{}, 1),
	}
}

// State reports whether the watcher is idle or mid-diff.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Trigger requests an immediate sync in addition to the timer. Non-blocking;
// coalesces with a pending trigger.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. Sync failures are logged and retried on
// the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.trigger:
		}

		if err := w.Sync(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("registry sync failed", "error", err)
		}
	}
}

// Sync runs one Idle -> Diffing -> Idle cycle: peek the change feed, enqueue
// every new release at the fast-track priority, then advance the resume
// reference. On the very first run (no reference persisted) it records the
// current head without backfilling history.
func (w *Watcher) Sync(ctx context.Context) error {
	w.setState(Diffing)
	defer w.setState(Idle)

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	since, err := w.queue.LastSeenReference(ctx)
	if err != nil {
		return err
	}

	changes, head, err := w.index.Peek(ctx, since)
	if err != nil {
		return err
	}

	if since == nil {
		w.logger.Info("no resume reference, bootstrapping at current head", "head", head)
		return w.queue.SetLastSeenReference(ctx, head)
	}

	enqueued := 0
	for _, change := range changes {
		switch change.Kind {
		case registry.ReleaseAdded:
			priority := NewReleasePriority
			outcome, err := w.queue.Add(ctx, change.Name, change.Version, &priority, nil)
			if err != nil {
				// The reference stays put, so the whole batch replays
				// next sync and dedup drops what already made it in.
				return err
			}
			if outcome == queue.OutcomeQueued {
				enqueued++
			}
		case registry.ReleaseYanked, registry.ReleaseUnyanked:
			if w.catalog == nil {
				continue
			}
			yanked := change.Kind == registry.ReleaseYanked
			if err := w.catalog.SetYanked(ctx, change.Name, change.Version, yanked); err != nil {
				return err
			}
		}
	}

	if head != "" && (since == nil || *since != head) {
		if err := w.queue.SetLastSeenReference(ctx, head); err != nil {
			return err
		}
	}

	if len(changes) > 0 {
		w.logger.Info("registry sync complete",
			"changes", len(changes),
			"enqueued", enqueued,
			"head", head,
		)
	}
	return nil
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
