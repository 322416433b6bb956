package queue

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"docsmill/internal/cdn"
	"docsmill/internal/store"

	"github.com/google/uuid"
)

// Executor is the sandboxed build executor. It is an external collaborator:
// docsmill only hands it requests and records the outcome.
type Executor interface {
	// Build compiles the documentation for one request and uploads the
	// resulting archives and index blobs. Blocking; may take minutes.
	Build(ctx context.Context, req *store.BuildRequest) error
}

// ConsumerConfig tunes the dequeue loop.
type ConsumerConfig struct {
	// PollInterval is the initial delay after finding the queue empty or
	// locked. Doubles up to MaxBackoff while the queue stays empty.
	PollInterval time.Duration

	// MaxBackoff caps the empty-queue delay.
	MaxBackoff time.Duration
}

// Consumer is the single logical consumer loop: it dequeues the most urgent
// request and hands it to the executor. Builds run on the loop's goroutine;
// the lock is re-checked on every dequeue, so locking mid-build stops the
// next build, not the current one.
type Consumer struct {
	queue    *BuildQueue
	executor Executor
	cdn      cdn.Invalidator
	logger   *slog.Logger
	config   ConsumerConfig
}

// NewConsumer creates a consumer loop. cdn may be nil when no invalidation
// backend is configured.
func NewConsumer(q *BuildQueue, executor Executor, invalidator cdn.Invalidator, logger *slog.Logger, config ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if invalidator == nil {
		invalidator = cdn.Noop{}
	}
	return &Consumer{
		queue:    q,
		executor: executor,
		cdn:      invalidator,
		logger:   logger,
		config:   config,
	}
}

// Run blocks until ctx is cancelled. Storage errors back off and retry like
// an empty queue; build failures are logged and the loop moves on, since
// retrying a build is the operator's call.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.config.PollInterval

	for {
		req, err := c.queue.DequeueNext(ctx)
		if err != nil {
			c.logger.Error("dequeue failed", "error", err)
		} else if req != nil {
			c.process(ctx, req)
			backoff = c.config.PollInterval
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

func (c *Consumer) process(ctx context.Context, req *store.BuildRequest) {
	buildID := uuid.NewString()
	logger := c.logger.With("build_id", buildID, "crate", req.Name, "version", req.Version)

	logger.Info("build started", "priority", req.Priority)
	start := time.Now()

	if err := c.executor.Build(ctx, req); err != nil {
		logger.Error("build failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("build finished", "duration", time.Since(start))

	// The CDN caches per-crate documentation paths; a failed invalidation
	// leaves stale pages until the next build, which is tolerable.
	paths := []string{fmt.Sprintf("/%s/%s/", req.Name, req.Version)}
	failed, err := c.cdn.Invalidate(ctx, paths)
	if err != nil {
		logger.Warn("cdn invalidation failed", "error", err)
	} else if len(failed) > 0 {
		logger.Warn("cdn invalidation partially failed", "failed_paths", failed)
	}
}
