// Package appctx assembles the process-wide shared handles: database pool,
// storage client, build queue, CDN invalidator. Every handle is constructed
// lazily, exactly once, with construction failures surfaced at first use.
// Each hosting mode (CLI, daemon) builds one Context at startup and passes
// it down; core logic never assembles its own collaborators.
package appctx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docsmill/internal/cdn"
	"docsmill/internal/config"
	"docsmill/internal/queue"
	"docsmill/internal/registry"
	"docsmill/internal/storage"
	"docsmill/internal/store/postgres"
)

// Context is the capability set handed to components. Implementations
// decide how the collaborators are assembled; callers only ask for them.
type Context interface {
	Config() *config.Config
	Logger() *slog.Logger
	Pool() (*postgres.Store, error)
	BuildQueue() (*queue.BuildQueue, error)
	Storage() (storage.Backend, error)
	Registry() *registry.Client
	CDN() cdn.Invalidator
}

// ProcessContext is the standard Context assembly, shared by the CLI and
// the daemon. Handles are memoized; concurrent first use is safe.
type ProcessContext struct {
	cfg    *config.Config
	logger *slog.Logger

	pool        func() (*postgres.Store, error)
	buildQueue  func() (*queue.BuildQueue, error)
	backend     func() (storage.Backend, error)
	index       func() *registry.Client
	invalidator func() cdn.Invalidator

	// metrics for the queue; nil outside the daemon
	queueMetrics *queue.Metrics
}

// Option customizes a ProcessContext.
type Option func(*ProcessContext)

// WithQueueMetrics attaches otel counters to the build queue. The daemon
// sets this; CLI invocations skip meter setup.
func WithQueueMetrics(m *queue.Metrics) Option {
	return func(p *ProcessContext) { p.queueMetrics = m }
}

// New creates a ProcessContext over the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *ProcessContext {
	p := &ProcessContext{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(p)
	}

	p.pool = sync.OnceValues(func() (*postgres.Store, error) {
		return postgres.New(context.Background(), cfg.DatabaseURL)
	})

	p.buildQueue = sync.OnceValues(func() (*queue.BuildQueue, error) {
		pool, err := p.pool()
		if err != nil {
			return nil, err
		}
		return queue.New(pool, logger, p.queueMetrics), nil
	})

	p.backend = sync.OnceValues(func() (storage.Backend, error) {
		switch cfg.StorageBackend {
		case "fs":
			return storage.NewFSBackend(cfg.StoragePath)
		case "s3":
			return storage.NewMinIOBackend(context.Background(), storage.MinIOConfig{
				Endpoint:  cfg.S3Endpoint,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
				Bucket:    cfg.S3Bucket,
				UseSSL:    cfg.S3UseSSL,
			})
		default:
			return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
		}
	})

	p.index = sync.OnceValue(func() *registry.Client {
		return registry.NewClient(cfg.RegistryURL)
	})

	p.invalidator = sync.OnceValue(func() cdn.Invalidator {
		if cfg.CDNEndpoint == "" {
			return cdn.Noop{}
		}
		return cdn.NewHTTPInvalidator(cfg.CDNEndpoint)
	})

	return p
}

func (p *ProcessContext) Config() *config.Config { return p.cfg }

func (p *ProcessContext) Logger() *slog.Logger { return p.logger }

func (p *ProcessContext) Pool() (*postgres.Store, error) { return p.pool() }

func (p *ProcessContext) BuildQueue() (*queue.BuildQueue, error) { return p.buildQueue() }

func (p *ProcessContext) Storage() (storage.Backend, error) { return p.backend() }

func (p *ProcessContext) Registry() *registry.Client { return p.index() }

func (p *ProcessContext) CDN() cdn.Invalidator { return p.invalidator() }

// Close releases the handles that were actually constructed.
func (p *ProcessContext) Close() error {
	pool, err := p.pool()
	if err != nil {
		// Never constructed successfully; nothing to release.
		return nil
	}
	return pool.Close()
}
