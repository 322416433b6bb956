// Package main is the entry point for the docsmill daemon.
// The daemon runs the registry watcher and the build consumer against a
// shared queue, and serves the metrics endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"docsmill/internal/appctx"
	"docsmill/internal/builder"
	"docsmill/internal/config"
	"docsmill/internal/logger"
	"docsmill/internal/observability"
	"docsmill/internal/queue"
	"docsmill/internal/store/postgres"
	"docsmill/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (optional)
	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "docsmill-daemon", cfg.OTELEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slogger.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slogger.Error("failed to shutdown metrics", "error", err)
		}
	}()

	queueMetrics, err := queue.NewMetrics(otel.Meter("docsmill.queue"))
	if err != nil {
		log.Fatalf("Failed to create queue metrics: %v", err)
	}

	appCtx := appctx.New(cfg, slogger, appctx.WithQueueMetrics(queueMetrics))
	defer appCtx.Close()

	pool, err := appCtx.Pool()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := postgres.Migrate(pool.DB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	q, err := appCtx.BuildQueue()
	if err != nil {
		log.Fatalf("Failed to create build queue: %v", err)
	}
	if _, err := appCtx.Storage(); err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	if cfg.BuilderCommand == "" {
		log.Fatalf("BUILDER_COMMAND is required")
	}

	w := watcher.New(appCtx.Registry(), q, pool, slogger, watcher.Config{
		PollInterval: cfg.WatcherPollInterval,
	})

	consumer := queue.NewConsumer(
		q,
		builder.New(cfg.BuilderCommand, slogger),
		appCtx.CDN(),
		slogger,
		queue.ConsumerConfig{PollInterval: cfg.ConsumerPollInterval},
	)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux(metricsHandler),
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		slogger.Info("registry watcher started", "poll_interval", cfg.WatcherPollInterval.String())
		return w.Run(groupCtx)
	})

	group.Go(func() error {
		slogger.Info("build consumer started", "poll_interval", cfg.ConsumerPollInterval.String())
		return consumer.Run(groupCtx)
	})

	group.Go(func() error {
		slogger.Info("metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Daemon exited with error: %v", err)
	}
	slogger.Info("shutdown complete")
}

func metricsMux(handler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return mux
}
