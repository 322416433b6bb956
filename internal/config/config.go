// Package config handles environment variable loading for the daemon:
// database string, storage backend, watcher cadence, metrics port.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// Storage backend selection: "s3" or "fs"
	StorageBackend string

	// S3-compatible storage settings (StorageBackend == "s3")
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// Local storage root (StorageBackend == "fs")
	StoragePath string

	// Base URL of the registry index change feed
	RegistryURL string

	// CDN invalidation endpoint; empty disables invalidation
	CDNEndpoint string

	// Command invoked per build: BuilderCommand <name> <version> [registry]
	BuilderCommand string

	// Registry watcher poll interval
	WatcherPollInterval time.Duration

	// Consumer loop poll interval when the queue is empty
	ConsumerPollInterval time.Duration

	// HTTP port for the metrics endpoint
	MetricsPort int

	// OTLP collector address for tracing; empty disables tracing
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		StorageBackend:       "s3",
		StoragePath:          "/var/lib/docsmill/storage",
		WatcherPollInterval:  time.Minute,
		ConsumerPollInterval: time.Second,
		MetricsPort:          3000,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.RegistryURL = os.Getenv("REGISTRY_URL")
	if cfg.RegistryURL == "" {
		return nil, fmt.Errorf("REGISTRY_URL is required")
	}

	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		if backend != "s3" && backend != "fs" {
			return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: must be s3 or fs", backend)
		}
		cfg.StorageBackend = backend
	}

	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	if ssl := os.Getenv("S3_USE_SSL"); ssl != "" {
		v, err := strconv.ParseBool(ssl)
		if err != nil {
			return nil, fmt.Errorf("invalid S3_USE_SSL: %w", err)
		}
		cfg.S3UseSSL = v
	}
	if cfg.StorageBackend == "s3" && (cfg.S3Endpoint == "" || cfg.S3Bucket == "") {
		return nil, fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required with STORAGE_BACKEND=s3")
	}

	if path := os.Getenv("STORAGE_PATH"); path != "" {
		cfg.StoragePath = path
	}

	cfg.CDNEndpoint = os.Getenv("CDN_ENDPOINT")
	cfg.BuilderCommand = os.Getenv("BUILDER_COMMAND")
	cfg.OTELEndpoint = os.Getenv("OTEL_ENDPOINT")

	if interval := os.Getenv("WATCHER_POLL_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid WATCHER_POLL_INTERVAL: %w", err)
		}
		cfg.WatcherPollInterval = d
	}

	if interval := os.Getenv("CONSUMER_POLL_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid CONSUMER_POLL_INTERVAL: %w", err)
		}
		cfg.ConsumerPollInterval = d
	}

	if port := os.Getenv("METRICS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid METRICS_PORT: %w", err)
		}
		cfg.MetricsPort = p
	}

	return cfg, nil
}
