// Package consistency reconciles the catalog, the registry, and artifact
// storage. Divergences are either logged (dry run) or corrected through
// build-queue adds and catalog deletions (live run).
package consistency

import (
	"context"
	"io"
	"log/slog"

	"docsmill/internal/maintenance"
	"docsmill/internal/storage"
	"docsmill/internal/store"
)

// Registry lists what the upstream index considers published.
type Registry interface {
	// AllReleases returns version sets keyed by crate name.
	AllReleases(ctx context.Context) (map[string]map[string]bool, error)
}

// Catalog is the slice of the release store the checker needs.
type Catalog interface {
	ForEachRelease(ctx context.Context, fn func(store.Release) error) error
	DeleteRelease(ctx context.Context, name, version string) (bool, error)
}

// Report summarizes the divergences found in one run.
type Report struct {
	BuildsQueued     int // in registry or catalog but not built/stored
	ReleasesDeleted  int // in catalog but no longer in registry
	ReleasesChecked  int
	DivergencesFound int
}

// Checker compares the three sources of truth.
type Checker struct {
	registry Registry
	catalog  Catalog
	storage  storage.Backend
	queue    maintenance.RebuildQueue
	logger   *slog.Logger
}

// New creates a checker.
func New(reg Registry, catalog Catalog, backend storage.Backend, q maintenance.RebuildQueue, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checker{registry: reg, catalog: catalog, storage: backend, queue: q, logger: logger}
}

// Run performs one reconciliation pass. Under dryRun every corrective action
// is logged instead of executed.
func (c *Checker) Run(ctx context.Context, dryRun bool) (*Report, error) {
	report := &Report{}

	published, err := c.registry.AllReleases(ctx)
	if err != nil {
		return nil, err
	}

	inCatalog := make(map[string]map[string]bool)
	err = c.catalog.ForEachRelease(ctx, func(rel store.Release) error {
		report.ReleasesChecked++
		if inCatalog[rel.Name] == nil {
			inCatalog[rel.Name] = make(map[string]bool)
		}
		inCatalog[rel.Name][rel.Version] = true

		if versions := published[rel.Name]; versions == nil || !versions[rel.Version] {
			// Catalog row with no upstream counterpart.
			report.DivergencesFound++
			return c.deleteRelease(ctx, rel.Name, rel.Version, dryRun, report)
		}

		// Upstream and cataloged, but the built documentation is gone.
		exists, err := c.storage.Exists(ctx, storage.RustdocArchivePath(rel.Name, rel.Version))
		if err != nil {
			return err
		}
		if !exists {
			report.DivergencesFound++
			return c.queueBuild(ctx, rel.Name, rel.Version, dryRun, report)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for name, versions := range published {
		for version := range versions {
			if inCatalog[name] != nil && inCatalog[name][version] {
				continue
			}
			// Published upstream but never cataloged: never built.
			report.DivergencesFound++
			if err := c.queueBuild(ctx, name, version, dryRun, report); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Info("consistency check complete",
		"dry_run", dryRun,
		"checked", report.ReleasesChecked,
		"divergences", report.DivergencesFound,
		"builds_queued", report.BuildsQueued,
		"releases_deleted", report.ReleasesDeleted,
	)
	return report, nil
}

func (c *Checker) queueBuild(ctx context.Context, name, version string, dryRun bool, report *Report) error {
	if dryRun {
		c.logger.Info("would queue build", "crate", name, "version", version)
		return nil
	}
	pending, err := c.queue.HasPending(ctx, name, version)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}
	priority := store.DefaultPriority
	if _, err := c.queue.Add(ctx, name, version, &priority, nil); err != nil {
		return err
	}
	report.BuildsQueued++
	return nil
}

func (c *Checker) deleteRelease(ctx context.Context, name, version string, dryRun bool, report *Report) error {
	if dryRun {
		c.logger.Info("would delete release", "crate", name, "version", version)
		return nil
	}
	deleted, err := c.catalog.DeleteRelease(ctx, name, version)
	if err != nil {
		return err
	}
	if deleted {
		report.ReleasesDeleted++
	}
	return nil
}
