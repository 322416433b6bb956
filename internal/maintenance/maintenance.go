// Package maintenance audits archive indexes across all releases and
// schedules rebuilds for indexes that are corrupt or have outgrown the
// format's safe capacity.
package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"docsmill/internal/archive"
	"docsmill/internal/queue"
	"docsmill/internal/storage"
	"docsmill/internal/store"
)

// RebuildQueue is the slice of the build queue the sweep needs.
type RebuildQueue interface {
	HasPending(ctx context.Context, name, version string) (bool, error)
	Add(ctx context.Context, name, version string, priority *int, registry *string) (queue.Outcome, error)
}

// Report summarizes one sweep.
type Report struct {
	ReleasesChecked int
	IndexesAudited  int
	Missing         int
	Corrupt         int
	OverCapacity    int
	RebuildsQueued  int
}

// Job is the archive-index audit sweep.
type Job struct {
	catalog store.ReleaseStore
	storage storage.Backend
	queue   RebuildQueue
	logger  *slog.Logger
}

// New creates a maintenance job.
func New(catalog store.ReleaseStore, backend storage.Backend, q RebuildQueue, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Job{catalog: catalog, storage: backend, queue: q, logger: logger}
}

// Run sweeps every release, newest first, auditing the rustdoc and source
// indexes of each. Missing indexes are skipped; corrupt or over-capacity
// indexes schedule one rebuild per release, deduplicated against pending
// work. Transient storage failures abort the sweep so the caller can retry
// it whole.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	err := j.catalog.ForEachRelease(ctx, func(rel store.Release) error {
		report.ReleasesChecked++

		paths := []string{
			storage.RustdocArchivePath(rel.Name, rel.Version),
			storage.SourceArchivePath(rel.Name, rel.Version),
		}
		for _, archivePath := range paths {
			if err := j.auditIndex(ctx, rel, archivePath, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	j.logger.Info("archive index sweep complete",
		"releases", report.ReleasesChecked,
		"audited", report.IndexesAudited,
		"missing", report.Missing,
		"corrupt", report.Corrupt,
		"over_capacity", report.OverCapacity,
		"rebuilds_queued", report.RebuildsQueued,
	)
	return report, nil
}

// auditIndex downloads one index, inspects it, schedules a rebuild if
// needed, and deletes the local copy on every exit path. The local file is
// scratch state and must never outlive the audit.
func (j *Job) auditIndex(ctx context.Context, rel store.Release, archivePath string, report *Report) error {
	local, err := j.storage.Download(ctx, storage.IndexPath(archivePath))
	if errors.Is(err, storage.ErrNotFound) {
		// Nothing stored for this artifact, nothing to audit.
		report.Missing++
		return nil
	}
	if err != nil {
		return err
	}
	defer os.Remove(local)

	report.IndexesAudited++

	count, err := archive.FileCount(local)
	if err != nil {
		report.Corrupt++
		j.logger.Warn("corrupt archive index, scheduling rebuild",
			"crate", rel.Name, "version", rel.Version, "path", archivePath, "error", err)
		return j.scheduleRebuild(ctx, rel, report)
	}

	if count >= archive.MaxIndexFiles {
		report.OverCapacity++
		j.logger.Warn("archive index over capacity, scheduling rebuild",
			"crate", rel.Name, "version", rel.Version, "path", archivePath, "entries", count)
		return j.scheduleRebuild(ctx, rel, report)
	}

	return nil
}

func (j *Job) scheduleRebuild(ctx context.Context, rel store.Release, report *Report) error {
	pending, err := j.queue.HasPending(ctx, rel.Name, rel.Version)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	priority := store.DefaultPriority
	outcome, err := j.queue.Add(ctx, rel.Name, rel.Version, &priority, nil)
	if err != nil {
		return err
	}
	if outcome == queue.OutcomeQueued {
		report.RebuildsQueued++
	}
	return nil
}
