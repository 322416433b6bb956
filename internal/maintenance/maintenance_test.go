package maintenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docsmill/internal/archive"
	"docsmill/internal/queue"
	"docsmill/internal/storage"
	"docsmill/internal/store"
)

type fakeCatalog struct {
	releases []store.Release
}

func (f *fakeCatalog) ForEachRelease(_ context.Context, fn func(store.Release) error) error {
	for _, rel := range f.releases {
		if err := fn(rel); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCatalog) SetYanked(_ context.Context, _, _ string, _ bool) error { return nil }

func (f *fakeCatalog) DeleteRelease(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

type fakeQueue struct {
	pending map[string]bool
	adds    int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{pending: make(map[string]bool)}
}

func (f *fakeQueue) HasPending(_ context.Context, name, version string) (bool, error) {
	return f.pending[name+"@"+version], nil
}

func (f *fakeQueue) Add(_ context.Context, name, version string, _ *int, _ *string) (queue.Outcome, error) {
	key := name + "@" + version
	if f.pending[key] {
		return queue.OutcomeAlreadyQueued, nil
	}
	f.pending[key] = true
	f.adds++
	return queue.OutcomeQueued, nil
}

// indexBlob builds an index with n file rows and returns its raw bytes.
func indexBlob(t *testing.T, n int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index")
	entries := make([]archive.FileEntry, n)
	for i := range entries {
		entries[i] = archive.FileEntry{
			Path:           fmt.Sprintf("file-%d.html", i),
			Start:          int64(i),
			CompressedSize: 1,
			Size:           1,
			Algorithm:      archive.AlgorithmZstd,
		}
	}
	if err := archive.CreateIndex(path, entries); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading index failed: %v", err)
	}
	return data
}

func release(name, version string) store.Release {
	return store.Release{Name: name, Version: version, ReleaseTime: time.Now()}
}

func newTestJob(t *testing.T, releases []store.Release) (*Job, storage.Backend, *fakeQueue) {
	t.Helper()
	backend, err := storage.NewFSBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSBackend failed: %v", err)
	}
	q := newFakeQueue()
	return New(&fakeCatalog{releases: releases}, backend, q, nil), backend, q
}

func TestRunMissingIndexesSkipped(t *testing.T) {
	ctx := context.Background()
	job, _, q := newTestJob(t, []store.Release{release("demo", "1.2.0")})

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Missing != 2 {
		t.Errorf("got %d missing, want 2 (rustdoc and source)", report.Missing)
	}
	if q.adds != 0 {
		t.Errorf("missing indexes queued %d rebuilds, want 0", q.adds)
	}
}

func TestRunHealthyIndexLeftAlone(t *testing.T) {
	ctx := context.Background()
	job, backend, q := newTestJob(t, []store.Release{release("demo", "1.2.0")})

	blob := indexBlob(t, archive.MaxIndexFiles-1)
	indexPath := storage.IndexPath(storage.RustdocArchivePath("demo", "1.2.0"))
	if err := backend.Upload(ctx, indexPath, blob, "application/octet-stream"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.OverCapacity != 0 || report.Corrupt != 0 {
		t.Errorf("healthy index flagged: %+v", report)
	}
	if q.adds != 0 {
		t.Errorf("healthy index queued %d rebuilds, want 0", q.adds)
	}
}

func TestRunOverCapacityIndexQueuesOneRebuild(t *testing.T) {
	ctx := context.Background()
	job, backend, q := newTestJob(t, []store.Release{release("demo", "1.2.0")})

	blob := indexBlob(t, archive.MaxIndexFiles)
	indexPath := storage.IndexPath(storage.SourceArchivePath("demo", "1.2.0"))
	if err := backend.Upload(ctx, indexPath, blob, "application/octet-stream"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.OverCapacity != 1 {
		t.Errorf("got %d over capacity, want 1", report.OverCapacity)
	}
	if q.adds != 1 {
		t.Errorf("queued %d rebuilds, want exactly 1", q.adds)
	}
}

func TestRunCorruptIndexQueuesOneRebuild(t *testing.T) {
	ctx := context.Background()
	job, backend, q := newTestJob(t, []store.Release{release("demo", "1.2.0")})

	indexPath := storage.IndexPath(storage.RustdocArchivePath("demo", "1.2.0"))
	if err := backend.Upload(ctx, indexPath, []byte("not a database"), "application/octet-stream"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Corrupt != 1 {
		t.Errorf("got %d corrupt, want 1", report.Corrupt)
	}
	if q.adds != 1 {
		t.Errorf("queued %d rebuilds, want exactly 1", q.adds)
	}
}

func TestRunRebuildDeduplicatedAcrossArtifacts(t *testing.T) {
	ctx := context.Background()
	job, backend, q := newTestJob(t, []store.Release{release("demo", "1.2.0")})

	// Both artifact indexes are corrupt; the release still gets one rebuild.
	for _, archivePath := range []string{
		storage.RustdocArchivePath("demo", "1.2.0"),
		storage.SourceArchivePath("demo", "1.2.0"),
	} {
		if err := backend.Upload(ctx, storage.IndexPath(archivePath), []byte("garbage"), "application/octet-stream"); err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
	}

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Corrupt != 2 {
		t.Errorf("got %d corrupt, want 2", report.Corrupt)
	}
	if q.adds != 1 {
		t.Errorf("queued %d rebuilds, want exactly 1", q.adds)
	}
}

func TestRunRespectsAlreadyPendingRebuild(t *testing.T) {
	ctx := context.Background()
	job, backend, q := newTestJob(t, []store.Release{release("demo", "1.2.0")})
	q.pending["demo@1.2.0"] = true

	indexPath := storage.IndexPath(storage.RustdocArchivePath("demo", "1.2.0"))
	if err := backend.Upload(ctx, indexPath, []byte("garbage"), "application/octet-stream"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if _, err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if q.adds != 0 {
		t.Errorf("queued %d rebuilds for already-pending release, want 0", q.adds)
	}
}
