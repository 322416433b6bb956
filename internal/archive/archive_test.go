package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterRoundTrip(t *testing.T) {
	var blob bytes.Buffer
	w := NewWriter(&blob)

	files := map[string]string{
		"index.html":          "<html>root</html>",
		"serde/index.html":    "<html>serde</html>",
		"serde/struct.S.html": strings.Repeat("long content ", 100),
	}
	for path, content := range files {
		if err := w.AddFile(path, []byte(content)); err != nil {
			t.Fatalf("AddFile(%s) failed: %v", path, err)
		}
	}

	indexPath := filepath.Join(t.TempDir(), "test.archive.index")
	if err := w.WriteIndex(indexPath); err != nil {
		t.Fatalf("WriteIndex failed: %v", err)
	}

	count, err := FileCount(indexPath)
	if err != nil {
		t.Fatalf("FileCount failed: %v", err)
	}
	if count != int64(len(files)) {
		t.Errorf("got %d entries, want %d", count, len(files))
	}

	reader := bytes.NewReader(blob.Bytes())
	for path, content := range files {
		entry, err := LookupFile(indexPath, path)
		if err != nil {
			t.Fatalf("LookupFile(%s) failed: %v", path, err)
		}
		if entry == nil {
			t.Fatalf("LookupFile(%s) returned no entry", path)
		}
		data, err := ReadFile(reader, entry)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", path, err)
		}
		if string(data) != content {
			t.Errorf("%s: round trip mismatch", path)
		}
	}
}

func TestLookupFileMissing(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "test.archive.index")
	if err := CreateIndex(indexPath, []FileEntry{
		{Path: "present.html", Start: 0, CompressedSize: 1, Size: 1, Algorithm: AlgorithmZstd},
	}); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	entry, err := LookupFile(indexPath, "absent.html")
	if err != nil {
		t.Fatalf("LookupFile failed: %v", err)
	}
	if entry != nil {
		t.Errorf("expected nil for an absent path, got %+v", entry)
	}
}

func TestFileCountCorruptIndex(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "corrupt.archive.index")
	if err := os.WriteFile(indexPath, []byte("this is not a database"), 0o644); err != nil {
		t.Fatalf("writing corrupt file failed: %v", err)
	}

	if _, err := FileCount(indexPath); err == nil {
		t.Error("expected an error for a corrupt index")
	}
}

func TestFileCountEmptyIndex(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "empty.archive.index")
	if err := CreateIndex(indexPath, nil); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	count, err := FileCount(indexPath)
	if err != nil {
		t.Fatalf("FileCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("got %d entries, want 0", count)
	}
}
