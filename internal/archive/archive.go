package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Each file is compressed as an independent zstd frame so a single file can
// be decompressed from a ranged read of the blob.

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// Writer assembles an archive blob and records the entries for its index.
type Writer struct {
	dst     io.Writer
	offset  int64
	entries []FileEntry
}

// NewWriter writes the archive blob to dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// AddFile appends one logical file to the blob.
func (w *Writer) AddFile(path string, data []byte) error {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if _, err := w.dst.Write(compressed); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.entries = append(w.entries, FileEntry{
		Path:           path,
		Start:          w.offset,
		CompressedSize: int64(len(compressed)),
		Size:           int64(len(data)),
		Algorithm:      AlgorithmZstd,
	})
	w.offset += int64(len(compressed))
	return nil
}

// Entries returns the index rows for everything added so far.
func (w *Writer) Entries() []FileEntry {
	return w.entries
}

// WriteIndex writes the companion index for this archive to indexPath.
func (w *Writer) WriteIndex(indexPath string) error {
	return CreateIndex(indexPath, w.entries)
}

// ReadFile extracts one file from an archive blob using its index entry.
func ReadFile(blob io.ReaderAt, entry *FileEntry) ([]byte, error) {
	if entry.Algorithm != AlgorithmZstd {
		return nil, fmt.Errorf("unsupported compression algorithm %q", entry.Algorithm)
	}

	compressed := make([]byte, entry.CompressedSize)
	if _, err := blob.ReadAt(compressed, entry.Start); err != nil {
		return nil, fmt.Errorf("failed to read archive range for %s: %w", entry.Path, err)
	}

	data, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, entry.Size))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", entry.Path, err)
	}
	return data, nil
}
