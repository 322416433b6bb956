// Package archive implements the artifact archive format: one immutable
// blob of per-file zstd frames, plus a companion SQLite index mapping each
// logical file path to its byte range. The index makes single-file reads
// possible without downloading or decompressing the whole archive.
package archive

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// MaxIndexFiles is the safe capacity of one index. Past this bound the
// index's addressing scheme can no longer guarantee unique lookups, so an
// index at or above it must be rebuilt, not served. Recompute this constant
// if the addressing width of the format ever changes.
const MaxIndexFiles = 65000

// AlgorithmZstd is the only compression algorithm currently written.
// The column exists so old archives stay readable if the default changes.
const AlgorithmZstd = "zstd"

// FileEntry locates one logical file inside an archive blob.
type FileEntry struct {
	Path           string
	Start          int64
	CompressedSize int64
	Size           int64
	Algorithm      string
}

const indexSchema = `
CREATE TABLE files (
    path TEXT PRIMARY KEY,
    start INTEGER NOT NULL,
    compressed_size INTEGER NOT NULL,
    size INTEGER NOT NULL,
    algorithm TEXT NOT NULL
) WITHOUT ROWID;
`

// CreateIndex writes a fresh index database at path. The file must not
// already contain an index.
func CreateIndex(path string, entries []FileEntry) (err error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("failed to create index at %s: %w", path, err)
	}
	defer func() {
		if closeErr := conn.Close(); err == nil {
			err = closeErr
		}
	}()

	if err := sqlitex.ExecuteScript(conn, indexSchema, nil); err != nil {
		return fmt.Errorf("failed to create index schema: %w", err)
	}

	release := sqlitex.Save(conn)
	defer release(&err)

	for _, entry := range entries {
		err = sqlitex.Execute(conn, `
			INSERT INTO files (path, start, compressed_size, size, algorithm)
			VALUES (?, ?, ?, ?, ?)
		`, &sqlitex.ExecOptions{
			Args: []any{entry.Path, entry.Start, entry.CompressedSize, entry.Size, entry.Algorithm},
		})
		if err != nil {
			return fmt.Errorf("failed to insert index entry %s: %w", entry.Path, err)
		}
	}
	return nil
}

// FileCount opens the index read-only and counts its entries. Any open or
// query failure means the index is corrupt; the caller schedules a rebuild
// instead of attempting repair.
func FileCount(path string) (int64, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return 0, fmt.Errorf("failed to open index at %s: %w", path, err)
	}
	defer conn.Close()

	var count int64
	err = sqlitex.ExecuteTransient(conn, "SELECT count(*) FROM files", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count index entries: %w", err)
	}
	return count, nil
}

// LookupFile returns the entry for one logical path, or nil when the path is
// not in the archive.
func LookupFile(path, filePath string) (*FileEntry, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to open index at %s: %w", path, err)
	}
	defer conn.Close()

	var entry *FileEntry
	err = sqlitex.Execute(conn, `
		SELECT path, start, compressed_size, size, algorithm
		FROM files WHERE path = ?
	`, &sqlitex.ExecOptions{
		Args: []any{filePath},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entry = &FileEntry{
				Path:           stmt.ColumnText(0),
				Start:          stmt.ColumnInt64(1),
				CompressedSize: stmt.ColumnInt64(2),
				Size:           stmt.ColumnInt64(3),
				Algorithm:      stmt.ColumnText(4),
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", filePath, err)
	}
	return entry, nil
}
