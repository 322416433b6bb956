package storage

import "fmt"

// Archive and index blobs are addressed deterministically from
// (crate, version, artifact kind). The build executor writes these paths;
// the web front end and the maintenance job derive the same paths for reads.

// RustdocArchivePath is the archive holding one release's rustdoc tree.
func RustdocArchivePath(name, version string) string {
	return fmt.Sprintf("rustdoc/%s/%s.archive", name, version)
}

// SourceArchivePath is the archive holding one release's source tree.
func SourceArchivePath(name, version string) string {
	return fmt.Sprintf("sources/%s/%s.archive", name, version)
}

// IndexPath is the companion file index for an archive blob.
func IndexPath(archivePath string) string {
	return archivePath + ".index"
}
