package ports

// Archiver abstracts zip archive operations for testability.
// Production code uses ZipArchiver adapter; tests use MockArchiver.
type Archiver interface {
	// Roots returns the sorted top-level names in the archive. A
	// trailing slash is stripped, so a directory and the files under it
	// contribute one name.
	Roots(zipPath string) ([]string, error)

	// Extract extracts a zip archive to destDir.
	Extract(zipPath, destDir string) error
}
