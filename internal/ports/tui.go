package ports

import (
	"github.com/appver/appver/internal/config"
)

// TUIEntryInfo contains archive entry metadata for display.
type TUIEntryInfo struct {
	Name       string
	Path       string // slash-joined path from the archive root
	Dir        bool
	Link       string
	Size       uint64
	Offset     string
	Unpacked   bool
	Executable bool
	Children   int // direct children, directories only
}

// TUIArchiveInfo contains archive-level metadata for display.
type TUIArchiveInfo struct {
	Path       string
	FileSize   int64
	HeaderSize int64
	DataOffset int64
	FileCount  int
	DirCount   int
}

// TUIService provides operations needed by the TUI.
// This abstraction allows the TUI to be tested without real archives on disk.
type TUIService interface {
	// LoadConfig loads the application configuration.
	LoadConfig() (*config.Config, error)

	// Open opens the archive at path and keeps it open for the
	// listing and reading calls that follow.
	Open(path string) (TUIArchiveInfo, error)

	// List returns the entries directly under dir, directories first,
	// each group sorted by name. An empty dir means the archive root.
	List(dir string) ([]TUIEntryInfo, error)

	// Preview returns up to maxBytes of the entry at path, rendered as
	// text. Binary content is summarized instead of returned raw.
	Preview(path string, maxBytes int) (string, error)

	// Version probes the named top-level entry for a version value
	// under key.
	Version(entry, key string) (string, error)

	// Close releases the archive opened by Open.
	Close() error
}
