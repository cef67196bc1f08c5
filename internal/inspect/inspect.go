// Package inspect probes Electron asar archives for application
// version information.
//
// A probe resolves the request path (which may pass through a zip or
// disk image container), parses the archive header, reads the entry
// document (package.json by default) and extracts the version value.
// Probes can be recorded to the history store for later comparison.
package inspect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/appver/appver/internal/adapters/osfs"
	"github.com/appver/appver/internal/asar"
	"github.com/appver/appver/internal/config"
	"github.com/appver/appver/internal/history"
	"github.com/appver/appver/internal/ports"
	"github.com/appver/appver/internal/resolve"
)

// UnknownVersion is reported when the entry document has no value for
// the requested key. A probe that reaches the document always succeeds;
// a missing key is an answer, not an error.
const UnknownVersion = "UNKNOWN_VERSION"

// DefaultEntry and DefaultKey apply when neither the options nor the
// configuration name an entry or key.
const (
	DefaultEntry = "package.json"
	DefaultKey   = "version"
)

// Options configures a probe.
type Options struct {
	// Entry is the archive entry holding the version document.
	// Empty means the configured default.
	Entry string
	// Key is the document key holding the version string. Empty means
	// the configured default.
	Key string
	// Nested interprets Entry as a slash-separated path instead of a
	// top-level entry name.
	Nested bool
	// SkipSingleRootDir is passed through to path resolution for zip
	// containers.
	SkipSingleRootDir bool
	// NoRecord skips history recording even when tracking is enabled.
	NoRecord bool
}

// Result describes a successful probe.
type Result struct {
	Path         string // path as requested
	ResolvedPath string // on-disk path after container staging
	Entry        string
	Key          string
	Version      string
	Doc          any // decoded entry document
	SHA256       string
	Size         int64
	InspectedAt  time.Time
	Recorded     bool // a history record was written
}

// Service provides probe operations with injected dependencies.
type Service struct {
	fs       ports.FileSystem
	resolver *resolve.Service
}

// NewService creates a new inspect service with the given dependencies.
func NewService(fs ports.FileSystem, resolver *resolve.Service) *Service {
	return &Service{
		fs:       fs,
		resolver: resolver,
	}
}

// NewDefaultService creates an inspect service with real production dependencies.
func NewDefaultService() *Service {
	return NewService(
		osfs.New(),
		resolve.NewDefaultService(),
	)
}

// Probe extracts the version value from the archive at path. When
// tracking is enabled the probe is appended to the archive's history,
// unless the newest record already matches.
func (s *Service) Probe(cfg *config.Config, path string, opts Options) (*Result, error) {
	entry := opts.Entry
	if entry == "" {
		entry = cfg.DefaultEntry
	}
	if entry == "" {
		entry = DefaultEntry
	}
	key := opts.Key
	if key == "" {
		key = cfg.DefaultKey
	}
	if key == "" {
		key = DefaultKey
	}

	resolved, release, err := s.resolver.Resolve(path, resolve.Options{
		SkipSingleRootDir: opts.SkipSingleRootDir,
		TempDir:           config.ExpandPath(cfg.TempDir),
	})
	if err != nil {
		return nil, err
	}
	defer release()

	a, err := asar.Open(resolved)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	var doc any
	if opts.Nested {
		doc, err = a.ReadJSONPath(entry)
	} else {
		doc, err = a.ReadJSON(entry)
	}
	if err != nil {
		return nil, err
	}

	checksum, err := s.checksum(resolved)
	if err != nil {
		return nil, fmt.Errorf("computing checksum: %w", err)
	}

	result := &Result{
		Path:         path,
		ResolvedPath: resolved,
		Entry:        entry,
		Key:          key,
		Version:      VersionFrom(doc, key),
		Doc:          doc,
		SHA256:       checksum,
		Size:         a.Size(),
		InspectedAt:  time.Now(),
	}

	if cfg.Track && !opts.NoRecord {
		recorded, err := s.record(cfg, result)
		if err != nil {
			return nil, fmt.Errorf("recording history: %w", err)
		}
		result.Recorded = recorded
	}

	return result, nil
}

// record appends the probe to the archive's history. Probes matching
// the newest record are not appended again.
func (s *Service) record(cfg *config.Config, r *Result) (bool, error) {
	historyDir := config.ExpandPath(cfg.HistoryDir)

	h, err := history.Load(historyDir, r.Path)
	if err != nil {
		return false, err
	}

	if last := h.Latest(); last != nil &&
		last.Version == r.Version && last.SHA256 == r.SHA256 &&
		last.Entry == r.Entry && last.Key == r.Key {
		return false, nil
	}

	h.Append(history.Record{
		Version:     r.Version,
		Entry:       r.Entry,
		Key:         r.Key,
		SHA256:      r.SHA256,
		SizeBytes:   r.Size,
		InspectedAt: r.InspectedAt,
	})

	if cfg.Retention.KeepLast > 0 {
		h.Prune(cfg.Retention.KeepLast)
	}

	if err := h.Save(historyDir); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) checksum(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// VersionFrom extracts the value for key from a decoded entry document.
// A missing key or a document that is not a JSON object yields
// UnknownVersion. Non-string values are rendered with fmt.Sprint.
func VersionFrom(doc any, key string) string {
	obj, ok := doc.(map[string]any)
	if !ok {
		return UnknownVersion
	}
	val, ok := obj[key]
	if !ok {
		return UnknownVersion
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}

// FormatSize renders a byte count in human-readable form.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// ============================================================================
// Backward-compatible package-level functions using default service
// ============================================================================

var defaultService = NewDefaultService()

// Probe probes path using the default service.
func Probe(cfg *config.Config, path string, opts Options) (*Result, error) {
	return defaultService.Probe(cfg, path, opts)
}
