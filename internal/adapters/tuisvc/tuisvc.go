// Package tuisvc provides the real implementation of ports.TUIService.
package tuisvc

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/appver/appver/internal/asar"
	"github.com/appver/appver/internal/config"
	"github.com/appver/appver/internal/inspect"
	"github.com/appver/appver/internal/ports"
	"github.com/appver/appver/internal/resolve"
)

// Service implements ports.TUIService over one open asar archive.
type Service struct {
	archive *asar.Archive
	release func()
}

// New creates a new TUI service.
func New() *Service {
	return &Service{}
}

// LoadConfig loads the application configuration.
func (s *Service) LoadConfig() (*config.Config, error) {
	return config.Load()
}

// Open resolves path (staging any zip or disk image container on the
// way), opens the archive and keeps it open for the listing and
// reading calls that follow. An archive opened by an earlier call is
// closed first.
func (s *Service) Open(path string) (ports.TUIArchiveInfo, error) {
	_ = s.Close()

	cfg, err := config.Load()
	if err != nil {
		return ports.TUIArchiveInfo{}, err
	}

	resolved, release, err := resolve.Resolve(path, resolve.Options{
		TempDir: config.ExpandPath(cfg.TempDir),
	})
	if err != nil {
		return ports.TUIArchiveInfo{}, err
	}

	a, err := asar.Open(resolved)
	if err != nil {
		release()
		return ports.TUIArchiveInfo{}, err
	}
	s.archive = a
	s.release = release

	info := ports.TUIArchiveInfo{
		Path:       path,
		FileSize:   a.Size(),
		HeaderSize: a.HeaderSize(),
		DataOffset: a.DataOffset(),
	}
	_ = a.Root().Walk(func(_ string, e *asar.Entry) error {
		if e.IsDir() {
			info.DirCount++
		} else {
			info.FileCount++
		}
		return nil
	})
	return info, nil
}

// List returns the entries directly under dir, directories first, each
// group sorted by name. An empty dir means the archive root.
func (s *Service) List(dir string) ([]ports.TUIEntryInfo, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("no archive open")
	}

	parent := s.archive.Root()
	if dir != "" {
		e, err := s.archive.Lookup(dir)
		if err != nil {
			return nil, err
		}
		if !e.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
		parent = e
	}

	var dirs, files []ports.TUIEntryInfo
	for _, name := range parent.Names() {
		child := parent.Files[name]
		path := name
		if dir != "" {
			path = dir + "/" + name
		}
		info := ports.TUIEntryInfo{
			Name:       name,
			Path:       path,
			Dir:        child.IsDir(),
			Link:       child.Link,
			Size:       child.Size,
			Offset:     child.Offset,
			Unpacked:   child.Unpacked,
			Executable: child.Executable,
			Children:   len(child.Files),
		}
		if info.Dir {
			dirs = append(dirs, info)
		} else {
			files = append(files, info)
		}
	}
	return append(dirs, files...), nil
}

// Preview returns up to maxBytes of the entry at path, rendered as
// text. JSON entries are pretty-printed; binary content is summarized
// instead of returned raw.
func (s *Service) Preview(path string, maxBytes int) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("no archive open")
	}

	data, err := s.archive.ReadPath(path)
	if err != nil {
		return "", err
	}

	var doc any
	if json.Unmarshal(data, &doc) == nil {
		if pretty, err := json.MarshalIndent(doc, "", "  "); err == nil {
			data = pretty
		}
	}

	if isBinary(data) {
		return fmt.Sprintf("(binary entry, %d bytes)", len(data)), nil
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return string(data[:maxBytes]) + "\n… (truncated)", nil
	}
	return string(data), nil
}

// Version probes the named top-level entry for a version value under
// key.
func (s *Service) Version(entry, key string) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("no archive open")
	}
	doc, err := s.archive.ReadJSON(entry)
	if err != nil {
		return "", err
	}
	return inspect.VersionFrom(doc, key), nil
}

// Close releases the archive opened by Open and undoes any container
// staging. Closing a service with no open archive is a no-op.
func (s *Service) Close() error {
	if s.archive == nil {
		return nil
	}
	err := s.archive.Close()
	s.archive = nil
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return err
}

// isBinary reports whether data looks like binary rather than text.
func isBinary(data []byte) bool {
	sample := data
	if len(sample) > 8000 {
		sample = sample[:8000]
	}
	if strings.ContainsRune(string(sample), 0) {
		return true
	}
	return !utf8.Valid(sample)
}

// Compile-time check that Service implements ports.TUIService.
var _ ports.TUIService = (*Service)(nil)
