// Package resolve locates files whose request path passes through a
// container such as a zip archive or a disk image.
//
// A request path like /downloads/App.zip/App.app/Contents/Resources/app.asar
// names a file inside a container. Resolve walks the path components,
// finds the first .zip or .dmg component that is a real file, stages
// its contents (extracting the archive to a temporary directory or
// mounting the image), and returns the on-disk path of the requested
// file together with a release function that undoes the staging.
package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/appver/appver/internal/adapters/hdiutil"
	"github.com/appver/appver/internal/adapters/osfs"
	"github.com/appver/appver/internal/adapters/ziparchiver"
	"github.com/appver/appver/internal/ports"
)

// Options configures a resolve operation.
type Options struct {
	// SkipSingleRootDir treats the single root directory of a zip
	// archive as transparent: the inner path is interpreted relative
	// to that directory. Resolution fails when the archive root holds
	// anything other than exactly one directory.
	SkipSingleRootDir bool
	// TempDir is the parent directory for zip extraction. Empty means
	// the system temp directory.
	TempDir string
}

// Service provides path resolution with injected dependencies.
type Service struct {
	fs       ports.FileSystem
	archiver ports.Archiver
	dmg      ports.DiskImage
}

// NewService creates a new resolve service with the given dependencies.
func NewService(fs ports.FileSystem, archiver ports.Archiver, dmg ports.DiskImage) *Service {
	return &Service{
		fs:       fs,
		archiver: archiver,
		dmg:      dmg,
	}
}

// NewDefaultService creates a resolve service with real production dependencies.
func NewDefaultService() *Service {
	return NewService(
		osfs.New(),
		ziparchiver.New(),
		hdiutil.New(),
	)
}

// Resolve returns the on-disk path of the file named by path. When the
// path passes through a container the container is staged and the
// returned release function must be called once the file is no longer
// needed. For plain paths the release function is a no-op.
//
// Only one container level is resolved: a zip inside a disk image is
// not unpacked further.
func (s *Service) Resolve(path string, opts Options) (string, func(), error) {
	info, statErr := s.fs.Stat(path)
	if statErr == nil {
		if info.IsDir() {
			return "", nil, fmt.Errorf("%s is a directory, not a file", path)
		}
		return path, func() {}, nil
	}

	container, inner := s.splitContainer(path)
	if container == "" {
		return "", nil, fmt.Errorf("resolving %s: %w", path, statErr)
	}

	if hasExt(container, ".zip") {
		return s.resolveZip(container, inner, opts)
	}
	return s.resolveDiskImage(container, inner)
}

// splitContainer walks the components of path looking for a zip or
// disk image file on disk. It returns the container path and the
// remaining inner path, or empty strings when no container is present.
func (s *Service) splitContainer(path string) (container, inner string) {
	sep := string(filepath.Separator)
	segments := strings.Split(path, sep)
	for i, seg := range segments {
		if !hasExt(seg, ".zip") && !hasExt(seg, ".dmg") {
			continue
		}
		prefix := strings.Join(segments[:i+1], sep)
		rest := strings.Join(segments[i+1:], sep)
		if prefix == "" || rest == "" {
			continue
		}
		info, err := s.fs.Stat(prefix)
		if err != nil || info.IsDir() {
			// A directory named like a container is just a directory.
			continue
		}
		return prefix, rest
	}
	return "", ""
}

func (s *Service) resolveZip(zipPath, inner string, opts Options) (string, func(), error) {
	if opts.SkipSingleRootDir {
		// Fail before extracting when the archive cannot satisfy the
		// single-root requirement.
		roots, err := s.archiver.Roots(zipPath)
		if err != nil {
			return "", nil, fmt.Errorf("listing %s: %w", zipPath, err)
		}
		if len(roots) != 1 {
			return "", nil, fmt.Errorf(
				"expected a single root entry in %s, found %d (%s)",
				zipPath, len(roots), strings.Join(roots, ", "))
		}
	}

	dest, err := s.fs.MkdirTemp(opts.TempDir, "appver-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating extraction dir: %w", err)
	}
	release := func() { s.fs.RemoveAll(dest) }

	if err := s.archiver.Extract(zipPath, dest); err != nil {
		release()
		return "", nil, fmt.Errorf("extracting %s: %w", zipPath, err)
	}

	if opts.SkipSingleRootDir {
		// The extracted tree is authoritative for the root name.
		entries, err := s.fs.ReadDir(dest)
		if err != nil {
			release()
			return "", nil, fmt.Errorf("reading extraction dir: %w", err)
		}
		if len(entries) != 1 || !entries[0].IsDir() {
			release()
			return "", nil, fmt.Errorf("%s does not extract to a single root directory", zipPath)
		}
		inner = filepath.Join(entries[0].Name(), inner)
	}

	resolved := filepath.Join(dest, inner)
	info, err := s.fs.Stat(resolved)
	if err != nil {
		release()
		return "", nil, fmt.Errorf("resolving %s inside %s: %w", inner, zipPath, err)
	}
	if info.IsDir() {
		release()
		return "", nil, fmt.Errorf("%s inside %s is a directory, not a file", inner, zipPath)
	}
	return resolved, release, nil
}

func (s *Service) resolveDiskImage(dmgPath, inner string) (string, func(), error) {
	if !s.dmg.Available() {
		return "", nil, fmt.Errorf("cannot mount %s: disk image mounting is not available on this system", dmgPath)
	}

	mount, err := s.dmg.Attach(dmgPath)
	if err != nil {
		return "", nil, fmt.Errorf("mounting %s: %w", dmgPath, err)
	}
	release := func() { s.dmg.Detach(mount) }

	resolved := filepath.Join(mount, inner)
	info, err := s.fs.Stat(resolved)
	if err != nil {
		release()
		return "", nil, fmt.Errorf("resolving %s inside %s: %w", inner, dmgPath, err)
	}
	if info.IsDir() {
		release()
		return "", nil, fmt.Errorf("%s inside %s is a directory, not a file", inner, dmgPath)
	}
	return resolved, release, nil
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

// ============================================================================
// Backward-compatible package-level functions using default service
// ============================================================================

var defaultService = NewDefaultService()

// Resolve resolves path using the default service.
func Resolve(path string, opts Options) (string, func(), error) {
	return defaultService.Resolve(path, opts)
}
