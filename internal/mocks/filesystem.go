// Package mocks provides mock implementations for testing.
package mocks

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/appver/appver/internal/ports"
)

// MockFileSystem implements ports.FileSystem for testing.
type MockFileSystem struct {
	// Files maps paths to file contents for Open/Stat
	Files map[string][]byte
	// Dirs maps paths to directory entries for ReadDir
	Dirs map[string][]os.DirEntry
	// Stats maps paths to FileInfo for Stat
	Stats map[string]os.FileInfo
	// Errors maps paths to errors (for simulating failures)
	Errors map[string]error

	// RemoveAllCalls records paths passed to RemoveAll
	RemoveAllCalls []string

	tempCount int
}

// NewMockFileSystem creates a new mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:  make(map[string][]byte),
		Dirs:   make(map[string][]os.DirEntry),
		Stats:  make(map[string]os.FileInfo),
		Errors: make(map[string]error),
	}
}

// ReadDir reads the named directory and returns directory entries.
func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	if entries, ok := m.Dirs[name]; ok {
		return entries, nil
	}
	return nil, os.ErrNotExist
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	if info, ok := m.Stats[name]; ok {
		return info, nil
	}
	// Check if we have file content (implies file exists)
	if content, ok := m.Files[name]; ok {
		return &mockFileInfo{name: filepath.Base(name), size: int64(len(content))}, nil
	}
	// Registered directories exist too
	if _, ok := m.Dirs[name]; ok {
		return &mockFileInfo{name: filepath.Base(name), isDir: true}, nil
	}
	return nil, os.ErrNotExist
}

// MkdirTemp returns a deterministic fresh path under dir without
// touching the real filesystem. The n-th call yields <dir>/<pattern>
// with any "*" replaced by n.
func (m *MockFileSystem) MkdirTemp(dir, pattern string) (string, error) {
	if err, ok := m.Errors["MkdirTemp"]; ok {
		return "", err
	}
	if dir == "" {
		dir = os.TempDir()
	}
	m.tempCount++
	name := strings.ReplaceAll(pattern, "*", fmt.Sprintf("%d", m.tempCount))
	if name == pattern {
		name = fmt.Sprintf("%s%d", pattern, m.tempCount)
	}
	path := filepath.Join(dir, name)
	m.Stats[path] = &mockFileInfo{name: name, isDir: true}
	return path, nil
}

// RemoveAll removes path and any children it contains.
func (m *MockFileSystem) RemoveAll(path string) error {
	m.RemoveAllCalls = append(m.RemoveAllCalls, path)
	if err, ok := m.Errors[path]; ok {
		return err
	}
	// Remove all entries with this prefix
	for k := range m.Files {
		if strings.HasPrefix(k, path) {
			delete(m.Files, k)
		}
	}
	for k := range m.Stats {
		if strings.HasPrefix(k, path) {
			delete(m.Stats, k)
		}
	}
	return nil
}

// Open opens the named file for reading.
func (m *MockFileSystem) Open(name string) (fs.File, error) {
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	content, ok := m.Files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &mockFile{name: name, content: content}, nil
}

// NewMockDirEntry creates an os.DirEntry for seeding MockFileSystem.Dirs.
func NewMockDirEntry(name string, isDir bool) os.DirEntry {
	return &mockDirEntry{name: name, isDir: isDir}
}

// mockDirEntry implements os.DirEntry for testing.
type mockDirEntry struct {
	name  string
	isDir bool
}

func (d *mockDirEntry) Name() string { return d.name }
func (d *mockDirEntry) IsDir() bool  { return d.isDir }
func (d *mockDirEntry) Type() fs.FileMode {
	if d.isDir {
		return fs.ModeDir
	}
	return 0
}
func (d *mockDirEntry) Info() (fs.FileInfo, error) {
	return &mockFileInfo{name: d.name, isDir: d.isDir}, nil
}

// mockFileInfo implements os.FileInfo for testing.
type mockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

// mockFile implements fs.File for testing.
type mockFile struct {
	name    string
	content []byte
	offset  int
}

func (f *mockFile) Stat() (fs.FileInfo, error) {
	return &mockFileInfo{name: f.name, size: int64(len(f.content))}, nil
}

func (f *mockFile) Read(p []byte) (int, error) {
	if f.offset >= len(f.content) {
		return 0, io.EOF
	}
	n := copy(p, f.content[f.offset:])
	f.offset += n
	return n, nil
}

func (f *mockFile) Close() error { return nil }

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
