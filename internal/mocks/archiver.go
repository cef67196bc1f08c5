package mocks

import (
	"github.com/appver/appver/internal/ports"
)

// ExtractCall records the arguments of an Extract invocation.
type ExtractCall struct {
	ZipPath string
	DestDir string
}

// MockArchiver implements ports.Archiver for testing.
type MockArchiver struct {
	// RootsResults maps zip paths to top-level names
	RootsResults map[string][]string
	// ExtractCalls records Extract invocations
	ExtractCalls []ExtractCall
	// Errors maps method names to errors
	Errors map[string]error
}

// NewMockArchiver creates a new mock archiver.
func NewMockArchiver() *MockArchiver {
	return &MockArchiver{
		RootsResults: make(map[string][]string),
		Errors:       make(map[string]error),
	}
}

// Roots returns the configured top-level names for zipPath.
func (m *MockArchiver) Roots(zipPath string) ([]string, error) {
	if err, ok := m.Errors["Roots"]; ok {
		return nil, err
	}
	return m.RootsResults[zipPath], nil
}

// Extract records the call and returns a configured error, if any.
func (m *MockArchiver) Extract(zipPath, destDir string) error {
	m.ExtractCalls = append(m.ExtractCalls, ExtractCall{ZipPath: zipPath, DestDir: destDir})
	if err, ok := m.Errors["Extract"]; ok {
		return err
	}
	return nil
}

// Compile-time check that MockArchiver implements ports.Archiver.
var _ ports.Archiver = (*MockArchiver)(nil)
