package mocks

import (
	"github.com/appver/appver/internal/config"
	"github.com/appver/appver/internal/ports"
)

// MockTUIService implements ports.TUIService for testing.
type MockTUIService struct {
	// ConfigResult is the config to return from LoadConfig
	ConfigResult *config.Config
	// ConfigError is the error to return from LoadConfig
	ConfigError error

	// ArchiveInfo is returned by Open
	ArchiveInfo ports.TUIArchiveInfo
	// OpenError is the error to return from Open
	OpenError error

	// Entries maps directory paths ("" for the root) to their listings
	Entries map[string][]ports.TUIEntryInfo
	// ListError is the error to return from List
	ListError error

	// Previews maps entry paths to preview text
	Previews map[string]string
	// PreviewError is the error to return from Preview
	PreviewError error

	// VersionResult is returned by Version
	VersionResult string
	// VersionError is the error to return from Version
	VersionError error

	// Call tracking
	LoadConfigCalls int
	OpenCalls       []string
	ListCalls       []string
	PreviewCalls    []string
	VersionCalls    []string
	CloseCalls      int
}

// NewMockTUIService creates a new mock TUI service.
func NewMockTUIService() *MockTUIService {
	return &MockTUIService{
		ConfigResult: &config.Config{},
		Entries:      make(map[string][]ports.TUIEntryInfo),
		Previews:     make(map[string]string),
	}
}

// LoadConfig loads the application configuration.
func (m *MockTUIService) LoadConfig() (*config.Config, error) {
	m.LoadConfigCalls++
	if m.ConfigError != nil {
		return nil, m.ConfigError
	}
	return m.ConfigResult, nil
}

// Open records the call and returns the configured archive info.
func (m *MockTUIService) Open(path string) (ports.TUIArchiveInfo, error) {
	m.OpenCalls = append(m.OpenCalls, path)
	if m.OpenError != nil {
		return ports.TUIArchiveInfo{}, m.OpenError
	}
	return m.ArchiveInfo, nil
}

// List returns the configured listing for dir.
func (m *MockTUIService) List(dir string) ([]ports.TUIEntryInfo, error) {
	m.ListCalls = append(m.ListCalls, dir)
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Entries[dir], nil
}

// Preview returns the configured preview for path.
func (m *MockTUIService) Preview(path string, maxBytes int) (string, error) {
	m.PreviewCalls = append(m.PreviewCalls, path)
	if m.PreviewError != nil {
		return "", m.PreviewError
	}
	return m.Previews[path], nil
}

// Version returns the configured version value.
func (m *MockTUIService) Version(entry, key string) (string, error) {
	m.VersionCalls = append(m.VersionCalls, entry+":"+key)
	if m.VersionError != nil {
		return "", m.VersionError
	}
	return m.VersionResult, nil
}

// Close records the call.
func (m *MockTUIService) Close() error {
	m.CloseCalls++
	return nil
}

// Compile-time check that MockTUIService implements ports.TUIService.
var _ ports.TUIService = (*MockTUIService)(nil)
