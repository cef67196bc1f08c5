package mocks

import (
	"github.com/appver/appver/internal/ports"
)

// MockDiskImage implements ports.DiskImage for testing.
type MockDiskImage struct {
	// AvailableResult is returned by Available
	AvailableResult bool
	// AttachResults maps image paths to mount points
	AttachResults map[string]string
	// AttachCalls records image paths passed to Attach
	AttachCalls []string
	// DetachCalls records mount points passed to Detach
	DetachCalls []string
	// Errors maps method names to errors
	Errors map[string]error
}

// NewMockDiskImage creates a new mock disk image service that reports
// itself available.
func NewMockDiskImage() *MockDiskImage {
	return &MockDiskImage{
		AvailableResult: true,
		AttachResults:   make(map[string]string),
		Errors:          make(map[string]error),
	}
}

// Available reports the configured availability.
func (m *MockDiskImage) Available() bool {
	return m.AvailableResult
}

// Attach returns the configured mount point for dmgPath.
func (m *MockDiskImage) Attach(dmgPath string) (string, error) {
	m.AttachCalls = append(m.AttachCalls, dmgPath)
	if err, ok := m.Errors["Attach"]; ok {
		return "", err
	}
	return m.AttachResults[dmgPath], nil
}

// Detach records the call and returns a configured error, if any.
func (m *MockDiskImage) Detach(mountPoint string) error {
	m.DetachCalls = append(m.DetachCalls, mountPoint)
	if err, ok := m.Errors["Detach"]; ok {
		return err
	}
	return nil
}

// Compile-time check that MockDiskImage implements ports.DiskImage.
var _ ports.DiskImage = (*MockDiskImage)(nil)
