package ports

// DiskImage abstracts macOS disk image operations for testability.
// Production code uses HdiutilService adapter; tests use MockDiskImage.
type DiskImage interface {
	// Available reports whether disk images can be attached on this
	// system.
	Available() bool

	// Attach mounts the disk image at dmgPath and returns the mount
	// point of its first mounted volume.
	Attach(dmgPath string) (string, error)

	// Detach unmounts the volume at mountPoint.
	Detach(mountPoint string) error
}
