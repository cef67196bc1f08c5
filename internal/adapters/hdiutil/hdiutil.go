// Package hdiutil provides a disk image adapter using exec.Command.
package hdiutil

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os/exec"
	"strings"

	"github.com/appver/appver/internal/ports"
)

// HdiutilService implements ports.DiskImage using exec.Command.
type HdiutilService struct {
	// hdiutilPath is the path to the hdiutil binary. Defaults to "hdiutil".
	hdiutilPath string
}

// Option is a functional option for configuring HdiutilService.
type Option func(*HdiutilService)

// WithHdiutilPath sets a custom path to the hdiutil binary.
func WithHdiutilPath(path string) Option {
	return func(s *HdiutilService) {
		s.hdiutilPath = path
	}
}

// New creates a new HdiutilService adapter.
func New(opts ...Option) *HdiutilService {
	s := &HdiutilService{
		hdiutilPath: "hdiutil",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether hdiutil can be found on this system.
func (s *HdiutilService) Available() bool {
	_, err := exec.LookPath(s.hdiutilPath)
	return err == nil
}

// Attach mounts the disk image read-only and returns the mount point of
// its first mounted volume.
func (s *HdiutilService) Attach(dmgPath string) (string, error) {
	cmd := exec.Command(s.hdiutilPath, "attach", "-plist", "-nobrowse", "-readonly", dmgPath)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("hdiutil attach failed: %w: %s", err, string(out))
	}

	mount, err := parseMountPoint(out)
	if err != nil {
		return "", fmt.Errorf("parsing hdiutil output for %s: %w", dmgPath, err)
	}
	return mount, nil
}

// Detach unmounts the volume at mountPoint. A busy volume is retried
// once with -force.
func (s *HdiutilService) Detach(mountPoint string) error {
	cmd := exec.Command(s.hdiutilPath, "detach", mountPoint)
	if err := cmd.Run(); err == nil {
		return nil
	}

	cmd = exec.Command(s.hdiutilPath, "detach", "-force", mountPoint)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("hdiutil detach failed: %w: %s", err, string(out))
	}
	return nil
}

// parseMountPoint extracts the first mount-point value from hdiutil's
// plist output. The plist is a stream of <key>name</key><string>value</string>
// pairs; only the pair following a mount-point key matters here.
func parseMountPoint(plist []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(plist))

	wantValue := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("no mounted volume in attach output")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "key":
			var name string
			if err := dec.DecodeElement(&name, &start); err != nil {
				return "", fmt.Errorf("malformed attach output: %w", err)
			}
			wantValue = strings.TrimSpace(name) == "mount-point"
		case "string":
			if !wantValue {
				continue
			}
			var value string
			if err := dec.DecodeElement(&value, &start); err != nil {
				return "", fmt.Errorf("malformed attach output: %w", err)
			}
			if value != "" {
				return value, nil
			}
			wantValue = false
		default:
			// Values of other types end the pair.
			wantValue = false
		}
	}
}

// Compile-time check that HdiutilService implements ports.DiskImage.
var _ ports.DiskImage = (*HdiutilService)(nil)
