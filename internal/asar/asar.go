// Package asar reads the header and embedded files of Electron asar
// archives without unpacking them.
//
// An asar file is a pickle-framed JSON header describing a virtual file
// tree, followed by a data section holding the concatenated bytes of every
// file in the tree. Each file entry records its byte size and its offset
// relative to the start of the data section, so a single entry can be
// pulled out with one seek and one bounded read.
package asar

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// The header block uses Chromium's pickle framing: a 4-byte field we do
// not need, a 4-byte unsigned little-endian length covering the rest of
// the pickle block, then two nested length fields (8 bytes total) in
// front of the JSON payload. The JSON length is the block length minus
// those framing bytes.
const (
	// sizeFieldOffset is the file position of the pickle block length.
	sizeFieldOffset = 4

	// headerPadding is the size of the nested pickle length fields
	// between the block length and the JSON payload. They are skipped
	// unread and subtracted from the block length to get the JSON size.
	headerPadding = 8
)

// Sentinel errors. Returned errors wrap these with context; match them
// with errors.Is. Failures to open the file itself wrap the underlying
// *os.PathError instead, so os.IsNotExist keeps working.
var (
	// ErrFormat reports a structural violation of the asar layout:
	// truncated framing, an impossible header size, malformed header
	// JSON, or entry data that extends past the end of the file.
	ErrFormat = errors.New("asar: invalid archive format")

	// ErrEntryNotFound reports that the requested name has no entry in
	// the header's file table.
	ErrEntryNotFound = errors.New("asar: entry not found")

	// ErrNotFile reports that the entry exists but is a directory or a
	// symlink and therefore has no byte range in the data section.
	ErrNotFile = errors.New("asar: entry is not a file")
)

// Integrity is the per-file checksum metadata newer Electron versions
// embed in the header. It is decoded for display; nothing here verifies
// the blocks.
type Integrity struct {
	Algorithm string   `json:"algorithm"`
	Hash      string   `json:"hash"`
	BlockSize int      `json:"blockSize"`
	Blocks    []string `json:"blocks"`
}

// Entry is one node of the decoded header tree. A directory carries a
// non-nil Files map, a file carries Size and Offset, a symlink carries
// Link. Offset stays in the decimal-string form the format uses and is
// parsed on demand.
type Entry struct {
	Files      map[string]*Entry `json:"files,omitempty"`
	Size       uint64            `json:"size,omitempty"`
	Offset     string            `json:"offset,omitempty"`
	Unpacked   bool              `json:"unpacked,omitempty"`
	Executable bool              `json:"executable,omitempty"`
	Link       string            `json:"link,omitempty"`
	Integrity  *Integrity        `json:"integrity,omitempty"`
}

// IsDir reports whether the entry is a directory node.
func (e *Entry) IsDir() bool { return e.Files != nil }

// IsLink reports whether the entry is a symlink node.
func (e *Entry) IsLink() bool { return !e.IsDir() && e.Link != "" }

// DataOffset parses the entry's offset string into the unsigned byte
// offset relative to the archive's data section.
func (e *Entry) DataOffset() (uint64, error) {
	off, err := strconv.ParseUint(e.Offset, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: entry offset %q is not a decimal integer", ErrFormat, e.Offset)
	}
	return off, nil
}

// Names returns the entry's direct children sorted by name. It returns
// nil for files and symlinks.
func (e *Entry) Names() []string {
	if e.Files == nil {
		return nil
	}
	names := make([]string, 0, len(e.Files))
	for name := range e.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk visits every entry below e in sorted depth-first order, calling
// fn with the slash-joined path relative to e. Returning an error from
// fn stops the walk.
func (e *Entry) Walk(fn func(path string, entry *Entry) error) error {
	return walkEntry("", e, fn)
}

func walkEntry(prefix string, dir *Entry, fn func(string, *Entry) error) error {
	for _, name := range dir.Names() {
		child := dir.Files[name]
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		if err := fn(path, child); err != nil {
			return err
		}
		if child.IsDir() {
			if err := walkEntry(path, child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Archive is an open asar file. It owns the underlying file handle;
// Close releases it. An Archive is not safe for concurrent use.
type Archive struct {
	f          *os.File
	path       string
	root       *Entry
	headerSize int64 // bytes of header JSON
	dataOffset int64 // absolute position where the data section begins
	fileSize   int64
}

// Open opens the archive at path and parses its header. The returned
// Archive holds an open handle until Close; on any parse failure the
// handle is closed before the error is returned.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	root, headerSize, dataOffset, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Archive{
		f:          f,
		path:       path,
		root:       root,
		headerSize: headerSize,
		dataOffset: dataOffset,
		fileSize:   info.Size(),
	}, nil
}

// readHeader decodes the pickle-framed JSON header and reports where the
// data section begins.
func readHeader(r io.ReadSeeker) (root *Entry, headerSize, dataOffset int64, err error) {
	if _, err := r.Seek(sizeFieldOffset, io.SeekStart); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: seeking header size field: %v", ErrFormat, err)
	}

	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: truncated or corrupt header: %v", ErrFormat, err)
	}
	rawSize := binary.LittleEndian.Uint32(sizeBuf[:])
	if rawSize < headerPadding {
		return nil, 0, 0, fmt.Errorf("%w: header block of %d bytes is smaller than its %d framing bytes", ErrFormat, rawSize, headerPadding)
	}
	headerSize = int64(rawSize) - headerPadding

	// Skip the nested length fields without reading them.
	if _, err := r.Seek(headerPadding, io.SeekCurrent); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: skipping header framing: %v", ErrFormat, err)
	}

	headerJSON := make([]byte, headerSize)
	if n, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: header declares %d bytes of JSON but only %d are present", ErrFormat, headerSize, n)
	}

	root = &Entry{}
	if err := json.Unmarshal(headerJSON, root); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: invalid header JSON: %v", ErrFormat, err)
	}
	if root.Files == nil {
		return nil, 0, 0, fmt.Errorf("%w: header has no files table", ErrFormat)
	}

	// The cursor sits exactly at the end of the header, which is where
	// the data section starts.
	dataOffset, err = r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: locating data section: %v", ErrFormat, err)
	}
	return root, headerSize, dataOffset, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error { return a.f.Close() }

// Path returns the path the archive was opened from.
func (a *Archive) Path() string { return a.path }

// Size returns the total size of the archive file in bytes.
func (a *Archive) Size() int64 { return a.fileSize }

// Root returns the root directory entry of the header tree.
func (a *Archive) Root() *Entry { return a.root }

// HeaderSize returns the size of the header JSON in bytes.
func (a *Archive) HeaderSize() int64 { return a.headerSize }

// DataOffset returns the absolute file position where the data section
// begins. Entry offsets are relative to this position.
func (a *Archive) DataOffset() int64 { return a.dataOffset }

// Entry looks up name directly under the archive's top-level files
// table. The lookup is flat: it does not descend into directories and
// does not interpret path separators. Use Lookup for nested paths.
func (a *Archive) Entry(name string) (*Entry, error) {
	e, ok := a.root.Files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (top-level entries: %s)", ErrEntryNotFound, name, strings.Join(a.root.Names(), ", "))
	}
	return e, nil
}

// Lookup resolves a slash-separated path through nested directories.
// This is a separate capability from the flat Entry lookup; an entry
// name that happens to contain a slash is only reachable via Entry.
func (a *Archive) Lookup(path string) (*Entry, error) {
	segments := strings.Split(path, "/")
	cur := a.root
	for i, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return nil, fmt.Errorf("asar: invalid entry path %q", path)
		}
		if !cur.IsDir() {
			return nil, fmt.Errorf("%w: %q (%q is not a directory)", ErrEntryNotFound, path, strings.Join(segments[:i], "/"))
		}
		next, ok := cur.Files[seg]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, path)
		}
		cur = next
	}
	return cur, nil
}

// Read returns the raw bytes of the named top-level entry (flat lookup,
// see Entry).
func (a *Archive) Read(name string) ([]byte, error) {
	e, err := a.Entry(name)
	if err != nil {
		return nil, err
	}
	return a.readEntry(name, e)
}

// ReadPath returns the raw bytes of the entry at a slash-separated path
// (nested lookup, see Lookup).
func (a *Archive) ReadPath(path string) ([]byte, error) {
	e, err := a.Lookup(path)
	if err != nil {
		return nil, err
	}
	return a.readEntry(path, e)
}

// ReadJSON reads the named top-level entry and parses it as JSON. The
// result can be any JSON value, not only an object.
func (a *Archive) ReadJSON(name string) (any, error) {
	raw, err := a.Read(name)
	if err != nil {
		return nil, err
	}
	return decodeJSON(name, raw)
}

// ReadJSONPath reads the entry at a slash-separated path and parses it
// as JSON.
func (a *Archive) ReadJSONPath(path string) (any, error) {
	raw, err := a.ReadPath(path)
	if err != nil {
		return nil, err
	}
	return decodeJSON(path, raw)
}

func decodeJSON(name string, raw []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: entry %q is not valid JSON: %v", ErrFormat, name, err)
	}
	return doc, nil
}

// readEntry reads the byte range described by e from the data section.
func (a *Archive) readEntry(name string, e *Entry) ([]byte, error) {
	if e.IsDir() || e.IsLink() {
		return nil, fmt.Errorf("%w: %q", ErrNotFile, name)
	}

	off, err := e.DataOffset()
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}
	end := off + e.Size
	if end < off || end > uint64(a.fileSize-a.dataOffset) {
		return nil, fmt.Errorf("%w: truncated entry data: %q wants %d bytes at data offset %d but the data section holds %d",
			ErrFormat, name, e.Size, off, a.fileSize-a.dataOffset)
	}

	abs := a.dataOffset + int64(off)
	if _, err := a.f.Seek(abs, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking entry %q to offset %d: %w", name, abs, err)
	}
	buf := make([]byte, e.Size)
	if n, err := io.ReadFull(a.f, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated entry data: %q wants %d bytes at offset %d, got %d", ErrFormat, name, e.Size, abs, n)
	}
	return buf, nil
}
