package asar

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeArchive assembles a well-formed asar file from a header JSON
// string and a data section, and writes it under dir.
func writeArchive(t *testing.T, dir, name, headerJSON string, data []byte) string {
	t.Helper()
	var buf bytes.Buffer
	u32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}
	jsonLen := uint32(len(headerJSON))
	u32(4)
	u32(jsonLen + 8)
	u32(jsonLen + 4)
	u32(jsonLen)
	buf.WriteString(headerJSON)
	buf.Write(data)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing test archive failed: %v", err)
	}
	return path
}

func TestOpenAndRead(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	header := `{"files":{"a.txt":{"size":5,"offset":"0"},"b.txt":{"size":3,"offset":"5"}}}`
	path := writeArchive(t, dir, "app.asar", header, []byte("helloabc"))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	if a.HeaderSize() != int64(len(header)) {
		t.Errorf("HeaderSize() = %d, expected %d", a.HeaderSize(), len(header))
	}
	wantData := int64(16 + len(header))
	if a.DataOffset() != wantData {
		t.Errorf("DataOffset() = %d, expected %d", a.DataOffset(), wantData)
	}

	got, err := a.Read("a.txt")
	if err != nil {
		t.Fatalf("Read(a.txt) failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Read(a.txt) = %q, expected %q", got, "hello")
	}

	got, err = a.Read("b.txt")
	if err != nil {
		t.Fatalf("Read(b.txt) failed: %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("Read(b.txt) = %q, expected %q", got, "abc")
	}
}

func TestOpenFormatErrors(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	u32 := func(v uint32) []byte {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		return b[:]
	}
	concat := func(parts ...[]byte) []byte {
		var all []byte
		for _, p := range parts {
			all = append(all, p...)
		}
		return all
	}

	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty file", nil},
		{"truncated size field", concat(u32(4), []byte{0xff, 0xff})},
		{"header size below framing", concat(u32(4), u32(7), make([]byte, 32))},
		{"header size zero", concat(u32(4), u32(0), make([]byte, 32))},
		{"truncated header json", concat(u32(4), u32(108), u32(104), u32(100), []byte(`{"files":{}}`))},
		{"invalid header json", concat(u32(4), u32(11), u32(7), u32(3), []byte("{{{"))},
		{"header without files table", concat(u32(4), u32(10), u32(6), u32(2), []byte("{}"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "-"))
			if err := os.WriteFile(path, tt.raw, 0644); err != nil {
				t.Fatalf("writing test file failed: %v", err)
			}
			_, err := Open(path)
			if !errors.Is(err, ErrFormat) {
				t.Errorf("Open() error = %v, expected ErrFormat", err)
			}
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(os.TempDir(), "no-such-archive.asar"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open() error = %v, expected fs.ErrNotExist", err)
	}
}

func TestEntryNotFound(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	header := `{"files":{"index.js":{"size":2,"offset":"0"}}}`
	path := writeArchive(t, dir, "app.asar", header, []byte("ok"))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	_, err = a.Read("package.json")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Read() error = %v, expected ErrEntryNotFound", err)
	}
	if !strings.Contains(err.Error(), "index.js") {
		t.Errorf("error %q does not list the available entries", err)
	}
}

func TestFlatLookupDoesNotDescend(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	header := `{"files":{"app":{"files":{"package.json":{"size":19,"offset":"0"}}}}}`
	path := writeArchive(t, dir, "app.asar", header, []byte(`{"version":"1.2.3"}`))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	// The nested file is invisible to the flat lookup.
	if _, err := a.Read("package.json"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("flat Read() error = %v, expected ErrEntryNotFound", err)
	}
	if _, err := a.Read("app/package.json"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("flat Read() with slash error = %v, expected ErrEntryNotFound", err)
	}

	// Reading a directory is not a lookup failure.
	if _, err := a.Read("app"); !errors.Is(err, ErrNotFile) {
		t.Errorf("Read(app) error = %v, expected ErrNotFile", err)
	}

	got, err := a.ReadPath("app/package.json")
	if err != nil {
		t.Fatalf("ReadPath failed: %v", err)
	}
	if string(got) != `{"version":"1.2.3"}` {
		t.Errorf("ReadPath() = %q, expected %q", got, `{"version":"1.2.3"}`)
	}
}

func TestReadJSON(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	t.Run("object document", func(t *testing.T) {
		doc := `{"name":"app","version":"2.0.1"}`
		header := `{"files":{"package.json":{"size":32,"offset":"0"}}}`
		path := writeArchive(t, dir, "obj.asar", header, []byte(doc))

		a, err := Open(path)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer a.Close()

		got, err := a.ReadJSON("package.json")
		if err != nil {
			t.Fatalf("ReadJSON failed: %v", err)
		}
		obj, ok := got.(map[string]any)
		if !ok {
			t.Fatalf("ReadJSON() = %T, expected map[string]any", got)
		}
		if obj["version"] != "2.0.1" {
			t.Errorf("version = %v, expected %q", obj["version"], "2.0.1")
		}
	})

	t.Run("bare scalar document", func(t *testing.T) {
		header := `{"files":{"package.json":{"size":2,"offset":"0"}}}`
		path := writeArchive(t, dir, "scalar.asar", header, []byte("1\n"))

		a, err := Open(path)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer a.Close()

		got, err := a.ReadJSON("package.json")
		if err != nil {
			t.Fatalf("ReadJSON failed: %v", err)
		}
		if got != float64(1) {
			t.Errorf("ReadJSON() = %v (%T), expected 1", got, got)
		}
	})

	t.Run("invalid document", func(t *testing.T) {
		header := `{"files":{"package.json":{"size":4,"offset":"0"}}}`
		path := writeArchive(t, dir, "bad.asar", header, []byte("}{}{"))

		a, err := Open(path)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer a.Close()

		if _, err := a.ReadJSON("package.json"); !errors.Is(err, ErrFormat) {
			t.Errorf("ReadJSON() error = %v, expected ErrFormat", err)
		}
	})

	t.Run("nested document", func(t *testing.T) {
		doc := `{"version":"3.3.3"}`
		header := `{"files":{"app":{"files":{"package.json":{"size":19,"offset":"0"}}}}}`
		path := writeArchive(t, dir, "nested.asar", header, []byte(doc))

		a, err := Open(path)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer a.Close()

		got, err := a.ReadJSONPath("app/package.json")
		if err != nil {
			t.Fatalf("ReadJSONPath failed: %v", err)
		}
		obj, ok := got.(map[string]any)
		if !ok {
			t.Fatalf("ReadJSONPath() = %T, expected map[string]any", got)
		}
		if obj["version"] != "3.3.3" {
			t.Errorf("version = %v, expected %q", obj["version"], "3.3.3")
		}

		if _, err := a.ReadJSON("app/package.json"); !errors.Is(err, ErrEntryNotFound) {
			t.Errorf("ReadJSON() error = %v, expected ErrEntryNotFound for nested path", err)
		}
	})
}

func TestReadTruncatedData(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	// The entry claims 100 bytes but the data section holds 5.
	header := `{"files":{"big.bin":{"size":100,"offset":"0"}}}`
	path := writeArchive(t, dir, "short.asar", header, []byte("12345"))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	if _, err := a.Read("big.bin"); !errors.Is(err, ErrFormat) {
		t.Errorf("Read() error = %v, expected ErrFormat", err)
	}
}

func TestReadBadOffset(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	tests := []struct {
		name   string
		offset string
	}{
		{"hex offset", "0x10"},
		{"negative offset", "-1"},
		{"empty offset", ""},
		{"non-numeric offset", "ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := `{"files":{"f":{"size":1,"offset":"` + tt.offset + `"}}}`
			path := writeArchive(t, dir, strings.ReplaceAll(tt.name, " ", "-")+".asar", header, []byte("x"))

			a, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer a.Close()

			if _, err := a.Read("f"); !errors.Is(err, ErrFormat) {
				t.Errorf("Read() error = %v, expected ErrFormat", err)
			}
		})
	}
}

func TestRepeatedReads(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	header := `{"files":{"a":{"size":3,"offset":"0"},"b":{"size":3,"offset":"3"}}}`
	path := writeArchive(t, dir, "app.asar", header, []byte("foobar"))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	// Reads are independent of cursor position left by earlier reads.
	first, err := a.Read("b")
	if err != nil {
		t.Fatalf("first Read failed: %v", err)
	}
	if _, err := a.Read("a"); err != nil {
		t.Fatalf("interleaved Read failed: %v", err)
	}
	second, err := a.Read("b")
	if err != nil {
		t.Fatalf("second Read failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("repeated Read() = %q then %q, expected identical bytes", first, second)
	}
}

func TestLookupInvalidPath(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	header := `{"files":{"app":{"files":{"a":{"size":1,"offset":"0"}}}}}`
	path := writeArchive(t, dir, "app.asar", header, []byte("x"))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	for _, p := range []string{"", "/app", "app/", "./a", "app/../a", "app/a/b"} {
		if _, err := a.Lookup(p); err == nil {
			t.Errorf("Lookup(%q) succeeded, expected error", p)
		}
	}

	if _, err := a.Lookup("app/missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Lookup() error = %v, expected ErrEntryNotFound", err)
	}
}

func TestSymlinkEntry(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	header := `{"files":{"current":{"link":"versions/1.0"},"a":{"size":1,"offset":"0"}}}`
	path := writeArchive(t, dir, "app.asar", header, []byte("x"))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	e, err := a.Entry("current")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if !e.IsLink() {
		t.Error("IsLink() = false, expected true")
	}
	if e.IsDir() {
		t.Error("IsDir() = true, expected false")
	}
	if _, err := a.Read("current"); !errors.Is(err, ErrNotFile) {
		t.Errorf("Read() error = %v, expected ErrNotFile", err)
	}
}

func TestWalkOrder(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	header := `{"files":{"z.txt":{"size":1,"offset":"0"},"app":{"files":{"b":{"size":1,"offset":"1"},"a":{"size":1,"offset":"2"}}}}}`
	path := writeArchive(t, dir, "app.asar", header, []byte("xyz"))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	var visited []string
	err = a.Root().Walk(func(p string, e *Entry) error {
		visited = append(visited, p)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	want := []string{"app", "app/a", "app/b", "z.txt"}
	if len(visited) != len(want) {
		t.Fatalf("Walk visited %v, expected %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("Walk order[%d] = %q, expected %q", i, visited[i], want[i])
		}
	}
}

func TestEntryMetadata(t *testing.T) {
	dir, err := os.MkdirTemp("", "asar-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	header := `{"files":{"bin":{"size":2,"offset":"0","executable":true,"unpacked":true,"integrity":{"algorithm":"SHA256","hash":"ab","blockSize":4194304,"blocks":["ab"]}}}}`
	path := writeArchive(t, dir, "app.asar", header, []byte("go"))

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	e, err := a.Entry("bin")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if !e.Executable {
		t.Error("Executable = false, expected true")
	}
	if !e.Unpacked {
		t.Error("Unpacked = false, expected true")
	}
	if e.Integrity == nil || e.Integrity.Algorithm != "SHA256" {
		t.Errorf("Integrity = %+v, expected SHA256 metadata", e.Integrity)
	}
	off, err := e.DataOffset()
	if err != nil {
		t.Fatalf("DataOffset failed: %v", err)
	}
	if off != 0 {
		t.Errorf("DataOffset() = %d, expected 0", off)
	}
}
