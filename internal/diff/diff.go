// Package diff compares the entry trees and entry contents of two
// asar archives.
package diff

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/appver/appver/internal/asar"
)

// FileChange represents one entry that differs between two archives.
type FileChange struct {
	Path   string
	Status rune // 'M' modified, 'A' added, 'D' deleted
	Size1  uint64
	Size2  uint64
}

// Result contains the comparison between two archives.
type Result struct {
	Path1    string
	Path2    string
	Changes  []FileChange
	Added    int
	Modified int
	Deleted  int
}

// Compare compares the entry trees of the archives at path1 and path2.
// Entries are matched by their slash-separated path; directories are
// transparent. Modified entries are detected by size, then by header
// integrity hashes when both archives carry them, and finally by
// content comparison.
func Compare(path1, path2 string) (*Result, error) {
	a1, err := asar.Open(path1)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path1, err)
	}
	defer a1.Close()

	a2, err := asar.Open(path2)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path2, err)
	}
	defer a2.Close()

	files1 := collectFiles(a1)
	files2 := collectFiles(a2)

	result := &Result{
		Path1: path1,
		Path2: path2,
	}

	allPaths := make(map[string]bool)
	for path := range files1 {
		allPaths[path] = true
	}
	for path := range files2 {
		allPaths[path] = true
	}

	for path := range allPaths {
		e1, in1 := files1[path]
		e2, in2 := files2[path]

		var change FileChange
		change.Path = path

		switch {
		case in1 && !in2:
			change.Status = 'D'
			change.Size1 = e1.Size
			result.Deleted++
		case !in1 && in2:
			change.Status = 'A'
			change.Size2 = e2.Size
			result.Added++
		default:
			differ, err := entriesDiffer(a1, e1, a2, e2, path)
			if err != nil {
				return nil, err
			}
			if !differ {
				continue
			}
			change.Status = 'M'
			change.Size1 = e1.Size
			change.Size2 = e2.Size
			result.Modified++
		}

		result.Changes = append(result.Changes, change)
	}

	// Sort changes: M, A, D then by path
	sort.Slice(result.Changes, func(i, j int) bool {
		if result.Changes[i].Status != result.Changes[j].Status {
			order := map[rune]int{'M': 0, 'A': 1, 'D': 2}
			return order[result.Changes[i].Status] < order[result.Changes[j].Status]
		}
		return result.Changes[i].Path < result.Changes[j].Path
	})

	return result, nil
}

// collectFiles flattens an archive's tree into a path-keyed map of
// file and symlink entries.
func collectFiles(a *asar.Archive) map[string]*asar.Entry {
	files := make(map[string]*asar.Entry)
	_ = a.Root().Walk(func(path string, e *asar.Entry) error {
		if e.IsDir() {
			return nil
		}
		files[path] = e
		return nil
	})
	return files
}

// entriesDiffer reports whether the entry at path differs between the
// two archives. Content is only read when cheaper checks cannot decide.
func entriesDiffer(a1 *asar.Archive, e1 *asar.Entry, a2 *asar.Archive, e2 *asar.Entry, path string) (bool, error) {
	if e1.IsLink() || e2.IsLink() {
		return e1.Link != e2.Link, nil
	}
	if e1.Size != e2.Size {
		return true, nil
	}
	if h1, h2 := integrityHash(e1), integrityHash(e2); h1 != "" && h2 != "" {
		return h1 != h2, nil
	}

	b1, err := a1.ReadPath(path)
	if err != nil {
		return false, fmt.Errorf("reading %s from %s: %w", path, a1.Path(), err)
	}
	b2, err := a2.ReadPath(path)
	if err != nil {
		return false, fmt.Errorf("reading %s from %s: %w", path, a2.Path(), err)
	}
	return !bytes.Equal(b1, b2), nil
}

func integrityHash(e *asar.Entry) string {
	if e.Integrity == nil {
		return ""
	}
	return e.Integrity.Hash
}

// Line represents a single line in the diff output.
type Line struct {
	LineNum1 int    // Line number in the first archive (0 if added)
	LineNum2 int    // Line number in the second archive (0 if deleted)
	Type     rune   // '+' added, '-' deleted, ' ' unchanged
	Content  string // Line content
}

// FileResult contains the line-by-line diff of a single entry.
type FileResult struct {
	Path     string
	Path1    string
	Path2    string
	Lines    []Line
	IsBinary bool
	Error    string
}

// CompareFile computes the line-by-line diff of the entry at entryPath
// between the two archives. status tells which sides hold the entry,
// using the codes from Compare. Read failures are reported in the
// result's Error field rather than as an error, so callers can render
// them in place.
func CompareFile(path1, path2, entryPath string, status rune) (*FileResult, error) {
	result := &FileResult{
		Path:  entryPath,
		Path1: path1,
		Path2: path2,
	}

	var content1, content2 string

	switch status {
	case 'A': // Added - only exists in the second archive
		c2, err := readEntry(path2, entryPath)
		if err != nil {
			result.Error = fmt.Sprintf("Error reading entry: %v", err)
			return result, nil
		}
		content2 = c2
	case 'D': // Deleted - only exists in the first archive
		c1, err := readEntry(path1, entryPath)
		if err != nil {
			result.Error = fmt.Sprintf("Error reading entry: %v", err)
			return result, nil
		}
		content1 = c1
	default: // Modified - exists in both
		c1, err := readEntry(path1, entryPath)
		if err != nil {
			result.Error = fmt.Sprintf("Error reading %s: %v", path1, err)
			return result, nil
		}
		c2, err := readEntry(path2, entryPath)
		if err != nil {
			result.Error = fmt.Sprintf("Error reading %s: %v", path2, err)
			return result, nil
		}
		content1, content2 = c1, c2
	}

	if IsBinaryContent(content1) || IsBinaryContent(content2) {
		result.IsBinary = true
		return result, nil
	}

	// Diff whole lines rather than characters.
	dmp := diffmatchpatch.New()
	c1, c2, lineArray := dmp.DiffLinesToChars(content1, content2)
	diffs := dmp.DiffMain(c1, c2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	result.Lines = toLines(diffs)

	return result, nil
}

func readEntry(archivePath, entryPath string) (string, error) {
	a, err := asar.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer a.Close()

	data, err := a.ReadPath(entryPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsBinaryContent checks if content appears to be binary
func IsBinaryContent(content string) bool {
	if len(content) == 0 {
		return false
	}
	// Check first 8000 bytes for null bytes or invalid UTF-8
	checkLen := len(content)
	if checkLen > 8000 {
		checkLen = 8000
	}
	sample := content[:checkLen]

	if strings.Contains(sample, "\x00") {
		return true
	}
	if !utf8.ValidString(sample) {
		return true
	}

	return false
}

// toLines converts line-mode diff runs into numbered diff lines.
func toLines(diffs []diffmatchpatch.Diff) []Line {
	var lines []Line
	n1, n2 := 0, 0

	for _, d := range diffs {
		segs := strings.Split(d.Text, "\n")
		for i, seg := range segs {
			// A trailing newline produces one empty final segment.
			if i == len(segs)-1 && seg == "" {
				continue
			}
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				n1++
				lines = append(lines, Line{LineNum1: n1, Type: '-', Content: seg})
			case diffmatchpatch.DiffInsert:
				n2++
				lines = append(lines, Line{LineNum2: n2, Type: '+', Content: seg})
			default:
				n1++
				n2++
				lines = append(lines, Line{LineNum1: n1, LineNum2: n2, Type: ' ', Content: seg})
			}
		}
	}

	return lines
}
