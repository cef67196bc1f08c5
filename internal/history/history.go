package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Record is one version inspection of an archive.
type Record struct {
	Version     string    `json:"version"`
	Entry       string    `json:"entry"`
	Key         string    `json:"key"`
	SHA256      string    `json:"sha256"`
	SizeBytes   int64     `json:"size_bytes"`
	InspectedAt time.Time `json:"inspected_at"`
}

// History holds the inspection records for one archive path, ordered
// oldest to newest.
type History struct {
	Archive string   `json:"archive"`
	Records []Record `json:"records"`
}

// HistoryPath returns the file that stores the history for archivePath.
// The file name is derived from a hash of the path, so any path can be
// tracked regardless of the characters in it.
func HistoryPath(historyDir, archivePath string) string {
	sum := sha256.Sum256([]byte(archivePath))
	return filepath.Join(historyDir, hex.EncodeToString(sum[:8])+".json")
}

func Load(historyDir, archivePath string) (*History, error) {
	path := HistoryPath(historyDir, archivePath)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &History{
				Archive: archivePath,
				Records: []Record{},
			}, nil
		}
		return nil, err
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}

	return &h, nil
}

func (h *History) Save(historyDir string) error {
	path := HistoryPath(historyDir, h.Archive)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (h *History) Append(rec Record) {
	h.Records = append(h.Records, rec)
}

func (h *History) Latest() *Record {
	if len(h.Records) == 0 {
		return nil
	}
	return &h.Records[len(h.Records)-1]
}

// Prune drops the oldest records exceeding keepLast and returns how
// many were dropped.
func (h *History) Prune(keepLast int) int {
	if keepLast <= 0 || len(h.Records) <= keepLast {
		return 0
	}

	toRemove := len(h.Records) - keepLast
	h.Records = h.Records[toRemove:]
	return toRemove
}

// Remove deletes the stored history file for archivePath. Removing a
// path that was never tracked is not an error.
func Remove(historyDir, archivePath string) error {
	err := os.Remove(HistoryPath(historyDir, archivePath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListArchives returns the archive paths with stored history, sorted.
func ListArchives(historyDir string) ([]string, error) {
	entries, err := os.ReadDir(historyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var archives []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(historyDir, e.Name()))
		if err != nil {
			continue
		}
		var h History
		if err := json.Unmarshal(data, &h); err != nil {
			continue
		}
		if h.Archive != "" {
			archives = append(archives, h.Archive)
		}
	}

	sort.Strings(archives)
	return archives, nil
}
