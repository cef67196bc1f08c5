package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/appver/appver/internal/config"
	"github.com/appver/appver/internal/mocks"
	"github.com/appver/appver/internal/ports"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
)

// seedService builds a mock service describing a small archive:
//
//	node_modules/        (dir with 2 children)
//	package.json         (94 bytes)
//	main.js              (12 bytes)
func seedService() *mocks.MockTUIService {
	svc := mocks.NewMockTUIService()
	svc.ConfigResult = &config.Config{}
	svc.ArchiveInfo = ports.TUIArchiveInfo{
		Path:       "/apps/app.asar",
		FileSize:   4096,
		HeaderSize: 180,
		DataOffset: 196,
		FileCount:  4,
		DirCount:   1,
	}
	svc.Entries[""] = []ports.TUIEntryInfo{
		{Name: "node_modules", Path: "node_modules", Dir: true, Children: 2},
		{Name: "main.js", Path: "main.js", Size: 12},
		{Name: "package.json", Path: "package.json", Size: 94},
	}
	svc.Entries["node_modules"] = []ports.TUIEntryInfo{
		{Name: "left-pad", Path: "node_modules/left-pad", Dir: true, Children: 1},
		{Name: "index.js", Path: "node_modules/index.js", Size: 40},
	}
	svc.Previews["package.json"] = "{\n  \"version\": \"2.1.0\"\n}"
	svc.VersionResult = "2.1.0"
	return svc
}

func TestNewModelWithService(t *testing.T) {
	svc := seedService()

	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	if m.view != EntriesView {
		t.Errorf("view = %v, expected EntriesView", m.view)
	}
	if len(m.entries) != 3 {
		t.Errorf("entries = %d, expected 3", len(m.entries))
	}
	if len(svc.OpenCalls) != 1 || svc.OpenCalls[0] != "/apps/app.asar" {
		t.Errorf("OpenCalls = %v", svc.OpenCalls)
	}
	if svc.LoadConfigCalls != 1 {
		t.Errorf("LoadConfigCalls = %d, expected 1", svc.LoadConfigCalls)
	}
}

func TestNewModelOpenError(t *testing.T) {
	svc := mocks.NewMockTUIService()
	svc.OpenError = errors.New("no such archive")

	if _, err := NewModelWithService(svc, "/apps/missing.asar"); err == nil {
		t.Fatal("expected error from NewModelWithService")
	}
}

func TestNewModelConfigError(t *testing.T) {
	svc := mocks.NewMockTUIService()
	svc.ConfigError = errors.New("bad yaml")

	if _, err := NewModelWithService(svc, "/apps/app.asar"); err == nil {
		t.Fatal("expected error from NewModelWithService")
	}
	if len(svc.OpenCalls) != 0 {
		t.Errorf("Open should not be called when config fails, got %v", svc.OpenCalls)
	}
}

func TestModelNavigation(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	// Down twice lands on the last entry
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(*Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(*Model)
	if m.entryCursor != 2 {
		t.Errorf("cursor = %d, expected 2", m.entryCursor)
	}

	// Boundary - shouldn't go past end
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(*Model)
	if m.entryCursor != 2 {
		t.Errorf("cursor = %d, expected 2 (at boundary)", m.entryCursor)
	}

	// Up and boundary at the top
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(*Model)
	if m.entryCursor != 1 {
		t.Errorf("cursor = %d, expected 1", m.entryCursor)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(*Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(*Model)
	if m.entryCursor != 0 {
		t.Errorf("cursor = %d, expected 0 (at boundary)", m.entryCursor)
	}
}

func TestModelDescendAndAscend(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	// Enter on the directory descends into it
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)
	if m.dir != "node_modules" {
		t.Errorf("dir = %q, expected %q", m.dir, "node_modules")
	}
	if len(m.entries) != 2 {
		t.Errorf("entries = %d, expected 2", len(m.entries))
	}

	// Esc ascends back to the root
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(*Model)
	if m.dir != "" {
		t.Errorf("dir = %q, expected root", m.dir)
	}
	if len(m.entries) != 3 {
		t.Errorf("entries = %d, expected 3", len(m.entries))
	}
}

func TestModelPreview(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	// Move to package.json and open it
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(*Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(*Model)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)
	if cmd == nil {
		t.Fatal("expected a preview command")
	}

	updated, _ = m.Update(cmd())
	m = updated.(*Model)
	if m.view != PreviewView {
		t.Fatalf("view = %v, expected PreviewView", m.view)
	}
	if m.previewPath != "package.json" {
		t.Errorf("previewPath = %q, expected %q", m.previewPath, "package.json")
	}
	if len(m.previewLines) != 3 {
		t.Errorf("previewLines = %d, expected 3", len(m.previewLines))
	}

	// Esc returns to the entries view
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(*Model)
	if m.view != EntriesView {
		t.Errorf("view = %v, expected EntriesView", m.view)
	}
}

func TestModelPreviewError(t *testing.T) {
	svc := seedService()
	svc.PreviewError = errors.New("truncated entry data")
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(*Model)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)
	if cmd == nil {
		t.Fatal("expected a preview command")
	}

	updated, _ = m.Update(cmd())
	m = updated.(*Model)
	if m.view != EntriesView {
		t.Errorf("view = %v, expected EntriesView after failed preview", m.view)
	}
	if !m.statusErr || !strings.Contains(m.statusMsg, "truncated entry data") {
		t.Errorf("statusMsg = %q, statusErr = %v", m.statusMsg, m.statusErr)
	}
}

func TestModelProbeVersion(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	m = updated.(*Model)
	if cmd == nil {
		t.Fatal("expected a probe command")
	}

	updated, _ = m.Update(cmd())
	m = updated.(*Model)
	if m.statusErr {
		t.Errorf("unexpected status error: %q", m.statusMsg)
	}
	if !strings.Contains(m.statusMsg, "2.1.0") {
		t.Errorf("statusMsg = %q, expected version in it", m.statusMsg)
	}
	if len(svc.VersionCalls) != 1 || svc.VersionCalls[0] != "package.json:version" {
		t.Errorf("VersionCalls = %v", svc.VersionCalls)
	}
}

func TestModelProbeUsesConfiguredDefaults(t *testing.T) {
	svc := seedService()
	svc.ConfigResult = &config.Config{DefaultEntry: "manifest.json", DefaultKey: "appVersion"}
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	if cmd == nil {
		t.Fatal("expected a probe command")
	}
	cmd()

	if len(svc.VersionCalls) != 1 || svc.VersionCalls[0] != "manifest.json:appVersion" {
		t.Errorf("VersionCalls = %v", svc.VersionCalls)
	}
}

func TestModelQuitClosesService(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(*Model)
	if cmd == nil {
		t.Fatal("expected tea.Quit command")
	}
	if !m.quitting {
		t.Error("expected quitting state")
	}
	if svc.CloseCalls != 1 {
		t.Errorf("CloseCalls = %d, expected 1", svc.CloseCalls)
	}
}

func TestModelWindowSize(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	m = updated.(*Model)
	if m.width != 100 {
		t.Errorf("width = %d, expected 100", m.width)
	}
	if m.height != 50 {
		t.Errorf("height = %d, expected 50", m.height)
	}
}

func TestEntriesViewRendering(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}
	m.width = 80
	m.height = 24

	out := m.View()
	for _, want := range []string{"app.asar", "node_modules", "package.json", "dir (2)", "probe version"} {
		if !strings.Contains(out, want) {
			t.Errorf("view output missing %q", want)
		}
	}
}

func TestPreviewViewRendering(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}
	m.width = 80
	m.height = 24
	m.view = PreviewView
	m.previewPath = "package.json"
	m.previewLines = splitLines("{\n  \"version\": \"2.1.0\"\n}")

	out := m.View()
	if !strings.Contains(out, "package.json") {
		t.Error("preview output missing entry path")
	}
	if !strings.Contains(out, "\"version\": \"2.1.0\"") {
		t.Error("preview output missing entry content")
	}
}

// TestWithTeatest drives a full program round-trip.
func TestWithTeatest(t *testing.T) {
	svc := seedService()
	m, err := NewModelWithService(svc, "/apps/app.asar")
	if err != nil {
		t.Fatalf("NewModelWithService failed: %v", err)
	}
	m.width = 80
	m.height = 24

	tm := teatest.NewTestModel(t, m)

	tm.Send(tea.WindowSizeMsg{Width: 80, Height: 24})
	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))
}

// ============================================
// Pure function tests
// ============================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		max      int
		expected string
	}{
		{"short string unchanged", "main.js", 20, "main.js"},
		{"exact length unchanged", "main.js", 7, "main.js"},
		{"long string truncated", "node_modules/left-pad/index.js", 10, "node_modu…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.max); got != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, expected %q", tt.in, tt.max, got, tt.expected)
			}
		})
	}
}

func TestParentDir(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"node_modules/left-pad", "node_modules"},
		{"node_modules", ""},
		{"a/b/c", "a/b"},
	}
	for _, tt := range tests {
		if got := parentDir(tt.in); got != tt.expected {
			t.Errorf("parentDir(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestSplitLines(t *testing.T) {
	if got := splitLines(""); got != nil {
		t.Errorf("splitLines(\"\") = %v, expected nil", got)
	}
	if got := splitLines("one\ntwo\n"); len(got) != 2 {
		t.Errorf("splitLines = %v, expected 2 lines", got)
	}
}
