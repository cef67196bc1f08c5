package tui

import (
	"fmt"
	"strings"

	"github.com/appver/appver/internal/inspect"
	"github.com/appver/appver/internal/ports"
)

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case EntriesView:
		content = m.renderEntriesView()
	case PreviewView:
		content = m.renderPreviewView()
	}

	return appStyle.Render(content)
}

func (m *Model) renderEntriesView() string {
	var b strings.Builder

	// Title
	location := m.archivePath
	if m.dir != "" {
		location = fmt.Sprintf("%s : %s", m.archivePath, m.dir)
	}
	title := titleStyle.Render(fmt.Sprintf(" 📦 %s ", location))
	b.WriteString(title)
	b.WriteString("\n")

	// Archive summary
	summary := fmt.Sprintf("  %s  header %s  %d files, %d dirs",
		inspect.FormatSize(m.archive.FileSize),
		inspect.FormatSize(m.archive.HeaderSize),
		m.archive.FileCount, m.archive.DirCount)
	b.WriteString(dimStyle.Render(summary))
	b.WriteString("\n\n")

	// Header
	header := fmt.Sprintf("  %-36s %10s  %s", "NAME", "SIZE", "TYPE")
	b.WriteString(dimStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 64)))
	b.WriteString("\n")

	if len(m.entries) == 0 {
		b.WriteString(dimStyle.Render("  (empty directory)"))
		b.WriteString("\n")
	}

	// List items
	visibleHeight := m.height - 12
	if visibleHeight < 5 {
		visibleHeight = 5
	}

	start := 0
	if m.entryCursor >= visibleHeight {
		start = m.entryCursor - visibleHeight + 1
	}

	for i := start; i < len(m.entries) && i < start+visibleHeight; i++ {
		e := m.entries[i]
		cursor := "  "
		style := normalStyle
		if i == m.entryCursor {
			cursor = "▸ "
			style = selectedStyle
		}

		line := fmt.Sprintf("%s%-36s %10s  %s",
			cursor, truncate(e.Name, 36), entrySize(e), entryKind(e))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	// Pad to fixed height
	for i := len(m.entries); i < visibleHeight; i++ {
		b.WriteString("\n")
	}

	// Status
	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")

	// Help
	help := "[↑/↓] navigate  [enter] open  [esc] up  [g] probe version  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderPreviewView() string {
	var b strings.Builder

	// Title
	title := titleStyle.Render(fmt.Sprintf(" 📄 %s ", m.previewPath))
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 64)))
	b.WriteString("\n")

	if len(m.previewLines) == 0 {
		b.WriteString(dimStyle.Render("  (empty entry)"))
		b.WriteString("\n")
	} else {
		visibleHeight := m.height - 10
		if visibleHeight < 5 {
			visibleHeight = 5
		}

		endIdx := m.previewScroll + visibleHeight
		if endIdx > len(m.previewLines) {
			endIdx = len(m.previewLines)
		}

		for i := m.previewScroll; i < endIdx; i++ {
			b.WriteString(normalStyle.Render(truncate(m.previewLines[i], 100)))
			b.WriteString("\n")
		}

		// Scroll indicator
		if len(m.previewLines) > visibleHeight {
			scrollInfo := fmt.Sprintf("  Lines %d-%d of %d",
				m.previewScroll+1, endIdx, len(m.previewLines))
			b.WriteString(dimStyle.Render(scrollInfo))
			b.WriteString("\n")
		}
	}

	// Status
	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")

	// Help
	help := "[↑/↓] scroll  [esc] back  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// entryKind renders the TYPE column for an entry.
func entryKind(e ports.TUIEntryInfo) string {
	switch {
	case e.Dir:
		return fmt.Sprintf("dir (%d)", e.Children)
	case e.Link != "":
		return "link → " + e.Link
	case e.Unpacked:
		return "file (unpacked)"
	case e.Executable:
		return "file (exec)"
	default:
		return "file"
	}
}

// entrySize renders the SIZE column for an entry.
func entrySize(e ports.TUIEntryInfo) string {
	if e.Dir || e.Link != "" {
		return "-"
	}
	return inspect.FormatSize(int64(e.Size))
}

// Helper functions
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// parentDir returns the directory above dir, "" at the root.
func parentDir(dir string) string {
	if idx := strings.LastIndex(dir, "/"); idx >= 0 {
		return dir[:idx]
	}
	return ""
}
