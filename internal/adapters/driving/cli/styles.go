package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette used when writing to a terminal.
var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// styleReport colours a plain-text report: section headings are
// highlighted and the deletion hint is dimmed.
func styleReport(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case line == "":
		case !strings.HasPrefix(line, " "):
			lines[i] = headingStyle.Render(line)
		case strings.Contains(line, "notesync purge"):
			lines[i] = mutedStyle.Render(line)
		case strings.HasPrefix(strings.TrimSpace(line), "Errored:") && !strings.HasSuffix(line, " 0"):
			lines[i] = warningStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// success renders a confirmation line, coloured on terminals.
func success(w io.Writer, msg string) string {
	if isTerminal(w) {
		return successStyle.Render(msg)
	}
	return msg
}
