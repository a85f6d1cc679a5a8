package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// Terminal styles for human-readable command output. On a non-TTY
// (pipes, CI) lipgloss degrades these to plain text, so scripted
// consumers see the bare values.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
)

// statusStyle picks the style for a pipeline status word.
func statusStyle(status domain.PipelineStatus) lipgloss.Style {
	switch status {
	case domain.StatusIdle:
		return successStyle
	case domain.StatusChecking, domain.StatusStarting:
		return warningStyle
	case domain.StatusError:
		return errorStyle
	default:
		return mutedStyle
	}
}
