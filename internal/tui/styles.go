package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/atinyakov/gophtodo/internal/controller"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

func toastLine(t controller.Toast) string {
	if t.Kind == controller.KindError {
		return errorStyle.Render("✖ " + t.Message)
	}
	return successStyle.Render("✔ " + t.Message)
}

// progressBar draws percent as a fixed-width bar.
func progressBar(percent, width int) string {
	filled := percent * width / 100
	return accentStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
}

func cursorPrefix(selected bool) string {
	if selected {
		return selectedStyle.Render(">") + " "
	}
	return "  "
}
