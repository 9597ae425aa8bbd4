package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/weave/internal/ui/style"
)

var (
	listStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(style.Muted).
			MarginRight(1).
			PaddingRight(1)

	logStyle = lipgloss.NewStyle().
			PaddingLeft(1)

	taskPendingStyle = lipgloss.NewStyle().
				Foreground(style.Muted)

	taskRunningStyle = lipgloss.NewStyle().
				Foreground(style.Accent).
				Bold(true)

	taskDoneStyle = lipgloss.NewStyle().
			Foreground(style.Green)

	taskErrorStyle = lipgloss.NewStyle().
			Foreground(style.Red)

	stepStyle = lipgloss.NewStyle().
			Foreground(style.Muted).
			Faint(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(style.Accent).
			Foreground(style.Text)
)
