package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/weave/internal/ui/style"
)

// View renders the task list next to the log pane.
func (m *Model) View() string {
	if m.Viewport.Height <= 0 {
		return "Initializing..."
	}
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.taskList(),
		m.logPane(),
	)
}

func (m *Model) taskList() string {
	var s strings.Builder

	title := "TASKS"
	if m.Command != "" {
		title = strings.ToUpper(m.Command)
	}
	s.WriteString(titleStyle.Render(title) + "\n\n")

	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		s.WriteString(m.taskLine(i) + "\n")
	}
	return listStyle.Render(s.String())
}

// visibleRange keeps the selected task inside a window of ListHeight rows.
func (m *Model) visibleRange() (int, int) {
	n := len(m.Tasks)
	if m.ListHeight <= 0 || n <= m.ListHeight {
		return 0, n
	}
	start := max(0, m.SelectedIdx-m.ListHeight+1)
	return start, min(n, start+m.ListHeight)
}

func (m *Model) taskLine(i int) string {
	task := m.Tasks[i]

	var (
		st   lipgloss.Style
		icon string
	)
	switch task.Status {
	case StatusRunning:
		st, icon = taskRunningStyle, style.Dot
	case StatusDone:
		st, icon = taskDoneStyle, style.Check
	case StatusError:
		st, icon = taskErrorStyle, style.Cross
	default:
		st, icon = taskPendingStyle, style.Circle
	}

	line := fmt.Sprintf("%s %s", icon, task.Name)
	if task.Status == StatusDone || task.Status == StatusError {
		line += " " + task.Duration.Round(time.Millisecond).String()
	}
	if i == m.SelectedIdx {
		line = "> " + line
	} else {
		line = "  " + line
	}
	line = st.Render(line)
	if task.Step != "" {
		line += " " + stepStyle.Render(style.Arrow+" "+task.Step)
	}
	return line
}

func (m *Model) logPane() string {
	header := titleStyle.Render("LOGS (waiting)")
	if m.ActiveTaskName != "" {
		header = titleStyle.Render("LOGS: " + m.ActiveTaskName)
	}
	return logStyle.Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			header,
			m.Viewport.View(),
		),
	)
}
