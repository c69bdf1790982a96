package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmationDialog is a yes/no dialog. It only tracks which button is
// highlighted; the caller decides what enter means.
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
}

// NewConfirmationDialog creates a new confirmation dialog
func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{
		Title:       title,
		Message:     message,
		YesSelected: false,
	}
}

// Update moves the button selection
func (d *ConfirmationDialog) Update(msg tea.Msg) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "left", "h":
			d.YesSelected = true
		case "right", "l":
			d.YesSelected = false
		case "tab":
			d.YesSelected = !d.YesSelected
		}
	}
}

// View renders the confirmation dialog
func (d ConfirmationDialog) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n")

	yesButton := inactiveButtonStyle.Render("Yes")
	noButton := inactiveButtonStyle.Render("No")

	if d.YesSelected {
		yesButton = activeButtonStyle.Render("Yes")
	} else {
		noButton = activeButtonStyle.Render("No")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yesButton, "  ", noButton))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(FormatKey("←/→", "navigate") + " • " + FormatKey("enter", "confirm") + " • " + FormatKey("esc/q", "cancel")))

	return boxStyle.Render(b.String())
}

// ModelItem represents a model in the list
type ModelItem struct {
	Name      string
	Table     string
	Status    string
	AppliedAt string
}

func (i ModelItem) FilterValue() string { return i.Name }
func (i ModelItem) Title() string {
	return fmt.Sprintf("%s %s → %s", FormatStatus(i.Status), i.Name, i.Table)
}
func (i ModelItem) Description() string {
	switch i.Status {
	case "drifted":
		return mutedStyle.Render("Applied " + i.AppliedAt + ", schema has changed since")
	case "applied":
		return mutedStyle.Render("Applied: " + i.AppliedAt)
	default:
		return mutedStyle.Render("Not applied")
	}
}

// ModelItemDelegate is a custom delegate for model list items
type ModelItemDelegate struct{}

func (d ModelItemDelegate) Height() int                             { return 2 }
func (d ModelItemDelegate) Spacing() int                            { return 1 }
func (d ModelItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d ModelItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(ModelItem)
	if !ok {
		return
	}

	var s string
	if index == m.Index() {
		s = selectedItemStyle.Render("▸ " + i.Title() + "\n  " + i.Description())
	} else {
		s = unselectedItemStyle.Render("  " + i.Title() + "\n  " + i.Description())
	}

	_, _ = fmt.Fprint(w, s)
}

// ProgressView represents a progress indicator
type ProgressView struct {
	Current int
	Total   int
	Message string
}

// View renders the progress view
func (p ProgressView) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Applying Models"))
	b.WriteString("\n\n")

	if p.Message != "" {
		b.WriteString(infoStyle.Render(p.Message))
		b.WriteString("\n\n")
	}

	bar := FormatProgressBar(p.Current, p.Total, 40)
	b.WriteString(bar)

	return boxStyle.Render(b.String())
}

// LogView displays per-model results
type LogView struct {
	Logs   []string
	MaxLen int
}

// NewLogView creates a new log view
func NewLogView(maxLen int) LogView {
	return LogView{
		Logs:   make([]string, 0),
		MaxLen: maxLen,
	}
}

// AddLog adds a log entry
func (l *LogView) AddLog(entry string) {
	l.Logs = append(l.Logs, entry)
	if len(l.Logs) > l.MaxLen {
		l.Logs = l.Logs[1:]
	}
}

// View renders the log view
func (l LogView) View() string {
	if len(l.Logs) == 0 {
		return mutedStyle.Render("No results yet")
	}

	var b strings.Builder
	for _, log := range l.Logs {
		b.WriteString(mutedStyle.Render("• "))
		b.WriteString(log)
		b.WriteString("\n")
	}

	return boxStyle.Render(b.String())
}
