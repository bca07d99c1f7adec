// Package output provides styled terminal output helpers (success, error,
// gate and task formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/specdriven/sdd/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyles = map[models.TaskStatus]lipgloss.Style{
		models.StatusBacklog:      lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.StatusInProgress:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.StatusWaitingInput: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		models.StatusDone:         lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.StatusFailed:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	gateStyles = map[models.GateStatus]lipgloss.Style{
		models.GatePending: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		models.GateFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.GatePassed:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// gateNames are the human-readable names shown next to gate ids
var gateNames = map[models.GateID]string{
	models.GateEnv:  "environment readiness",
	models.GatePlan: "planning completeness",
	models.GateSpec: "specification completeness",
}

// FormatGateStatus formats a gate status with color
func FormatGateStatus(s models.GateStatus) string {
	symbols := map[models.GateStatus]string{
		models.GatePending: "○",
		models.GateFailed:  "✗",
		models.GatePassed:  "✓",
	}
	style, ok := gateStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("%s %s", symbols[s], s))
}

// FormatCheck renders one precondition check as an indented line
func FormatCheck(c models.Check) string {
	mark := successStyle.Render("✓")
	if !c.Passed {
		mark = errorStyle.Render("✗")
	}
	line := fmt.Sprintf("  %s %s", mark, c.Name)
	if c.Message != "" {
		line += subtleStyle.Render("  " + c.Message)
	}
	return line
}

// FormatGate renders a full gate entry: header line plus one line per check
func FormatGate(id models.GateID, entry models.GateEntry) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Gate %s", id)))
	sb.WriteString(fmt.Sprintf(" (%s)  %s", gateNames[id], FormatGateStatus(entry.Status)))
	if entry.LastChecked != nil {
		sb.WriteString(subtleStyle.Render("  checked " + FormatTimeAgo(*entry.LastChecked)))
	}
	sb.WriteString("\n")
	for _, c := range entry.Checks {
		sb.WriteString(FormatCheck(c))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatGateState renders all three gates
func FormatGateState(g *models.GateState) string {
	var sb strings.Builder
	sb.WriteString(FormatGate(models.GateEnv, g.A))
	sb.WriteString(FormatGate(models.GatePlan, g.B))
	sb.WriteString(FormatGate(models.GateSpec, g.C.GateEntry))

	for file, sections := range g.C.MissingSections {
		sb.WriteString(subtleStyle.Render(fmt.Sprintf("    %s missing: %s\n", file, strings.Join(sections, ", "))))
	}
	return sb.String()
}

// FormatTaskStatus formats a task status with color
func FormatTaskStatus(s models.TaskStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// TaskBadge returns a status indicator with symbol, e.g. "▶ in_progress"
func TaskBadge(status models.TaskStatus) string {
	symbols := map[models.TaskStatus]string{
		models.StatusBacklog:      "○",
		models.StatusInProgress:   "▶",
		models.StatusWaitingInput: "?",
		models.StatusDone:         "✓",
		models.StatusFailed:       "✗",
	}
	symbol, ok := symbols[status]
	if !ok {
		symbol = "?"
	}
	style, hasStyle := statusStyles[status]
	if hasStyle {
		return style.Render(fmt.Sprintf("%s %s", symbol, status))
	}
	return fmt.Sprintf("%s %s", symbol, status)
}

// FormatTaskLine formats a task execution record in short form
func FormatTaskLine(t *models.TaskExecution) string {
	parts := []string{
		titleStyle.Render(t.TaskID),
		t.Name,
		subtleStyle.Render(string(t.Kind)),
		FormatTaskStatus(t.Status),
	}
	if t.Status == models.StatusWaitingInput && t.Escalation != nil {
		parts = append(parts, warningStyle.Render("["+string(t.Escalation.Trigger)+"]"))
	}
	return strings.Join(parts, "  ")
}

// FormatTaskLong renders a task with its escalation and file changes
func FormatTaskLong(t *models.TaskExecution) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s", t.TaskID, t.Name)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Status: %s\n", FormatTaskStatus(t.Status)))
	sb.WriteString(fmt.Sprintf("Feature: %s | Kind: %s", t.FeatureID, t.Kind))
	if t.Score > 0 {
		sb.WriteString(fmt.Sprintf(" | Score: %d", t.Score))
	}
	sb.WriteString("\n")

	if t.StartedAt != nil {
		sb.WriteString(fmt.Sprintf("Started: %s\n", FormatTimeAgo(*t.StartedAt)))
	}
	if t.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("Completed: %s\n", FormatTimeAgo(*t.CompletedAt)))
	}

	if esc := t.Escalation; esc != nil {
		sb.WriteString("\n")
		sb.WriteString(warningStyle.Render(fmt.Sprintf("ESCALATION (%s):", esc.Trigger)))
		sb.WriteString("\n")
		sb.WriteString(IndentString(esc.Question, 2))
		sb.WriteString("\n")
		for _, opt := range esc.Options {
			mark := " "
			if opt.ID == esc.Recommended {
				mark = "*"
			}
			sb.WriteString(fmt.Sprintf("  %s %s: %s\n", mark, opt.ID, opt.Description))
		}
		if esc.Answer != "" {
			sb.WriteString(fmt.Sprintf("  Answered: %s", esc.Answer))
			if esc.ResolvedAt != nil {
				sb.WriteString(subtleStyle.Render("  " + FormatTimeAgo(*esc.ResolvedAt)))
			}
			sb.WriteString("\n")
		}
	}

	if len(t.Files) > 0 {
		sb.WriteString("\nFILES:\n")
		for _, f := range t.Files {
			sb.WriteString(fmt.Sprintf("  %s %s\n", subtleStyle.Render(string(f.Action)), f.Path))
		}
	}

	return sb.String()
}

// FormatProgress renders a done/total bar, e.g. "[####......] 4/10 (40%)"
func FormatProgress(done, total, percent int) string {
	const width = 20
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
	return fmt.Sprintf("[%s] %d/%d (%d%%)", bar, done, total, percent)
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
