package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/specdriven/sdd/internal/models"
	"github.com/specdriven/sdd/internal/output"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("236"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// View renders the dashboard
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render("sdd monitor"))
	if m.version != "" {
		sb.WriteString(dimStyle.Render(" " + m.version))
	}
	sb.WriteString("\n\n")

	if !m.loaded {
		sb.WriteString(m.spinner.View() + " loading state...\n")
		return sb.String()
	}
	if m.snap.Err != nil {
		sb.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.snap.Err)) + "\n")
		return sb.String()
	}

	m.renderGates(&sb)
	m.renderTasks(&sb)
	m.renderSync(&sb)

	sb.WriteString("\n" + m.help.View(m.keys))
	return sb.String()
}

func (m Model) renderGates(sb *strings.Builder) {
	sb.WriteString(sectionStyle.Render("Gates") + "\n")
	g := m.snap.Gates
	entries := []struct {
		id    models.GateID
		entry models.GateEntry
	}{
		{models.GateEnv, g.A},
		{models.GatePlan, g.B},
		{models.GateSpec, g.C.GateEntry},
	}
	for _, e := range entries {
		failed := 0
		for _, c := range e.entry.Checks {
			if !c.Passed {
				failed++
			}
		}
		line := fmt.Sprintf("  %s  %s", e.id, output.FormatGateStatus(e.entry.Status))
		if failed > 0 {
			line += dimStyle.Render(fmt.Sprintf("  %d failing", failed))
		}
		sb.WriteString(line + "\n")
	}
}

func (m Model) renderTasks(sb *strings.Builder) {
	sb.WriteString("\n" + sectionStyle.Render("Tasks") + "\n")
	rs := m.snap.Run
	if rs == nil {
		sb.WriteString(dimStyle.Render("  not seeded") + "\n")
		return
	}

	done, total, percent := rs.Progress()
	sb.WriteString("  " + output.FormatProgress(done, total, percent) + "\n")

	// Window the task list around the cursor so tall plans fit the screen.
	visible := m.height - 14
	if visible < 5 {
		visible = 5
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	for i := start; i < len(rs.Tasks) && i < start+visible; i++ {
		t := &rs.Tasks[i]
		line := fmt.Sprintf("  %s  %-16s %s", output.TaskBadge(t.Status), t.TaskID, t.Name)
		if t.Status == models.StatusWaitingInput && t.Escalation != nil {
			line += dimStyle.Render("  [" + string(t.Escalation.Trigger) + "]")
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		sb.WriteString(line + "\n")
	}
}

func (m Model) renderSync(sb *strings.Builder) {
	sb.WriteString("\n" + sectionStyle.Render("Sync") + "\n")
	ss := m.snap.Sync
	if ss == nil || ss.Repo == "" {
		sb.WriteString(dimStyle.Render("  not synced") + "\n")
		return
	}

	open, closed := 0, 0
	for _, fs := range ss.Features {
		for _, ts := range fs.Tasks {
			if ts.State == "closed" {
				closed++
			} else {
				open++
			}
		}
	}
	sb.WriteString(fmt.Sprintf("  %s  %d open / %d closed\n", ss.Repo, open, closed))
}
