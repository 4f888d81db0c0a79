package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-netprobe/pkg/parallel"
	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	failedBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("#FF0000"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(20)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

func statusStyle(s storage.RunStatus) lipgloss.Style {
	switch s {
	case storage.StatusCompleted:
		return successStyle
	case storage.StatusPartial:
		return warnStyle
	default:
		return errorStyle
	}
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// renderSummary formats a run summary for the terminal.
func renderSummary(sum storage.RunSummary) string {
	rows := []string{
		titleStyle.Render("Run " + sum.RunID),
		row("Tag", sum.Tag),
		row("Status", statusStyle(sum.Status).Render(string(sum.Status))),
		"",
		row("Coverage", fmt.Sprintf("%.2f%% (target %.2f%%)", sum.AchievedCoverage, sum.TargetCoverage*100)),
		row("Efficiency", fmt.Sprintf("%.2f", sum.Efficiency)),
		row("Attempts", fmt.Sprintf("%d", sum.Attempts)),
		row("Paths found", fmt.Sprintf("%d (%.1f%% success)", sum.PathsFound, sum.SuccessRate)),
		row("Unique paths", fmt.Sprintf("%d", sum.UniquePaths)),
		row("Review flags", fmt.Sprintf("%d", sum.ReviewFlags)),
		"",
		row("Paths validated", fmt.Sprintf("%d passed, %d failed", sum.PathsValidated, sum.PathsFailed)),
		row("Findings", fmt.Sprintf("%d (%d critical)", sum.Findings, sum.CriticalFindings)),
	}
	if sum.UniquePaths > 0 {
		rows = append(rows, row("Avg path", fmt.Sprintf("%.1f nodes, %.1f links, length %.2f",
			sum.AvgPathNodes, sum.AvgPathLinks, sum.AvgPathLength)))
	}
	if sum.Errors > 0 {
		rows = append(rows, row("Errors", errorStyle.Render(fmt.Sprintf("%d", sum.Errors))))
	}
	if d := sum.Duration(); d > 0 {
		rows = append(rows, row("Duration", d.Round(time.Millisecond).String()))
	}

	style := boxStyle
	if sum.Status == storage.StatusFailed {
		style = failedBoxStyle
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderConnections formats the connection list as an aligned table.
func renderConnections(conns []parallel.Connection) string {
	if len(conns) == 0 {
		return warnStyle.Render("No downstream connections found")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d downstream connections", len(conns))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-10s %-10s %-10s %-10s %-5s %s\n", "FROM_EQ", "FROM_POC", "TO_EQ", "TO_POC", "HOPS", "ACTIVE")
	for _, c := range conns {
		active := "no"
		if c.Active {
			active = successStyle.Render("yes")
		}
		fmt.Fprintf(&b, "%-10d %-10d %-10d %-10d %-5d %s\n",
			c.FromEquipmentID, c.FromPocID, c.ToEquipmentID, c.ToPocID, c.Hops, active)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
