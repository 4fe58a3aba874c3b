package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/riskscope/pkg/engine"
	"github.com/user/riskscope/pkg/store"
)

var (
	colorCritical = lipgloss.Color("#FF0000")
	colorHigh     = lipgloss.Color("#FF6B6B")
	colorMedium   = lipgloss.Color("#FFD93D")
	colorLow      = lipgloss.Color("#6BCB77")
	colorMuted    = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

func riskStyle(level engine.RiskLevel) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch level {
	case engine.RiskCritical:
		return s.Foreground(colorCritical)
	case engine.RiskHigh:
		return s.Foreground(colorHigh)
	case engine.RiskMedium:
		return s.Foreground(colorMedium)
	case engine.RiskLow:
		return s.Foreground(colorLow)
	default:
		return s.Foreground(colorMuted)
	}
}

// padRight pads by visible width so styled cells stay aligned.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

type column struct {
	title string
	width int
}

func writeRow(w io.Writer, cols []column, cells []string) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = padRight(cells[i], c.width)
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

func writeHeader(w io.Writer, cols []column) {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = headerStyle.Render(c.title)
	}
	writeRow(w, cols, cells)
}

// printRanked renders the prioritized findings.
func printRanked(w io.Writer, org engine.Organization, traces []engine.TraceRecord) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (%s)", org.Name, org.Type)))
	if len(traces) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No High or Critical findings."))
		return
	}

	cols := []column{{"#", 4}, {"ID", 18}, {"Title", 40}, {"Asset", 18}, {"Base", 5}, {"Final", 6}, {"Risk", 8}, {"Modifiers", 0}}
	writeHeader(w, cols)
	for _, tr := range traces {
		t := tr.Trace
		mods := make([]string, len(t.ModifiersApplied))
		for i, m := range t.ModifiersApplied {
			mods[i] = m.Name + m.Signed()
		}
		writeRow(w, cols, []string{
			fmt.Sprintf("%d", t.PriorityRank),
			truncate(tr.VulnID, 18),
			truncate(tr.Title, 40),
			truncate(tr.AffectedAsset, 18),
			fmt.Sprintf("%.1f", t.BaseScore),
			fmt.Sprintf("%.2f", t.FinalScore),
			riskStyle(t.RiskLevel).Render(string(t.RiskLevel)),
			mutedStyle.Render(strings.Join(mods, " ")),
		})
	}
}

func printFindings(w io.Writer, label string, color lipgloss.Color, findings []engine.Finding) {
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprintf("%s (%d)", label, len(findings))))
	for _, f := range findings {
		fmt.Fprintf(w, "  %s  %s  %s\n", padRight(f.VulnID, 18), padRight(truncate(f.AffectedAsset, 18), 18), f.Title)
	}
}

func printDiff(w io.Writer, diff engine.SnapshotDiff) {
	printFindings(w, "New", colorCritical, diff.New)
	printFindings(w, "Fixed", colorLow, diff.Fixed)
	printFindings(w, "Unchanged", colorMuted, diff.Unchanged)
}

func printHistory(w io.Writer, runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No runs recorded yet."))
		return
	}
	cols := []column{{"Run", 36}, {"When", 20}, {"Organization", 24}, {"Findings", 8}, {"Critical", 8}, {"Top", 0}}
	writeHeader(w, cols)
	for _, r := range runs {
		writeRow(w, cols, []string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(r.Organization.Name, 24),
			fmt.Sprintf("%d", r.Findings),
			riskStyle(engine.RiskCritical).Render(fmt.Sprintf("%d", r.CriticalCount)),
			fmt.Sprintf("%.2f", r.TopScore),
		})
	}
}
