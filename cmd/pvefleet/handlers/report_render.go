package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pvefleet/pvefleet/internal/reconcile"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorAmber = lipgloss.Color("#f59e0b")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	greenStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	amberStyle = lipgloss.NewStyle().
			Foreground(colorAmber)

	redStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)

// style applies a lipgloss style only when output is an interactive
// terminal; piped output stays plain.
func style(s lipgloss.Style, text string, styled bool) string {
	if !styled {
		return text
	}
	return s.Render(text)
}

func opStyle(op reconcile.Op) lipgloss.Style {
	switch op {
	case reconcile.OpCreate:
		return greenStyle
	case reconcile.OpReplace:
		return amberStyle
	case reconcile.OpDestroy, reconcile.OpPurge:
		return redStyle
	default:
		return dimStyle
	}
}

// renderPlan produces the plan table.
func renderPlan(plan *reconcile.Plan, styled bool) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(style(titleStyle, fmt.Sprintf("  Fleet %s", plan.Fleet), styled))
	b.WriteString("\n")
	b.WriteString(style(dimStyle, "  "+strings.Repeat("─", 64), styled))
	b.WriteString("\n")
	b.WriteString(style(dimStyle, fmt.Sprintf("  %-10s %-6s %-16s %-8s %s", "GROUP", "VMID", "NAME", "OP", "REASON"), styled))
	b.WriteString("\n")

	for _, a := range plan.Actions {
		if a.Err != nil {
			fmt.Fprintf(&b, "  %-10s %-6d %-16s %-8s %s\n",
				a.Group, a.VMID, a.Name,
				style(redStyle, "blocked", styled), a.Err)
			continue
		}
		fmt.Fprintf(&b, "  %-10s %-6d %-16s %-8s %s\n",
			a.Group, a.VMID, a.Name,
			style(opStyle(a.Op), string(a.Op), styled), a.Reason)
		for _, note := range a.Drift {
			b.WriteString(style(dimStyle, fmt.Sprintf("  %-10s %-6s %-16s %-8s %s", "", "", "", "drift", note), styled))
			b.WriteString("\n")
		}
	}

	b.WriteString(style(dimStyle, "  "+strings.Repeat("─", 64), styled))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %d to create, %d to replace, %d to destroy, %d unchanged",
		plan.Count(reconcile.OpCreate), plan.Count(reconcile.OpReplace),
		plan.Count(reconcile.OpDestroy), plan.Count(reconcile.OpNoop))
	if blocked := plan.Blocked(); blocked > 0 {
		b.WriteString(style(redStyle, fmt.Sprintf(", %d blocked", blocked), styled))
	}
	b.WriteString("\n\n")

	return b.String()
}

// renderReport produces the per-ordinal outcome table for an executed
// pass.
func renderReport(report *reconcile.Report, styled bool) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(style(titleStyle, fmt.Sprintf("  Fleet %s, run %.8s", report.Fleet, report.RunID), styled))
	b.WriteString("\n")
	b.WriteString(style(dimStyle, "  "+strings.Repeat("─", 64), styled))
	b.WriteString("\n")

	for _, res := range report.Results {
		fmt.Fprintf(&b, "  %-6d %-16s %-8s %s\n",
			res.VMID, res.Name,
			style(opStyle(res.Op), string(res.Op), styled),
			renderOutcome(res, styled))
	}

	b.WriteString(style(dimStyle, "  "+strings.Repeat("─", 64), styled))
	b.WriteString("\n")

	summary := report.Summary()
	switch {
	case report.Failed() > 0:
		b.WriteString("  " + style(redStyle, summary, styled))
	case report.Degraded() > 0:
		b.WriteString("  " + style(amberStyle, summary, styled))
	default:
		b.WriteString("  " + style(greenStyle, summary, styled))
	}
	b.WriteString("\n\n")

	return b.String()
}

func renderOutcome(res reconcile.OrdinalResult, styled bool) string {
	switch {
	case res.Degraded:
		return style(amberStyle, fmt.Sprintf("degraded: %v", res.Err), styled)
	case res.Err != nil:
		return style(redStyle, fmt.Sprintf("failed (%s): %v", res.Stage, res.Err), styled)
	default:
		return style(greenStyle, "ok", styled)
	}
}
