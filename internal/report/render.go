// Package report renders run results for the terminal. Presentation only:
// all decisions happen upstream.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/robby/ghsync/internal/domain"
)

// defaultWidth is used when the caller passes a non-positive width.
const defaultWidth = 100

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Render formats a full reconciliation report.
func Render(r domain.Report, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder

	if len(r.Inconsistencies) == 0 {
		b.WriteString(okStyle.Render("✓ No inconsistencies found"))
		b.WriteString("\n")
	} else {
		b.WriteString(headerStyle.Render("Inconsistencies"))
		b.WriteString("\n")
		for _, inc := range r.Inconsistencies {
			tag := infoStyle.Render("info ")
			if inc.Severity == domain.SeverityError {
				tag = errorStyle.Render("error")
			}
			b.WriteString(fmt.Sprintf("  %s  %s\n", tag, wordwrap.String(inc.Description, width-9)))
		}
	}

	if len(r.Fixes) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Fixes"))
		b.WriteString("\n")
		for _, fix := range r.Fixes {
			if fix.Success {
				b.WriteString(fmt.Sprintf("  %s  #%d %s\n", okStyle.Render("✓"), fix.Number, fix.Action))
			} else {
				b.WriteString(fmt.Sprintf("  %s  #%d %s: %s\n", errorStyle.Render("✗"), fix.Number, fix.Action,
					wordwrap.String(fix.Error, width-12)))
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(renderSummary(r.Summary))
	return b.String()
}

func renderSummary(s domain.Summary) string {
	parts := []string{
		fmt.Sprintf("%d checked", s.TotalChecked),
		fmt.Sprintf("%d inconsistent (%d errors, %d info)", s.TotalInconsistencies, s.Errors, s.Info),
	}
	if s.Fixed > 0 || s.FixFailures > 0 {
		parts = append(parts, fmt.Sprintf("%d fixed, %d failed", s.Fixed, s.FixFailures))
	}
	return subtleStyle.Render(strings.Join(parts, " · "))
}

// RenderWarnings formats preflight warnings, one per line. An empty list
// renders a single all-clear line.
func RenderWarnings(warnings []string, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	if len(warnings) == 0 {
		return okStyle.Render("✓ Ready to start: no preflight warnings") + "\n"
	}

	var b strings.Builder
	for _, w := range warnings {
		b.WriteString(warnStyle.Render("⚠"))
		b.WriteString(" ")
		b.WriteString(wordwrap.String(w, width-2))
		b.WriteString("\n")
	}
	return b.String()
}
