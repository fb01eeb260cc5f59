// # internal/diagnostics/console.go
package diagnostics

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))
)

// RenderConsole writes severity-colored diagnostics in walk order.
func RenderConsole(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		var tag string
		switch d.Severity {
		case SeverityError:
			tag = errorStyle.Render("error")
		case SeverityWarning:
			tag = warningStyle.Render("warning")
		default:
			tag = hintStyle.Render("hint")
		}
		fmt.Fprintf(w, "%s %s %s (%s)\n",
			locationStyle.Render(fmt.Sprintf("%s:%s", d.Path, d.Range)),
			tag,
			d.Message,
			d.Rule,
		)
	}
}

// RenderSummary prints the error/warning totals.
func RenderSummary(w io.Writer, diags []Diagnostic) {
	errors, warnings := 0, 0
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	line := fmt.Sprintf("%d errors, %d warnings", errors, warnings)
	if errors > 0 {
		fmt.Fprintln(w, errorStyle.Render(line))
		return
	}
	if warnings > 0 {
		fmt.Fprintln(w, warningStyle.Render(line))
		return
	}
	fmt.Fprintln(w, hintStyle.Render(line))
}
