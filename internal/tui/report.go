package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/fixture-ctl/internal/validator"
)

var (
	validStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	invalidStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// RenderReport formats a validation result for the terminal. With color
// off the output is plain text.
func RenderReport(r *validator.ValidationResult, color bool) string {
	render := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var sb strings.Builder
	if r.Valid {
		sb.WriteString(render(validStyle, "✓ VALID") + "  " + r.FixtureDir + "\n")
	} else {
		sb.WriteString(render(invalidStyle, "✗ INVALID") + "  " + r.FixtureDir + "\n")
	}

	if m := r.Manifest; m != nil {
		sb.WriteString(render(dimStyle, fmt.Sprintf("  fixture %s v%s, schema %s, namespace %s",
			m.FixtureID, m.Version, m.SchemaVersion, m.Namespace)) + "\n")
		sb.WriteString(render(dimStyle, fmt.Sprintf("  %d tables, %d rows, %s",
			len(m.Tables), m.TotalRows(), m.Checksum)) + "\n")
	}

	if len(r.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\nErrors (%d):\n", len(r.Errors)))
		for _, f := range r.Findings {
			if f.Severity != validator.SeverityError {
				continue
			}
			sb.WriteString("  " + render(invalidStyle, "✗") + " " + f.Message +
				render(dimStyle, " ["+string(f.Code)+"]") + "\n")
		}
	}

	if len(r.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("\nWarnings (%d):\n", len(r.Warnings)))
		for _, w := range r.Warnings {
			sb.WriteString("  " + render(warningStyle, "⚠ "+w) + "\n")
		}
	}

	return sb.String()
}
