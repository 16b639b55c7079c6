package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/tasks"
)

// RenderReport renders one line per unit followed by the report summary.
func RenderReport(r *tasks.Report) string {
	var b strings.Builder
	for _, u := range r.Units {
		name := u.Kind.Label()
		if u.Name != "" {
			name = u.Name
		}

		var status string
		switch u.Status {
		case models.StatusOK:
			status = styles.ok.Render("✓")
		case models.StatusSkipped:
			status = styles.warn.Render("-")
		default:
			status = styles.err.Render("✗")
		}

		fmt.Fprintf(&b, "%s %s (%d)", status, name, u.Count)
		if u.Path != "" {
			b.WriteString(" " + styles.help.Render(u.Path))
		}
		b.WriteString("\n")
	}
	b.WriteString(styles.title.UnsetMarginBottom().Render(r.Summary()))
	b.WriteString("\n")
	return b.String()
}
