// package formatter renders journal entries and run reports as plain text, CSV or JSON
package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// Format selects the output encoding for [WriteEntries].
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

const timeLayout = "2006-01-02 15:04:05"

var csvHeaders = []string{"Sequence", "Run", "Time", "Operation", "Kind", "Name", "Path", "Count", "Status", "Error"}

var statusStyles = map[models.Status]lipgloss.Style{
	models.StatusOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
	models.StatusSkipped: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")),
	models.StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
}

// ParseFormat converts a flag value into a [Format]. An empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, csv or json)", shared.ErrInvalidArgument, s)
	}
}

// WriteEntries writes entries to w in the given format
func WriteEntries(w io.Writer, format Format, entries []*models.JournalEntry) error {
	switch format {
	case FormatText, "":
		return writeText(w, entries)
	case FormatCSV:
		return writeCSV(w, entries)
	case FormatJSON:
		return writeJSON(w, entries)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// writeText renders an aligned table with one row per entry. The status column is last so color codes
// don't disturb alignment.
func writeText(w io.Writer, entries []*models.JournalEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No journal entries.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTIME\tOPERATION\tKIND\tNAME\tCOUNT\tSTATUS")
	for _, e := range entries {
		status := string(e.Status())
		if style, ok := statusStyles[e.Status()]; ok {
			status = style.Render(status)
		}
		if e.Error() != "" {
			status += " " + e.Error()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Sequence(),
			e.CreatedAt().Local().Format(timeLayout),
			e.Operation(),
			e.Kind(),
			displayName(e),
			e.Count(),
			status,
		)
	}
	return tw.Flush()
}

func writeCSV(w io.Writer, entries []*models.JournalEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.Sequence()),
			e.RunID(),
			e.CreatedAt().UTC().Format(time.RFC3339),
			string(e.Operation()),
			string(e.Kind()),
			e.Name(),
			e.Path(),
			strconv.Itoa(e.Count()),
			string(e.Status()),
			e.Error(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

type entryJSON struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	RunID     string    `json:"run_id"`
	Operation string    `json:"operation"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name,omitempty"`
	Path      string    `json:"path,omitempty"`
	Count     int       `json:"count"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func writeJSON(w io.Writer, entries []*models.JournalEntry) error {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			ID:        e.ID(),
			Sequence:  e.Sequence(),
			RunID:     e.RunID(),
			Operation: string(e.Operation()),
			Kind:      string(e.Kind()),
			Name:      e.Name(),
			Path:      e.Path(),
			Count:     e.Count(),
			Status:    string(e.Status()),
			Error:     e.Error(),
			CreatedAt: e.CreatedAt().UTC(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// displayName prefers the playlist name, then the file name, then the kind label.
func displayName(e *models.JournalEntry) string {
	switch {
	case e.Name() != "":
		return e.Name()
	case e.Path() != "":
		return e.Path()
	default:
		return e.Kind().Label()
	}
}
