package tasks

import (
	"fmt"

	"github.com/desertthunder/spx/internal/models"
)

// UnitResult is the outcome of one unit: one playlist exported or imported, or one collection kind
// imported or deleted.
type UnitResult struct {
	Kind   models.Kind
	Name   string // playlist name, empty for saved collections
	Path   string // file written or read
	Count  int    // records written, added or deleted
	Status models.Status
}

func (u UnitResult) message(op models.Operation) string {
	switch {
	case u.Status == models.StatusFailed:
		return fmt.Sprintf("%s failed", op)
	case u.Status == models.StatusSkipped:
		return fmt.Sprintf("%s skipped", op)
	case op == models.OpExport:
		return fmt.Sprintf("exported %s", u.Kind.Label())
	case op == models.OpImport:
		return fmt.Sprintf("imported %s", u.Kind.Label())
	default:
		return fmt.Sprintf("deleted %s", u.Kind.Label())
	}
}

// Report collects the units completed by one top-level operation, in completion order.
type Report struct {
	RunID     string
	Operation models.Operation
	Units     []UnitResult
}

// Total sums Count over units with status ok.
func (r *Report) Total() int {
	total := 0
	for _, u := range r.Units {
		if u.Status == models.StatusOK {
			total += u.Count
		}
	}
	return total
}

// ByKind returns the units for kind.
func (r *Report) ByKind(kind models.Kind) []UnitResult {
	var units []UnitResult
	for _, u := range r.Units {
		if u.Kind == kind {
			units = append(units, u)
		}
	}
	return units
}

// Summary is a one-line description suitable for the final log line.
func (r *Report) Summary() string {
	ok, skipped := 0, 0
	for _, u := range r.Units {
		switch u.Status {
		case models.StatusOK:
			ok++
		case models.StatusSkipped:
			skipped++
		}
	}

	var verb string
	switch r.Operation {
	case models.OpExport:
		verb = "written"
	case models.OpImport:
		verb = "added"
	default:
		verb = "deleted"
	}
	return fmt.Sprintf("%s finished: %d units, %d skipped, %d items %s", r.Operation, ok, skipped, r.Total(), verb)
}
