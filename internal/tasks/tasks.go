// package tasks implements the export, import and delete operations that mirror a library to disk.
//
// [LibraryEngine] owns export and import; [DeletionGuard] owns bulk deletion. Both share a run: one run ID,
// one cached current user, and an optional [Journal] that records every completed unit.
package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// Journal persists unit outcomes. Implemented by repositories.JournalRepository.
type Journal interface {
	Record(ctx context.Context, entry *models.JournalEntry) error
}

// Option configures a [LibraryEngine] or [DeletionGuard].
type Option func(*run)

// WithJournal records every unit outcome in j.
func WithJournal(j Journal) Option {
	return func(r *run) { r.journal = j }
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(r *run) {
		if id != "" {
			r.id = id
		}
	}
}

// run is the state shared by every unit of one top-level operation.
type run struct {
	id      string
	catalog services.Catalog
	journal Journal
	logger  *log.Logger
	user    *services.SpotifyUser
}

func newRun(catalog services.Catalog, logger *log.Logger, opts ...Option) run {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := run{id: shared.GenerateID(), catalog: catalog, logger: logger}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RunID identifies the journal entries written by this run.
func (r *run) RunID() string { return r.id }

// currentUser fetches the user profile once per run.
func (r *run) currentUser(ctx context.Context) (*services.SpotifyUser, error) {
	if r.user != nil {
		return r.user, nil
	}
	user, err := r.catalog.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: current user: %w", shared.ErrCatalogFetch, err)
	}
	r.user = user
	return user, nil
}

// record logs the unit and writes it to the journal. Journal failures are logged, never returned.
func (r *run) record(ctx context.Context, report *Report, unit UnitResult, cause error) {
	report.Units = append(report.Units, unit)

	kv := []any{"kind", unit.Kind, "count", unit.Count}
	if unit.Name != "" {
		kv = append(kv, "playlist", unit.Name)
	}
	if unit.Path != "" {
		kv = append(kv, "path", unit.Path)
	}

	switch unit.Status {
	case models.StatusFailed:
		r.logger.Error(unit.message(report.Operation), append(kv, "error", cause)...)
	case models.StatusSkipped:
		r.logger.Warn(unit.message(report.Operation), kv...)
	default:
		r.logger.Info(unit.message(report.Operation), kv...)
	}

	if r.journal == nil {
		return
	}

	entry := models.NewJournalEntry(r.id, report.Operation, unit.Kind, unit.Name, unit.Path, unit.Count, unit.Status)
	if cause != nil {
		entry.SetError(cause.Error())
	}
	if err := r.journal.Record(ctx, entry); err != nil {
		r.logger.Warn("failed to write journal entry", "error", err)
	}
}

// fail records a failed unit and wraps err with its context.
func (r *run) fail(ctx context.Context, report *Report, unit UnitResult, err error) error {
	unit.Status = models.StatusFailed
	r.record(ctx, report, unit, err)
	return shared.NewUnitError(string(report.Operation), unit.Kind.String(), unit.Name, err)
}

func (r *run) newReport(op models.Operation) *Report {
	return &Report{RunID: r.id, Operation: op}
}
