package models

import (
	"errors"
	"time"
)

// Operation is the kind of unit recorded in the journal.
type Operation string

const (
	OpExport Operation = "export"
	OpImport Operation = "import"
	OpDelete Operation = "delete"
)

// Status is the outcome of a journaled unit.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// JournalEntry records the outcome of one export, import or delete unit.
type JournalEntry struct {
	id        string
	sequence  int
	runID     string
	operation Operation
	kind      Kind
	name      string
	path      string
	count     int
	status    Status
	errText   string
	createdAt time.Time
}

// NewJournalEntry creates a [JournalEntry] stamped with the current time.
func NewJournalEntry(runID string, op Operation, kind Kind, name, path string, count int, status Status) *JournalEntry {
	return &JournalEntry{
		runID:     runID,
		operation: op,
		kind:      kind,
		name:      name,
		path:      path,
		count:     count,
		status:    status,
		createdAt: time.Now().UTC(),
	}
}

func (e *JournalEntry) ID() string           { return e.id }
func (e *JournalEntry) Sequence() int        { return e.sequence }
func (e *JournalEntry) RunID() string        { return e.runID }
func (e *JournalEntry) Operation() Operation { return e.operation }
func (e *JournalEntry) Kind() Kind           { return e.kind }
func (e *JournalEntry) Name() string         { return e.name }
func (e *JournalEntry) Path() string         { return e.path }
func (e *JournalEntry) Count() int           { return e.count }
func (e *JournalEntry) Status() Status       { return e.status }
func (e *JournalEntry) Error() string        { return e.errText }
func (e *JournalEntry) CreatedAt() time.Time { return e.createdAt }

func (e *JournalEntry) SetID(id string)          { e.id = id }
func (e *JournalEntry) SetSequence(seq int)      { e.sequence = seq }
func (e *JournalEntry) SetError(text string)     { e.errText = text }
func (e *JournalEntry) SetCreatedAt(t time.Time) { e.createdAt = t }

// Validate checks required fields.
func (e *JournalEntry) Validate() error {
	if e.runID == "" {
		return errors.New("run ID is required")
	}
	switch e.operation {
	case OpExport, OpImport, OpDelete:
	default:
		return errors.New("invalid operation")
	}
	if _, err := ParseKind(string(e.kind)); err != nil {
		return err
	}
	switch e.status {
	case StatusOK, StatusSkipped, StatusFailed:
	default:
		return errors.New("invalid status")
	}
	if e.count < 0 {
		return errors.New("count cannot be negative")
	}
	return nil
}
