package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// ErrEntryNotFound is returned by [JournalRepository.Get] for unknown IDs.
var ErrEntryNotFound = errors.New("journal entry not found")

var _ models.Repository[*models.JournalEntry] = (*JournalRepository)(nil)

const journalColumns = `id, sequence, run_id, operation, kind, name, path, count, status, error, created_at`

// JournalRepository implements models.Repository[*models.JournalEntry] on the journal table.
//
// It also satisfies tasks.Journal, so the engine can record units directly.
type JournalRepository struct {
	db *sql.DB
}

// NewJournalRepository creates a new JournalRepository with the given database connection
func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Create inserts an entry with a generated ID and the next journal sequence
func (r *JournalRepository) Create(entry *models.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "journal")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `INSERT INTO journal (` + journalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Exec(query,
		id,
		sequence,
		entry.RunID(),
		string(entry.Operation()),
		string(entry.Kind()),
		entry.Name(),
		entry.Path(),
		entry.Count(),
		string(entry.Status()),
		entry.Error(),
		entry.CreatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	entry.SetID(id)
	entry.SetSequence(sequence)
	return nil
}

// Record stores entry. Satisfies tasks.Journal.
func (r *JournalRepository) Record(ctx context.Context, entry *models.JournalEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Create(entry)
}

// Get retrieves an entry by ID
func (r *JournalRepository) Get(id string) (*models.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal WHERE id = ?`

	entry, err := scanEntry(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return entry, err
}

// List retrieves entries newest first.
//
// Supported criteria: "run_id", "operation", "kind" and "status" (strings) and "limit" (int, 0 for no limit).
func (r *JournalRepository) List(criteria map[string]any) ([]*models.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal WHERE 1 = 1`
	args := []any{}

	for _, column := range []string{"run_id", "operation", "kind", "status"} {
		if value, ok := criteria[column].(string); ok && value != "" {
			query += " AND " + column + " = ?"
			args = append(args, value)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []*models.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// LastRunID returns the run ID of the newest entry, or "" for an empty journal.
func (r *JournalRepository) LastRunID() (string, error) {
	var runID string
	err := r.db.QueryRow(`SELECT run_id FROM journal ORDER BY sequence DESC LIMIT 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last run: %w", err)
	}
	return runID, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanEntry scans a single row into a [models.JournalEntry]
func scanEntry(row scanner) (*models.JournalEntry, error) {
	var (
		id        string
		sequence  int
		runID     string
		operation string
		kind      string
		name      string
		path      string
		count     int
		status    string
		errText   string
		createdAt time.Time
	)

	err := row.Scan(&id, &sequence, &runID, &operation, &kind, &name, &path, &count, &status, &errText, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan journal entry: %w", err)
	}

	entry := models.NewJournalEntry(runID, models.Operation(operation), models.Kind(kind), name, path, count, models.Status(status))
	entry.SetID(id)
	entry.SetSequence(sequence)
	entry.SetError(errText)
	entry.SetCreatedAt(createdAt)
	return entry, nil
}
