// Package repositories implements SQLite persistence for the run journal.
//
// [JournalRepository] stores one row per completed unit (a playlist exported, a saved collection imported or
// deleted). Entries carry a UUID, the ID of the run that produced them, and a sequence number.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
