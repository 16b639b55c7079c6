// Package models defines the domain entities shared by the sync engine, the playlist codec and the run journal.
//
// The package contains two categories of types:
//
// 1. Library types: normalized views of remote library state
//   - [Record] : one track, album or show reduced to title, artists and URI
//   - [Collection] : an ordered group of records tagged with a [Kind]
//
// 2. Persistent entities: database-backed models with full lifecycle management
//   - [JournalEntry] : the recorded outcome of one export, import or delete unit
//
// Persistent entities implement the [Model] interface providing IDs, timestamps and validation.
// The [Repository] interface defines the data access operations the journal needs.
package models
