// Package tasks mirrors a music library to XSPF files and back.
//
// # Core Operations
//
//  1. [LibraryEngine.ExportAll] : remote library → directory
//     - Drains every playlist, then each playlist's items, page by page
//     - Normalizes items into records, dropping unavailable and local tracks
//     - Writes one file per playlist plus the saved tracks, albums and shows files
//
//  2. [LibraryEngine.Import] : directory or single file → remote library
//     - Resolves each playlist by exact name, creating it when absent
//     - Adds only the entries missing remotely, in file order, 100 per call
//     - Submits saved tracks, albums and shows 50 per call
//
//  3. [DeletionGuard.DeleteAll] : empties the library
//     - One confirmation per collection kind via a [Confirmer]
//     - Unfollows owned playlists one at a time, removes saved items 50 per call
//
// # Building Blocks
//
// [Drain] turns a [PageFetcher] into a full listing. [ApplyInChunks] applies a mutation in fixed-size batches
// and stops at the first failure. The Normalize functions are pure.
//
// # Reporting
//
// Every completed unit (one playlist, or one saved collection) is logged and appended to a [Report].
// When a [Journal] is configured the unit is also persisted; journal failures are logged and ignored.
//
// Errors are wrapped in [shared.UnitError] so the caller learns which unit failed while [errors.Is]
// still matches the underlying sentinel.
package tasks
