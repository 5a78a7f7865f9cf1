// Package tasks orchestrates dataset round trips and schedule runs with real-time progress reporting.
//
// # Core Operations
//
//  1. [ExportEngine.Run] : Whole-dataset export
//     - Walks the tracked entities in dependency order
//     - Encodes each entity's live records into the portable text format
//     - Accumulates per-entity failures without aborting the walk
//     - Assembles a single envelope carrying every file
//
//  2. [ImportEngine.Run] : Snapshot restore
//     - Parses every envelope file, reporting malformed rows individually
//     - Validates records against the model registry and the live dataset
//     - Skips or rejects duplicates by normalized unique tuple
//     - Writes in dependency order so references always resolve
//
//  3. [RecurringEngine.Run] : Schedule materialization
//     - Creates one transaction per due period, catching up missed runs
//     - Applies amounts through atomic balance adjustments
//     - Advances or fails each schedule independently
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced UI rendering. Updates use select with default
// to prevent blocking.
package tasks
