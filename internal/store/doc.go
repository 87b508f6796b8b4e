// Package store provides SQLite-backed durable storage for the submission
// queue and scoring results.
//
// Two tables:
//   - Submissions: candidate circuit layouts queued for scoring
//   - Results: one verdict per scored submission
//
// Writes are idempotent: duplicate submission IDs and duplicate results
// are silently ignored, so re-running a scoring batch never flips an
// existing verdict. ListPending orders by (submitted_at, id COLLATE
// BINARY) so batches are processed in a deterministic order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
