// Package store provides the SQLite journal of step events.
//
// The journal is append-only:
//   - runs: one row per engine run
//   - step_events: every synchronizer transition, keyed by its
//     content-addressed ID
//
// # Ordering
//
// Events are ordered by their logical seq, never by wall time. Every query
// that returns events uses ORDER BY seq ASC, id COLLATE BINARY ASC so that
// reads are identical across replays.
//
// # Idempotency
//
// Event IDs are content hashes (ir.StepEventID). Writing the same event twice
// is a no-op via ON CONFLICT(id) DO NOTHING.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Store implements engine.Recorder through Record.
package store
