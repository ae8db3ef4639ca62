// Package txlog provides a SQLite-backed audit log for synchronization
// runs.
//
// Each synchronization session owns one Handler, which drives a single
// transaction through its lifecycle:
//
//	Pending -> InProgress -> {Completed | Failed | RolledBack}
//
// Terminal states are final: once a transaction is committed, rolled
// back, or failed, its row is never mutated again. Rollback and failure
// additionally append an explanatory step so the audit trail records
// why the transaction ended.
//
// Reads (Get, ListRecent, ListForEntity, ListFailedSince) always go to
// storage, never to handler memory, because queries may target
// transactions recorded by other sessions.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: steps must reference an existing transaction
//
// Timestamps are persisted as fixed-width RFC 3339 UTC text (nine
// fractional digits), so lexicographic ORDER BY agrees with
// chronological order. Durations are measured with monotonic clock
// readings, never wall-clock subtraction across processes.
package txlog
