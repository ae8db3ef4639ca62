// Package vclock implements version vectors for causal ordering of
// replicated operations.
//
// A VersionVector maps replica ids to monotonically increasing counters.
// A missing replica means counter 0; the stored form never contains
// zero or negative entries, so equality, hashing, and both codecs all
// operate on one canonical representation.
//
// CAUSALITY:
//
// Two vectors are compared with Relate, which returns one of four
// relations:
//   - Identical: same effective mapping
//   - HappensBefore: the other vector strictly dominates this one
//   - HappensAfter: this vector strictly dominates the other
//   - Concurrent: each side is ahead for at least one replica
//
// Only Concurrent pairs can conflict; ordered pairs are reconciled by
// taking the later side.
//
// ENCODINGS:
//
// MarshalBinary/UnmarshalBinary implement the compact wire format
// (little-endian, entries sorted by replica id). Compress produces a
// run-length form that collapses runs of equal counters across the
// sorted replica order. Both round-trip exactly.
//
// Vectors are not safe for concurrent mutation. Share values only after
// all writers are done, or clone per goroutine.
package vclock
