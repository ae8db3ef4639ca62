// Package resolve detects and resolves conflicts between replicated
// sync operations.
//
// An Operation is one replica-local mutation of an entity, stamped with
// a version vector. Two operations conflict when they target the same
// entity and their clocks are concurrent or identical; strictly ordered
// pairs never conflict because applying them in causal order already
// yields one consistent outcome.
//
// RESOLUTION POLICY:
//
// Resolution is a pure function of the two operations, so every replica
// that sees the same pair reaches the same outcome with no coordination:
//   - create/create: the payload with more top-level fields wins, later
//     timestamp breaks ties
//   - create/update: always merged; the create establishes identity
//   - create/delete, update/delete: later timestamp wins, symmetric in
//     argument order
//   - update/update: merged when concurrent, later timestamp when the
//     clocks are identical
//   - delete/delete: the first suffices, deletes are idempotent
//
// Merged operations carry the pointwise-maximum of both clocks, so a
// merge causally dominates its inputs and the same conflict is not
// detected again.
//
// BATCH DETECTION:
//
// DetectBatch compares each operation only against its surrounding
// window of batchSize operations, bounding work to O(n * batchSize).
// Pair outcomes are memoized in a bounded LRU cache keyed by unordered
// operation id pairs. DetectGrouped instead partitions by entity type
// and compares exhaustively within each group; prefer it when batches
// interleave many entities, since windowing can miss cross-window pairs.
package resolve
