package resolve

import "log/slog"

// DefaultBatchSize is the detection window width when callers pass a
// non-positive batch size.
const DefaultBatchSize = 50

// DetectBatch finds conflicting pairs in ops using windowed detection:
// operation i is compared against each later operation inside the
// window of batchSize operations that contains i. Work is bounded at
// O(len(ops) * batchSize) at the cost of missing pairs that straddle a
// window boundary; use DetectGrouped when the input interleaves many
// entities. Conflicts come back ordered by (I, J).
//
// Once a delete/delete pair is found the second delete is skipped for
// the rest of the run, so n copies of the same delete produce n-1
// pairs, not a quadratic set.
func (r *Resolver) DetectBatch(ops []Operation, batchSize int) []Conflict {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var conflicts []Conflict
	processed := make([]bool, len(ops))
	for i := range ops {
		if processed[i] {
			continue
		}
		windowStart := (i / batchSize) * batchSize
		windowEnd := min(windowStart+batchSize, len(ops))
		for j := i + 1; j < windowEnd; j++ {
			if processed[j] {
				continue
			}
			kind, ok := r.detectCached(ops[i], ops[j])
			if !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{I: i, J: j, Type: kind})
			if kind == DeleteDelete {
				processed[j] = true
			}
		}
	}
	slog.Debug("batch detection finished",
		"operations", len(ops),
		"batch_size", batchSize,
		"conflicts", len(conflicts))
	return conflicts
}

// DetectGrouped finds conflicting pairs in ops by partitioning them by
// entity type and running full pairwise detection within each group.
// Unlike DetectBatch it cannot miss a pair, and its cost depends on
// the largest group rather than the whole batch. Groups are visited in
// first-seen order; within a group conflicts are ordered by (I, J).
func (r *Resolver) DetectGrouped(ops []Operation) []Conflict {
	groups := make(map[string][]int)
	var order []string
	for i, op := range ops {
		if _, ok := groups[op.EntityType]; !ok {
			order = append(order, op.EntityType)
		}
		groups[op.EntityType] = append(groups[op.EntityType], i)
	}

	var conflicts []Conflict
	processed := make([]bool, len(ops))
	for _, entityType := range order {
		indices := groups[entityType]
		for x, i := range indices {
			if processed[i] {
				continue
			}
			for _, j := range indices[x+1:] {
				if processed[j] {
					continue
				}
				kind, ok := r.detectCached(ops[i], ops[j])
				if !ok {
					continue
				}
				conflicts = append(conflicts, Conflict{I: i, J: j, Type: kind})
				if kind == DeleteDelete {
					processed[j] = true
				}
			}
		}
	}
	slog.Debug("grouped detection finished",
		"operations", len(ops),
		"groups", len(order),
		"conflicts", len(conflicts))
	return conflicts
}

// detectCached runs DetectConflict through the pair cache. A cached
// "no conflict" answer skips the pair outright; a cached "conflict"
// still re-derives the type, since the cache stores only the boolean.
// Pairs where either operation lacks an id bypass the cache.
func (r *Resolver) detectCached(a, b Operation) (ConflictType, bool) {
	if a.ID == "" || b.ID == "" {
		return r.DetectConflict(a, b)
	}
	if conflicted, ok := r.cache.Get(a.ID, b.ID); ok {
		if !conflicted {
			return "", false
		}
		return r.DetectConflict(a, b)
	}
	kind, found := r.DetectConflict(a, b)
	r.cache.Set(a.ID, b.ID, found)
	return kind, found
}

// ResolveBatch detects conflicts in ops and applies the resolution
// policy, returning the surviving operations. Each detected pair whose
// members are both still unconsumed is settled once; operations no
// resolution consumed pass through unchanged. Output order is
// deterministic for identical input but otherwise unspecified.
func (r *Resolver) ResolveBatch(ops []Operation, batchSize int) []Operation {
	result, _ := r.ResolveBatchOutcomes(ops, batchSize)
	return result
}

// ResolveBatchOutcomes is ResolveBatch plus one Outcome per applied
// resolution, for audit trails and reporting.
func (r *Resolver) ResolveBatchOutcomes(ops []Operation, batchSize int) ([]Operation, []Outcome) {
	conflicts := r.DetectBatch(ops, batchSize)
	return r.applyConflicts(ops, conflicts)
}

// ResolveGroupedOutcomes is ResolveBatchOutcomes with grouped
// detection in place of windowed detection.
func (r *Resolver) ResolveGroupedOutcomes(ops []Operation) ([]Operation, []Outcome) {
	conflicts := r.DetectGrouped(ops)
	return r.applyConflicts(ops, conflicts)
}

func (r *Resolver) applyConflicts(ops []Operation, conflicts []Conflict) ([]Operation, []Outcome) {
	var (
		result   []Operation
		outcomes []Outcome
	)
	consumed := make([]bool, len(ops))
	for _, c := range conflicts {
		if consumed[c.I] || consumed[c.J] {
			continue
		}
		a, b := ops[c.I], ops[c.J]
		res := r.ResolveConflict(a, b, c.Type)
		var kept []Operation
		switch res {
		case KeepFirst:
			kept = []Operation{a}
		case KeepSecond:
			kept = []Operation{b}
		case Merge:
			// A create/update pair merges update onto create no matter
			// which arrived first in the batch.
			if c.Type == CreateUpdate && a.Type != OpCreate {
				a, b = b, a
			}
			kept = []Operation{r.MergeUpdates(a, b)}
		case KeepBoth:
			kept = []Operation{a, b}
		}
		outcomes = append(outcomes, Outcome{Conflict: c, Resolution: res, Result: kept})
		result = append(result, kept...)
		consumed[c.I] = true
		consumed[c.J] = true
	}
	for i, op := range ops {
		if !consumed[i] {
			result = append(result, op)
		}
	}
	slog.Info("batch resolved",
		"operations", len(ops),
		"conflicts", len(conflicts),
		"applied", len(outcomes),
		"surviving", len(result))
	return result, outcomes
}
