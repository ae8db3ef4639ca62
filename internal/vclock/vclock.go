package vclock

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Relation describes the causal relationship between two version vectors.
type Relation int

const (
	// Identical means both vectors carry the same effective mapping.
	Identical Relation = iota

	// HappensBefore means the other vector strictly dominates this one.
	HappensBefore

	// HappensAfter means this vector strictly dominates the other.
	HappensAfter

	// Concurrent means each vector is ahead for at least one replica.
	Concurrent
)

// String returns the snake_case name used in logs and rendered output.
func (r Relation) String() string {
	switch r {
	case Identical:
		return "identical"
	case HappensBefore:
		return "happens_before"
	case HappensAfter:
		return "happens_after"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// VersionVector is a per-replica logical clock.
//
// Counters are strictly positive in the stored form; a missing replica id
// reads as 0. Construction and decoding normalize zero or negative entries
// away, so there is exactly one representation per effective mapping.
//
// A nil *VersionVector behaves as an empty vector for all read operations.
// Mutating methods require a non-nil receiver.
type VersionVector struct {
	counters  map[string]int64
	hash      uint64
	hashValid bool
}

// New returns an empty version vector.
func New() *VersionVector {
	return &VersionVector{counters: make(map[string]int64)}
}

// FromMap builds a vector from a replica-to-counter mapping.
// Entries with counter <= 0 are dropped; the map is copied.
func FromMap(m map[string]int64) *VersionVector {
	counters := make(map[string]int64, len(m))
	for id, c := range m {
		if c > 0 {
			counters[id] = c
		}
	}
	return &VersionVector{counters: counters}
}

// readMap returns the underlying counters, or nil for a nil vector.
// Reading from a nil map is safe.
func (v *VersionVector) readMap() map[string]int64 {
	if v == nil {
		return nil
	}
	return v.counters
}

// invalidate drops the cached hash after a mutation.
func (v *VersionVector) invalidate() {
	v.hashValid = false
}

// Get returns the counter for a replica, 0 if absent.
func (v *VersionVector) Get(replica string) int64 {
	return v.readMap()[replica]
}

// Len returns the number of replicas with a nonzero counter.
func (v *VersionVector) Len() int {
	return len(v.readMap())
}

// Increment bumps the replica's counter by one and returns the new value.
func (v *VersionVector) Increment(replica string) int64 {
	if v.counters == nil {
		v.counters = make(map[string]int64)
	}
	v.counters[replica]++
	v.invalidate()
	return v.counters[replica]
}

// Merge folds other into v, taking the pointwise maximum per replica.
func (v *VersionVector) Merge(other *VersionVector) {
	changed := false
	for id, c := range other.readMap() {
		if c > v.counters[id] {
			if v.counters == nil {
				v.counters = make(map[string]int64)
			}
			v.counters[id] = c
			changed = true
		}
	}
	if changed {
		v.invalidate()
	}
}

// MergedWith returns the pointwise maximum of v and other as a new vector.
// Neither input is modified.
func (v *VersionVector) MergedWith(other *VersionVector) *VersionVector {
	merged := v.Clone()
	merged.Merge(other)
	return merged
}

// ToMap returns a copy of the effective mapping.
func (v *VersionVector) ToMap() map[string]int64 {
	m := v.readMap()
	out := make(map[string]int64, len(m))
	maps.Copy(out, m)
	return out
}

// Clone returns an independent copy of v, preserving the cached hash.
func (v *VersionVector) Clone() *VersionVector {
	if v == nil {
		return New()
	}
	out := &VersionVector{
		counters:  make(map[string]int64, len(v.counters)),
		hash:      v.hash,
		hashValid: v.hashValid,
	}
	maps.Copy(out.counters, v.counters)
	return out
}

// Replicas returns the replica ids in ascending byte order.
func (v *VersionVector) Replicas() []string {
	m := v.readMap()
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Delta returns the entries where other's counter exceeds v's, carrying
// other's counters. Applying the result to v with ApplyDelta brings v up
// to date with other without transmitting the full vector.
func (v *VersionVector) Delta(other *VersionVector) map[string]int64 {
	delta := make(map[string]int64)
	for id, c := range other.readMap() {
		if c > v.Get(id) {
			delta[id] = c
		}
	}
	return delta
}

// ApplyDelta merges a delta mapping into v, taking the pointwise maximum.
// Entries that do not exceed the current counter are ignored.
func (v *VersionVector) ApplyDelta(delta map[string]int64) {
	changed := false
	for id, c := range delta {
		if c > v.counters[id] {
			if v.counters == nil {
				v.counters = make(map[string]int64)
			}
			v.counters[id] = c
			changed = true
		}
	}
	if changed {
		v.invalidate()
	}
}

// PruneInactiveEntries removes every entry with counter <= minValue and
// returns the number removed.
//
// Pruning forgets causal history: a pruned replica that reappears will
// look concurrent with everything it previously ordered against. Call
// this only once the affected replicas are known to be permanently
// retired.
func (v *VersionVector) PruneInactiveEntries(minValue int64) int {
	pruned := 0
	for id, c := range v.counters {
		if c <= minValue {
			delete(v.counters, id)
			pruned++
		}
	}
	if pruned > 0 {
		v.invalidate()
	}
	return pruned
}

// Relate determines the causal relationship between v and other.
//
// Single pass over both mappings: first v's entries against other, then
// other's entries not present in v. As soon as both sides have been seen
// to be ahead somewhere the vectors are Concurrent.
func (v *VersionVector) Relate(other *VersionVector) Relation {
	self := v.readMap()
	om := other.readMap()

	var selfGreater, otherGreater bool
	for id, c := range self {
		oc := om[id]
		if c > oc {
			selfGreater = true
		} else if c < oc {
			otherGreater = true
		}
		if selfGreater && otherGreater {
			return Concurrent
		}
	}
	for id, oc := range om {
		if _, seen := self[id]; !seen && oc > 0 {
			otherGreater = true
		}
		if selfGreater && otherGreater {
			return Concurrent
		}
	}

	switch {
	case selfGreater:
		return HappensAfter
	case otherGreater:
		return HappensBefore
	default:
		return Identical
	}
}

// Equal reports whether v and other carry the same effective mapping.
func (v *VersionVector) Equal(other *VersionVector) bool {
	return maps.Equal(v.readMap(), other.readMap())
}

// Dominates reports whether v happens after or is identical to other.
func (v *VersionVector) Dominates(other *VersionVector) bool {
	rel := v.Relate(other)
	return rel == HappensAfter || rel == Identical
}

// DominatedBy reports whether v happens before or is identical to other.
func (v *VersionVector) DominatedBy(other *VersionVector) bool {
	rel := v.Relate(other)
	return rel == HappensBefore || rel == Identical
}

// ConcurrentWith reports whether neither vector dominates the other.
func (v *VersionVector) ConcurrentWith(other *VersionVector) bool {
	return v.Relate(other) == Concurrent
}

// Hash returns a digest of the effective mapping for cheap equality
// screening. The value is cached and recomputed only after a mutation.
// Equal vectors always hash equal; unequal vectors may collide.
func (v *VersionVector) Hash() uint64 {
	if v == nil {
		return 0
	}
	if v.hashValid {
		return v.hash
	}

	// Fold sorted entries so the digest is independent of map order.
	var h uint64
	for _, id := range v.Replicas() {
		var idh uint64
		for i := 0; i < len(id); i++ {
			idh = idh*31 + uint64(id[i])
		}
		h = h*37 + idh
		h = h*37 + uint64(v.counters[id])
	}

	v.hash = h
	v.hashValid = true
	return h
}

// String renders the vector as {replica:counter, ...} in replica order.
func (v *VersionVector) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range v.Replicas() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%d", id, v.counters[id])
	}
	b.WriteByte('}')
	return b.String()
}

// SetRelation summarizes the causal relationship across a set of vectors.
type SetRelation int

const (
	// SetIdentical means every pair of vectors is identical.
	SetIdentical SetRelation = iota

	// SetOrdered means a total causal order exists across the set.
	SetOrdered

	// SetDivergent means at least one pair is concurrent.
	SetDivergent
)

// String returns the snake_case name used in rendered output.
func (s SetRelation) String() string {
	switch s {
	case SetIdentical:
		return "identical"
	case SetOrdered:
		return "ordered"
	case SetDivergent:
		return "divergent"
	default:
		return fmt.Sprintf("set_relation(%d)", int(s))
	}
}

// RelateAll classifies a set of vectors: SetIdentical when all pairs are
// identical, SetDivergent when any pair is concurrent, SetOrdered
// otherwise. Sets of zero or one vectors are SetIdentical.
func RelateAll(vectors ...*VersionVector) SetRelation {
	ordered := false
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			switch vectors[i].Relate(vectors[j]) {
			case Concurrent:
				return SetDivergent
			case HappensBefore, HappensAfter:
				ordered = true
			}
		}
	}
	if ordered {
		return SetOrdered
	}
	return SetIdentical
}
