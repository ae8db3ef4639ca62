package resolve

import (
	"log/slog"

	"github.com/roach88/concord/internal/payload"
	"github.com/roach88/concord/internal/vclock"
)

// Resolver detects conflicts between sync operations and decides how
// each conflicting pair is settled. The zero value is not usable; call
// New.
type Resolver struct {
	cache *Cache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCacheCapacity bounds the pair cache at capacity entries.
func WithCacheCapacity(capacity int) Option {
	return func(r *Resolver) {
		r.cache = NewCache(capacity)
	}
}

// WithCache supplies a pre-built cache, typically shared across
// resolvers or pre-warmed by an earlier pass.
func WithCache(cache *Cache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// New returns a Resolver with a default-capacity pair cache.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewCache(DefaultCacheCapacity)
	}
	return r
}

// Cache exposes the resolver's pair cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// DetectConflict reports whether two operations conflict and, if so,
// the conflict type.
//
// Operations on different entities never conflict, nor do causally
// ordered pairs: applying ordered operations in causal order already
// yields one consistent state. Concurrent and identical clocks leave
// no such order, so the pair is classified by its operation types.
// Reference operations carry no entity state and never conflict.
func (r *Resolver) DetectConflict(a, b Operation) (ConflictType, bool) {
	if !a.SameEntity(b) {
		return "", false
	}
	switch a.Clock.Relate(b.Clock) {
	case vclock.HappensBefore, vclock.HappensAfter:
		return "", false
	}
	kind, ok := classifyPair(a.Type, b.Type)
	if !ok {
		return "", false
	}
	slog.Debug("conflict detected",
		"type", kind,
		"entity_type", a.EntityType,
		"first", a.ID,
		"second", b.ID)
	return kind, true
}

// ResolveConflict decides how a conflicting pair is settled. The
// decision depends only on the two operations, so every replica
// resolves the same pair the same way.
func (r *Resolver) ResolveConflict(a, b Operation, kind ConflictType) Resolution {
	var res Resolution
	switch kind {
	case CreateCreate:
		// The create carrying more data wins; equally sized payloads
		// fall back to the later timestamp.
		switch fa, fb := a.Payload.FieldCount(), b.Payload.FieldCount(); {
		case fa > fb:
			res = KeepFirst
		case fb > fa:
			res = KeepSecond
		default:
			res = laterWins(a, b)
		}
	case CreateUpdate:
		// The update presumes the created entity exists, so both
		// survive as one merged operation.
		res = Merge
	case CreateDelete, UpdateDelete:
		res = laterWins(a, b)
	case UpdateUpdate:
		if a.Clock.Relate(b.Clock) == vclock.Concurrent {
			res = Merge
		} else {
			res = laterWins(a, b)
		}
	case DeleteDelete:
		// Deleting twice is idempotent.
		res = KeepFirst
	default:
		slog.Warn("unknown conflict type, keeping first operation",
			"type", kind, "first", a.ID, "second", b.ID)
		res = KeepFirst
	}
	slog.Info("conflict resolved",
		"type", kind,
		"resolution", res,
		"first", a.ID,
		"second", b.ID)
	return res
}

// laterWins keeps the operation with the later timestamp, preferring
// the first on exact ties. It is symmetric: swapping the arguments
// swaps the answer.
func laterWins(a, b Operation) Resolution {
	if a.Timestamp.Before(b.Timestamp) {
		return KeepSecond
	}
	return KeepFirst
}

// MergeUpdates combines two operations on the same entity into one.
// The merged operation keeps the first operation's identity, overlays
// the second payload onto the first, carries the pointwise-maximum
// clock of both inputs and the later of the two timestamps. Because
// the merged clock dominates both inputs, the merge is not detected as
// conflicting with either of them again.
func (r *Resolver) MergeUpdates(a, b Operation) Operation {
	merged := a
	merged.Payload = mergePayloads(a.Payload, b.Payload)
	merged.Clock = a.Clock.MergedWith(b.Clock)
	if b.Timestamp.After(a.Timestamp) {
		merged.Timestamp = b.Timestamp
	}
	return merged
}

func mergePayloads(a, b payload.Object) payload.Object {
	if a == nil && b == nil {
		return nil
	}
	return a.Merge(b)
}
