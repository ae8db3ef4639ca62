package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/concord/internal/payload"
	"github.com/roach88/concord/internal/vclock"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// Test helper to create an operation with sensible defaults. Tests
// override fields on the returned value as needed.
func makeOp(id string, typ OpType, clock map[string]int64) Operation {
	return Operation{
		ID:         id,
		EntityType: "task",
		EntityID:   "task-1",
		Type:       typ,
		Timestamp:  baseTime,
		Clock:      vclock.FromMap(clock),
	}
}

func TestResolver_DetectConflict_ConcurrentPairs(t *testing.T) {
	r := New()

	testCases := []struct {
		name  string
		typeA OpType
		typeB OpType
		want  ConflictType
	}{
		{"create create", OpCreate, OpCreate, CreateCreate},
		{"create update", OpCreate, OpUpdate, CreateUpdate},
		{"update create", OpUpdate, OpCreate, CreateUpdate},
		{"create delete", OpCreate, OpDelete, CreateDelete},
		{"delete create", OpDelete, OpCreate, CreateDelete},
		{"update update", OpUpdate, OpUpdate, UpdateUpdate},
		{"update delete", OpUpdate, OpDelete, UpdateDelete},
		{"delete update", OpDelete, OpUpdate, UpdateDelete},
		{"delete delete", OpDelete, OpDelete, DeleteDelete},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := makeOp("op-a", tc.typeA, map[string]int64{"alpha": 1})
			b := makeOp("op-b", tc.typeB, map[string]int64{"beta": 1})

			kind, ok := r.DetectConflict(a, b)
			require.True(t, ok, "concurrent operations on one entity should conflict")
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestResolver_DetectConflict_OrderedPairsNeverConflict(t *testing.T) {
	r := New()
	earlier := makeOp("op-a", OpUpdate, map[string]int64{"alpha": 1})
	later := makeOp("op-b", OpUpdate, map[string]int64{"alpha": 2})

	_, ok := r.DetectConflict(earlier, later)
	assert.False(t, ok, "happens-before pair should not conflict")

	_, ok = r.DetectConflict(later, earlier)
	assert.False(t, ok, "happens-after pair should not conflict")
}

func TestResolver_DetectConflict_IdenticalClocksConflict(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpUpdate, map[string]int64{"alpha": 2})
	b := makeOp("op-b", OpUpdate, map[string]int64{"alpha": 2})

	kind, ok := r.DetectConflict(a, b)
	require.True(t, ok, "identical clocks leave no causal order to apply in")
	assert.Equal(t, UpdateUpdate, kind)
}

func TestResolver_DetectConflict_DifferentEntityType(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpUpdate, map[string]int64{"alpha": 1})
	b := makeOp("op-b", OpUpdate, map[string]int64{"beta": 1})
	b.EntityType = "note"

	_, ok := r.DetectConflict(a, b)
	assert.False(t, ok)
}

func TestResolver_DetectConflict_DifferentEntityID(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpUpdate, map[string]int64{"alpha": 1})
	b := makeOp("op-b", OpUpdate, map[string]int64{"beta": 1})
	b.EntityID = "task-2"

	_, ok := r.DetectConflict(a, b)
	assert.False(t, ok)
}

func TestResolver_DetectConflict_UnsetEntityIDMatchesAny(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpCreate, map[string]int64{"alpha": 1})
	a.EntityID = "" // offline create, no durable id yet
	b := makeOp("op-b", OpUpdate, map[string]int64{"beta": 1})

	kind, ok := r.DetectConflict(a, b)
	require.True(t, ok, "missing entity id should match any id of the same type")
	assert.Equal(t, CreateUpdate, kind)
}

func TestResolver_DetectConflict_ReferenceNeverConflicts(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpReference, map[string]int64{"alpha": 1})
	b := makeOp("op-b", OpUpdate, map[string]int64{"beta": 1})

	_, ok := r.DetectConflict(a, b)
	assert.False(t, ok)

	_, ok = r.DetectConflict(b, a)
	assert.False(t, ok)
}

func TestResolver_ResolveConflict_CreateCreate_MoreFieldsWins(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpCreate, map[string]int64{"alpha": 1})
	a.Payload = payload.Object{
		"title":  payload.String("groceries"),
		"status": payload.String("open"),
	}
	b := makeOp("op-b", OpCreate, map[string]int64{"beta": 1})
	b.Payload = payload.Object{"title": payload.String("groceries")}
	b.Timestamp = baseTime.Add(time.Hour) // later, but fewer fields

	assert.Equal(t, KeepFirst, r.ResolveConflict(a, b, CreateCreate))
	assert.Equal(t, KeepSecond, r.ResolveConflict(b, a, CreateCreate))
}

func TestResolver_ResolveConflict_CreateCreate_TieBreaksOnTimestamp(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpCreate, map[string]int64{"alpha": 1})
	a.Payload = payload.Object{"title": payload.String("one")}
	b := makeOp("op-b", OpCreate, map[string]int64{"beta": 1})
	b.Payload = payload.Object{"title": payload.String("two")}
	b.Timestamp = baseTime.Add(time.Minute)

	assert.Equal(t, KeepSecond, r.ResolveConflict(a, b, CreateCreate))

	// Equal field counts and equal timestamps keep the first.
	b.Timestamp = a.Timestamp
	assert.Equal(t, KeepFirst, r.ResolveConflict(a, b, CreateCreate))
}

func TestResolver_ResolveConflict_CreateUpdate_AlwaysMerges(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpCreate, map[string]int64{"alpha": 1})
	b := makeOp("op-b", OpUpdate, map[string]int64{"beta": 1})
	b.Timestamp = baseTime.Add(-time.Hour)

	assert.Equal(t, Merge, r.ResolveConflict(a, b, CreateUpdate))
	assert.Equal(t, Merge, r.ResolveConflict(b, a, CreateUpdate))
}

func TestResolver_ResolveConflict_DeleteRules_LaterTimestampWins(t *testing.T) {
	r := New()

	for _, kind := range []ConflictType{CreateDelete, UpdateDelete} {
		t.Run(string(kind), func(t *testing.T) {
			a := makeOp("op-a", OpUpdate, map[string]int64{"alpha": 1})
			b := makeOp("op-b", OpDelete, map[string]int64{"beta": 1})
			b.Timestamp = baseTime.Add(time.Minute)

			assert.Equal(t, KeepSecond, r.ResolveConflict(a, b, kind),
				"later delete should win")
			assert.Equal(t, KeepFirst, r.ResolveConflict(b, a, kind),
				"rule must be symmetric in argument order")

			// The rule looks only at timestamps, so a later update
			// survives an earlier delete.
			a.Timestamp = baseTime.Add(time.Hour)
			assert.Equal(t, KeepFirst, r.ResolveConflict(a, b, kind))
		})
	}
}

func TestResolver_ResolveConflict_UpdateUpdate_ConcurrentMerges(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpUpdate, map[string]int64{"alpha": 1})
	b := makeOp("op-b", OpUpdate, map[string]int64{"beta": 1})

	assert.Equal(t, Merge, r.ResolveConflict(a, b, UpdateUpdate))
}

func TestResolver_ResolveConflict_UpdateUpdate_IdenticalClocksLaterWins(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpUpdate, map[string]int64{"alpha": 2})
	b := makeOp("op-b", OpUpdate, map[string]int64{"alpha": 2})
	b.Timestamp = baseTime.Add(time.Second)

	assert.Equal(t, KeepSecond, r.ResolveConflict(a, b, UpdateUpdate))

	b.Timestamp = a.Timestamp
	assert.Equal(t, KeepFirst, r.ResolveConflict(a, b, UpdateUpdate))
}

func TestResolver_ResolveConflict_DeleteDelete_KeepsFirst(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpDelete, map[string]int64{"alpha": 1})
	b := makeOp("op-b", OpDelete, map[string]int64{"beta": 1})
	b.Timestamp = baseTime.Add(time.Hour)

	assert.Equal(t, KeepFirst, r.ResolveConflict(a, b, DeleteDelete),
		"deletes are interchangeable, timestamps do not matter")
}

func TestResolver_MergeUpdates(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpCreate, map[string]int64{"alpha": 2, "beta": 1})
	a.Payload = payload.Object{
		"title":  payload.String("draft"),
		"status": payload.String("open"),
	}
	b := makeOp("op-b", OpUpdate, map[string]int64{"beta": 3})
	b.Payload = payload.Object{
		"status": payload.String("done"),
		"owner":  payload.String("dana"),
	}
	b.Timestamp = baseTime.Add(time.Minute)

	merged := r.MergeUpdates(a, b)

	assert.Equal(t, "op-a", merged.ID, "identity comes from the first operation")
	assert.Equal(t, OpCreate, merged.Type)
	assert.Equal(t, b.Timestamp, merged.Timestamp, "later timestamp carries over")

	require.NotNil(t, merged.Payload)
	assert.True(t, merged.Payload.Equal(payload.Object{
		"title":  payload.String("draft"),
		"status": payload.String("done"),
		"owner":  payload.String("dana"),
	}), "second payload overlays the first per key")

	assert.True(t, merged.Clock.Dominates(a.Clock))
	assert.True(t, merged.Clock.Dominates(b.Clock))

	// Dominating both inputs keeps the merge from conflicting with
	// either of them again.
	_, ok := r.DetectConflict(merged, a)
	assert.False(t, ok)
	_, ok = r.DetectConflict(merged, b)
	assert.False(t, ok)
}

func TestResolver_MergeUpdates_NilPayloads(t *testing.T) {
	r := New()
	a := makeOp("op-a", OpUpdate, map[string]int64{"alpha": 1})
	b := makeOp("op-b", OpUpdate, map[string]int64{"beta": 1})

	merged := r.MergeUpdates(a, b)
	assert.Nil(t, merged.Payload, "merging two absent payloads stays absent")

	b.Payload = payload.Object{"title": payload.String("x")}
	merged = r.MergeUpdates(a, b)
	assert.True(t, merged.Payload.Equal(b.Payload))
}

func TestResolver_New_CacheOptions(t *testing.T) {
	r := New()
	require.NotNil(t, r.Cache())

	shared := NewCache(8)
	r = New(WithCache(shared))
	assert.Same(t, shared, r.Cache())

	r = New(WithCacheCapacity(16))
	require.NotNil(t, r.Cache())
	assert.Equal(t, 0, r.Cache().Len())
}
