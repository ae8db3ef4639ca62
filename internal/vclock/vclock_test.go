package vclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionVector_New_Empty(t *testing.T) {
	v := New()
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, int64(0), v.Get("replica-a"))
}

func TestVersionVector_Increment(t *testing.T) {
	v := New()
	assert.Equal(t, int64(1), v.Increment("replica-a"))
	assert.Equal(t, int64(2), v.Increment("replica-a"))
	assert.Equal(t, int64(1), v.Increment("replica-b"))

	assert.Equal(t, int64(2), v.Get("replica-a"))
	assert.Equal(t, int64(1), v.Get("replica-b"))
	assert.Equal(t, int64(0), v.Get("replica-c"))
}

func TestVersionVector_FromMap_NormalizesNonPositive(t *testing.T) {
	v := FromMap(map[string]int64{"a": 3, "b": 0, "c": -7})
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, int64(3), v.Get("a"))

	// {b:0} and {} are the same effective mapping.
	assert.True(t, FromMap(map[string]int64{"b": 0}).Equal(New()))
}

func TestVersionVector_Merge_PointwiseMax(t *testing.T) {
	a := FromMap(map[string]int64{"a": 2, "b": 1})
	b := FromMap(map[string]int64{"a": 1, "c": 2})

	a.Merge(b)
	assert.Equal(t, int64(2), a.Get("a"))
	assert.Equal(t, int64(1), a.Get("b"))
	assert.Equal(t, int64(2), a.Get("c"))

	// The source is untouched.
	assert.Equal(t, int64(1), b.Get("a"))
	assert.Equal(t, int64(0), b.Get("b"))
}

func TestVersionVector_MergedWith_DominatesBoth(t *testing.T) {
	a := FromMap(map[string]int64{"a": 2, "b": 1})
	b := FromMap(map[string]int64{"b": 3, "c": 1})

	m := a.MergedWith(b)
	assert.True(t, m.Dominates(a))
	assert.True(t, m.Dominates(b))

	// Inputs unchanged.
	assert.Equal(t, int64(1), a.Get("b"))
	assert.Equal(t, int64(0), a.Get("c"))
}

func TestVersionVector_Relate(t *testing.T) {
	tests := []struct {
		name string
		a    map[string]int64
		b    map[string]int64
		want Relation
	}{
		{"both empty", nil, nil, Identical},
		{"same mapping", map[string]int64{"a": 1, "b": 2}, map[string]int64{"a": 1, "b": 2}, Identical},
		{"empty before any", nil, map[string]int64{"a": 1}, HappensBefore},
		{"strictly ahead", map[string]int64{"a": 2, "b": 1}, map[string]int64{"a": 1, "b": 1}, HappensAfter},
		{"strictly behind", map[string]int64{"a": 1}, map[string]int64{"a": 1, "b": 1}, HappensBefore},
		{"ahead on disjoint replicas", map[string]int64{"a": 1}, map[string]int64{"b": 1}, Concurrent},
		{"crossed counters", map[string]int64{"a": 2, "b": 1}, map[string]int64{"a": 1, "b": 2}, Concurrent},
		{"superset dominates", map[string]int64{"a": 1, "b": 1, "c": 1}, map[string]int64{"b": 1}, HappensAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := FromMap(tt.a)
			b := FromMap(tt.b)
			assert.Equal(t, tt.want, a.Relate(b))

			// Antisymmetry: the reverse comparison flips Before/After and
			// preserves Identical/Concurrent.
			want := tt.want
			switch want {
			case HappensBefore:
				want = HappensAfter
			case HappensAfter:
				want = HappensBefore
			}
			assert.Equal(t, want, b.Relate(a))
		})
	}
}

func TestVersionVector_Relate_NilIsEmpty(t *testing.T) {
	var nilVec *VersionVector
	one := FromMap(map[string]int64{"a": 1})

	assert.Equal(t, Identical, nilVec.Relate(nil))
	assert.Equal(t, HappensBefore, nilVec.Relate(one))
	assert.Equal(t, HappensAfter, one.Relate(nilVec))
	assert.Equal(t, int64(0), nilVec.Get("a"))
	assert.Equal(t, 0, nilVec.Len())
}

func TestVersionVector_Predicates(t *testing.T) {
	base := FromMap(map[string]int64{"a": 1})
	ahead := FromMap(map[string]int64{"a": 2})
	side := FromMap(map[string]int64{"b": 1})

	assert.True(t, ahead.Dominates(base))
	assert.True(t, ahead.Dominates(ahead.Clone()), "identical counts as dominating")
	assert.False(t, base.Dominates(ahead))

	assert.True(t, base.DominatedBy(ahead))
	assert.False(t, ahead.DominatedBy(base))

	assert.True(t, base.ConcurrentWith(side))
	assert.False(t, base.ConcurrentWith(ahead))
}

func TestVersionVector_Delta_RoundTrip(t *testing.T) {
	local := FromMap(map[string]int64{"a": 2, "b": 1})
	remote := FromMap(map[string]int64{"a": 3, "b": 1, "c": 4})

	delta := local.Delta(remote)
	assert.Equal(t, map[string]int64{"a": 3, "c": 4}, delta)

	local.ApplyDelta(delta)
	assert.True(t, local.Dominates(remote))
	assert.True(t, remote.DominatedBy(local))
}

func TestVersionVector_Delta_EmptyWhenDominating(t *testing.T) {
	local := FromMap(map[string]int64{"a": 5})
	remote := FromMap(map[string]int64{"a": 3})

	assert.Empty(t, local.Delta(remote))
}

func TestVersionVector_ApplyDelta_IgnoresStaleEntries(t *testing.T) {
	v := FromMap(map[string]int64{"a": 5})
	v.ApplyDelta(map[string]int64{"a": 3, "b": 0, "c": -1})

	assert.Equal(t, int64(5), v.Get("a"))
	assert.Equal(t, 1, v.Len())
}

func TestVersionVector_PruneInactiveEntries(t *testing.T) {
	v := FromMap(map[string]int64{"a": 1, "b": 5, "c": 2, "d": 10})

	pruned := v.PruneInactiveEntries(2)
	assert.Equal(t, 2, pruned, "entries at or below the threshold go")
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, int64(5), v.Get("b"))
	assert.Equal(t, int64(10), v.Get("d"))

	assert.Equal(t, 0, v.PruneInactiveEntries(2))
}

func TestVersionVector_Hash_CachedAndInvalidated(t *testing.T) {
	v := FromMap(map[string]int64{"a": 1, "b": 2})
	h1 := v.Hash()
	assert.Equal(t, h1, v.Hash(), "hash is stable between mutations")

	v.Increment("a")
	assert.NotEqual(t, h1, v.Hash(), "mutation must produce a fresh digest")
}

func TestVersionVector_Hash_AgreesWithEqual(t *testing.T) {
	a := FromMap(map[string]int64{"x": 7, "y": 3})
	b := New()
	b.ApplyDelta(map[string]int64{"y": 3})
	b.ApplyDelta(map[string]int64{"x": 7})

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash(), "equal vectors hash equal regardless of construction order")
}

func TestVersionVector_Clone_Independent(t *testing.T) {
	a := FromMap(map[string]int64{"a": 1})
	b := a.Clone()
	b.Increment("a")

	assert.Equal(t, int64(1), a.Get("a"))
	assert.Equal(t, int64(2), b.Get("a"))
}

func TestVersionVector_String_Sorted(t *testing.T) {
	v := FromMap(map[string]int64{"b": 2, "a": 1})
	assert.Equal(t, "{a:1, b:2}", v.String())
	assert.Equal(t, "{}", New().String())
}

func TestVersionVector_Replicas_Sorted(t *testing.T) {
	v := FromMap(map[string]int64{"zeta": 1, "alpha": 2, "mid": 3})
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, v.Replicas())
}

func TestRelateAll(t *testing.T) {
	a := FromMap(map[string]int64{"a": 1})
	a2 := FromMap(map[string]int64{"a": 1})
	ahead := FromMap(map[string]int64{"a": 2})
	side := FromMap(map[string]int64{"b": 1})

	assert.Equal(t, SetIdentical, RelateAll())
	assert.Equal(t, SetIdentical, RelateAll(a))
	assert.Equal(t, SetIdentical, RelateAll(a, a2))
	assert.Equal(t, SetOrdered, RelateAll(a, a2, ahead))
	assert.Equal(t, SetDivergent, RelateAll(a, ahead, side))
}

func TestRelation_String(t *testing.T) {
	assert.Equal(t, "identical", Identical.String())
	assert.Equal(t, "happens_before", HappensBefore.String())
	assert.Equal(t, "happens_after", HappensAfter.String())
	assert.Equal(t, "concurrent", Concurrent.String())
}
