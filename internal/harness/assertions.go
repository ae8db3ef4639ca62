package harness

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/concord/internal/payload"
	"github.com/roach88/concord/internal/resolve"
	"github.com/roach88/concord/internal/vclock"
)

// appliedConflict is the comparable form of one applied resolution.
type appliedConflict struct {
	First      string
	Second     string
	Type       string
	Resolution string
}

// Assert verifies a result against its scenario's expectations.
func Assert(t *testing.T, result *Result) {
	t.Helper()

	assertConflicts(t, result)
	assertKept(t, result)
	assertPayloads(t, result)
	assertClocks(t, result)
}

// assertConflicts checks that exactly the expected conflicts were
// detected and resolved, by operation id.
func assertConflicts(t *testing.T, result *Result) {
	t.Helper()

	actual := make([]appliedConflict, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		actual = append(actual, appliedConflict{
			First:      result.Operations[outcome.Conflict.I].ID,
			Second:     result.Operations[outcome.Conflict.J].ID,
			Type:       outcome.Conflict.Type.String(),
			Resolution: outcome.Resolution.String(),
		})
	}

	expected := make([]appliedConflict, 0, len(result.Scenario.Expect.Conflicts))
	for _, c := range result.Scenario.Expect.Conflicts {
		expected = append(expected, appliedConflict(c))
	}

	sortConflicts(actual)
	sortConflicts(expected)
	assert.Equal(t, expected, actual, "applied conflicts")
}

func sortConflicts(cs []appliedConflict) {
	slices.SortFunc(cs, func(a, b appliedConflict) int {
		if a.First != b.First {
			if a.First < b.First {
				return -1
			}
			return 1
		}
		if a.Second < b.Second {
			return -1
		}
		if a.Second > b.Second {
			return 1
		}
		return 0
	})
}

// assertKept checks the surviving id set, order-insensitively.
func assertKept(t *testing.T, result *Result) {
	t.Helper()

	actual := make([]string, 0, len(result.Surviving))
	for _, op := range result.Surviving {
		actual = append(actual, op.ID)
	}
	expected := slices.Clone(result.Scenario.Expect.Kept)

	slices.Sort(actual)
	slices.Sort(expected)
	assert.Equal(t, expected, actual, "surviving operation ids")
}

// assertPayloads subset-matches expected payload fields on surviving
// operations.
func assertPayloads(t *testing.T, result *Result) {
	t.Helper()

	for id, fields := range result.Scenario.Expect.Payloads {
		op, ok := findSurviving(result, id)
		require.True(t, ok, "expect.payloads references %q, which did not survive", id)

		for key, raw := range fields {
			want, err := payload.FromAny(raw)
			require.NoError(t, err, "expect.payloads[%s].%s", id, key)

			got, present := op.Payload[key]
			if assert.True(t, present, "operation %s payload missing field %q", id, key) {
				assert.True(t, payload.Equal(want, got),
					"operation %s payload field %q = %s, expected %s", id, key, renderValue(got), renderValue(want))
			}
		}
	}
}

// assertClocks exact-matches expected vector clocks on surviving
// operations.
func assertClocks(t *testing.T, result *Result) {
	t.Helper()

	for id, counters := range result.Scenario.Expect.Clocks {
		op, ok := findSurviving(result, id)
		require.True(t, ok, "expect.clocks references %q, which did not survive", id)

		want := vclock.FromMap(counters)
		assert.True(t, want.Equal(op.Clock),
			"operation %s clock = %s, expected %s", id, op.Clock, want)
	}
}

// findSurviving locates a surviving operation by id.
func findSurviving(result *Result, id string) (resolve.Operation, bool) {
	for _, op := range result.Surviving {
		if op.ID == id {
			return op, true
		}
	}
	return resolve.Operation{}, false
}

func renderValue(v payload.Value) string {
	data, err := payload.Encode(v)
	if err != nil {
		return fmt.Sprintf("<unencodable: %v>", err)
	}
	return string(data)
}
