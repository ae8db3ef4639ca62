package harness

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/concord/internal/resolve"
)

// RunWithGolden executes a scenario, checks its expectations, and
// compares the rendered outcome trace against a golden file stored in
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files after an intentional behavior change, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", scenario.Name, err)
	}

	Assert(t, result)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(RenderTrace(result)))
}

// RenderTrace renders a result as a stable text trace. Conflicts and
// surviving operations are sorted canonically so the trace does not
// depend on detection order or map iteration.
func RenderTrace(result *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", result.Scenario.Name)
	fmt.Fprintf(&b, "operations: %d\n", len(result.Operations))

	if len(result.Outcomes) == 0 {
		b.WriteString("conflicts: none\n")
	} else {
		b.WriteString("conflicts:\n")
		lines := make([]string, 0, len(result.Outcomes))
		for _, outcome := range result.Outcomes {
			lines = append(lines, fmt.Sprintf("  %s first=%s second=%s resolution=%s",
				outcome.Conflict.Type,
				result.Operations[outcome.Conflict.I].ID,
				result.Operations[outcome.Conflict.J].ID,
				outcome.Resolution))
		}
		slices.Sort(lines)
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteString("surviving:\n")
	lines := make([]string, 0, len(result.Surviving))
	for _, op := range result.Surviving {
		lines = append(lines, "  "+renderOperation(op))
	}
	slices.Sort(lines)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

// renderOperation renders one operation on a single line. The payload
// uses canonical encoding and the clock renders in replica order, so
// equal operations always render identically.
func renderOperation(op resolve.Operation) string {
	entity := op.EntityType
	if op.EntityID != "" {
		entity += "/" + op.EntityID
	}

	payloadText := "-"
	if op.Payload != nil {
		payloadText = renderValue(op.Payload)
	}

	return fmt.Sprintf("id=%s type=%s entity=%s t=%s clock=%s payload=%s",
		op.ID,
		op.Type,
		entity,
		op.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		op.Clock,
		payloadText)
}
