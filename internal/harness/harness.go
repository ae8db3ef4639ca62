package harness

import (
	"fmt"

	"github.com/roach88/concord/internal/payload"
	"github.com/roach88/concord/internal/resolve"
	"github.com/roach88/concord/internal/vclock"
)

// Result captures one scenario execution.
type Result struct {
	// Scenario is the executed scenario.
	Scenario *Scenario

	// Operations is the converted input batch, in scenario order.
	Operations []resolve.Operation

	// Surviving is the resolver's output batch.
	Surviving []resolve.Operation

	// Outcomes lists every applied resolution.
	Outcomes []resolve.Outcome
}

// Run executes a scenario against a fresh resolver.
func Run(scenario *Scenario) (*Result, error) {
	ops, err := convertOperations(scenario.Operations)
	if err != nil {
		return nil, err
	}

	resolver := resolve.New()

	var (
		surviving []resolve.Operation
		outcomes  []resolve.Outcome
	)
	if scenario.Grouped {
		surviving, outcomes = resolver.ResolveGroupedOutcomes(ops)
	} else {
		surviving, outcomes = resolver.ResolveBatchOutcomes(ops, scenario.BatchSize)
	}

	return &Result{
		Scenario:   scenario,
		Operations: ops,
		Surviving:  surviving,
		Outcomes:   outcomes,
	}, nil
}

// convertOperations turns YAML operation documents into resolver
// operations.
func convertOperations(docs []OperationDoc) ([]resolve.Operation, error) {
	ops := make([]resolve.Operation, 0, len(docs))
	for i, doc := range docs {
		opType, err := resolve.ParseOpType(doc.Type)
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}

		obj, err := payload.ObjectFromAny(doc.Payload)
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: payload: %w", i, err)
		}

		var clock *vclock.VersionVector
		if doc.Clock != nil {
			clock = vclock.FromMap(doc.Clock)
		}

		ops = append(ops, resolve.Operation{
			ID:         doc.ID,
			EntityType: doc.EntityType,
			EntityID:   doc.EntityID,
			Type:       opType,
			Timestamp:  doc.Timestamp.UTC(),
			Clock:      clock,
			Payload:    obj,
		})
	}
	return ops, nil
}
