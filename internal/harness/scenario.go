package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conflict-resolution conformance scenario: a batch
// of operations plus the expected detection and resolution outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Operations is the input batch, in order. Order matters: windowed
	// detection compares only within a window, and conflict expectations
	// reference operations by id.
	Operations []OperationDoc `yaml:"operations"`

	// BatchSize overrides the detection window width. Zero uses the
	// resolver default.
	BatchSize int `yaml:"batch_size,omitempty"`

	// Grouped switches from windowed to entity-grouped detection.
	Grouped bool `yaml:"grouped,omitempty"`

	// Expect holds the assertions for this scenario.
	Expect Expect `yaml:"expect"`
}

// OperationDoc is the YAML form of one sync operation.
type OperationDoc struct {
	ID         string           `yaml:"id"`
	EntityType string           `yaml:"entity_type"`
	EntityID   string           `yaml:"entity_id,omitempty"`
	Type       string           `yaml:"type"`
	Timestamp  time.Time        `yaml:"timestamp"`
	Clock      map[string]int64 `yaml:"clock,omitempty"`
	Payload    map[string]any   `yaml:"payload,omitempty"`
}

// Expect holds a scenario's expectations.
type Expect struct {
	// Conflicts lists every conflict that must be detected and applied,
	// identified by the two operation ids in batch order.
	Conflicts []ExpectedConflict `yaml:"conflicts,omitempty"`

	// Kept is the exact set of operation ids expected in the surviving
	// batch, in any order. A merged operation keeps the first input's id.
	Kept []string `yaml:"kept"`

	// Payloads maps a surviving operation id to payload fields that must
	// be present with the given values (subset match).
	Payloads map[string]map[string]any `yaml:"payloads,omitempty"`

	// Clocks maps a surviving operation id to its exact expected vector
	// clock.
	Clocks map[string]map[string]int64 `yaml:"clocks,omitempty"`
}

// ExpectedConflict is one expected detection + resolution.
type ExpectedConflict struct {
	// First and Second are the operation ids of the conflicting pair,
	// in batch order (first index < second index).
	First  string `yaml:"first"`
	Second string `yaml:"second"`

	// Type is the expected conflict type, e.g. "update_update".
	Type string `yaml:"type"`

	// Resolution is the expected decision, e.g. "merge".
	Resolution string `yaml:"resolution"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields,
// malformed YAML, and missing required fields are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expected:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in a directory, sorted by file
// name so test order is stable.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenario dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and
// expectations reference declared operations.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Operations) == 0 {
		return fmt.Errorf("operations list is required and must be non-empty")
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("batch_size must be non-negative")
	}

	ids := make(map[string]bool, len(s.Operations))
	for i, op := range s.Operations {
		if op.ID == "" {
			return fmt.Errorf("operations[%d]: id is required", i)
		}
		if ids[op.ID] {
			return fmt.Errorf("operations[%d]: duplicate id %q", i, op.ID)
		}
		ids[op.ID] = true
		if op.EntityType == "" {
			return fmt.Errorf("operations[%d]: entity_type is required", i)
		}
		if op.Type == "" {
			return fmt.Errorf("operations[%d]: type is required", i)
		}
		if op.Timestamp.IsZero() {
			return fmt.Errorf("operations[%d]: timestamp is required", i)
		}
	}

	if len(s.Expect.Kept) == 0 {
		return fmt.Errorf("expect.kept is required and must be non-empty")
	}
	for i, kept := range s.Expect.Kept {
		if !ids[kept] {
			return fmt.Errorf("expect.kept[%d]: unknown operation id %q", i, kept)
		}
	}
	for i, c := range s.Expect.Conflicts {
		if !ids[c.First] {
			return fmt.Errorf("expect.conflicts[%d]: unknown operation id %q", i, c.First)
		}
		if !ids[c.Second] {
			return fmt.Errorf("expect.conflicts[%d]: unknown operation id %q", i, c.Second)
		}
		if c.Type == "" {
			return fmt.Errorf("expect.conflicts[%d]: type is required", i)
		}
		if c.Resolution == "" {
			return fmt.Errorf("expect.conflicts[%d]: resolution is required", i)
		}
	}
	for id := range s.Expect.Payloads {
		if !ids[id] {
			return fmt.Errorf("expect.payloads: unknown operation id %q", id)
		}
	}
	for id := range s.Expect.Clocks {
		if !ids[id] {
			return fmt.Errorf("expect.clocks: unknown operation id %q", id)
		}
	}

	return nil
}
