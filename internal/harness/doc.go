// Package harness runs conflict-resolution conformance scenarios.
//
// A scenario is a YAML document describing a batch of sync operations
// and the expected resolution behavior: which pairs conflict, how each
// conflict resolves, and which operations survive. Scenarios execute
// against a fresh resolver, so runs are deterministic and isolated.
//
// Two verification layers:
//
//   - Assert checks the scenario's explicit expectations (conflicts,
//     resolutions, surviving ids, merged payloads) with testify.
//   - RunWithGolden snapshots a rendered outcome trace and compares it
//     against testdata/golden/<name>.golden via goldie. Run tests with
//     -update to regenerate goldens after an intentional change.
//
// Scenario files live in testdata/scenarios. Loading is strict: unknown
// YAML fields are errors, catching typos like "expected:" for
// "expect:".
package harness
