// Package runner executes hostspec suites.
//
// The runner handles:
//   - Variable resolution from suite vars, dotenv files and overrides
//   - Name and tag filtering, skip reasons and only_if guards
//   - One probe per control, with every check evaluated against it
//   - Collect-all aggregation, optionally bailing after a failed control
//   - Latency percentiles over control durations
package runner
