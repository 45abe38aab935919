// Package probe reads the subjects hostspec checks.
//
// StatFile snapshots the metadata of a path (type, ownership, permission
// bits, size) and exposes content reads and access(2) tests. Executor runs
// command subjects with captured stdout and stderr under a timeout.
//
// Failures are returned as *Error values that match ErrNotFound,
// ErrPermissionDenied, ErrExecution or ErrTimeout under errors.Is.
package probe
