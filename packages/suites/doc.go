// Package suites holds the suites compiled into the hostspec binary.
//
// Built-in suites are plain Go literals built from the check package
// constructors, so they need no file on disk and can be run with
// "hostspec run --builtin letsencrypt".
package suites
