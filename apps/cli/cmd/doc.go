// Package cmd implements the hostspec CLI commands using Cobra.
//
// Available commands:
//   - run: Check the host against suite files or built-in suites
//   - validate: Check suite files against the schema without probing
//   - list: Display the controls defined in suites
//   - init: Create an example suite and configuration file
//   - history: Show runs recorded with --history
//   - version: Show hostspec version information
//
// The run command supports filtering by name and tag, several output
// formats, run history in SQLite and a watch mode that re-checks the host
// when suite files or file subjects change.
package cmd
