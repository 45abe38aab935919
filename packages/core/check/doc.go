// Package check defines the declarative model evaluated by hostspec.
//
// A Suite holds ordered Controls. Each Control names one subject, a file path
// or a command string, and the Checks asserted about it. A Check carries a
// Predicate, a tagged variant whose Kind selects the condition:
//   - Existence and type (exist, be directory, be file, be symlink)
//   - Ownership (be owned by, be grouped into)
//   - Access for the running process (be readable, be writable, be executable)
//   - Metadata comparisons (mode, size)
//   - Content and command stream matching (match, contains, line)
//   - Structured content (ini key, JSON path)
//   - Command exit status
package check
