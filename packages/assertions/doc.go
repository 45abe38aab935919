// Package assertions evaluates hostspec checks.
//
// An Evaluator wraps one probed subject and interprets any number of checks
// against it:
//   - File metadata (exist, be directory, be owned by root, size > 25)
//   - Access for the running process (be readable)
//   - Content matching (content match "authenticator = standalone")
//   - Structured content (ini server, json .version)
//   - Command streams and exit status (stdout match /dns-powerdns/)
//
// Failed checks carry a Reason from the check package, the expected and
// actual values, and for content mismatches a unified diff.
package assertions
