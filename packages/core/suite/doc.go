// Package suite loads hostspec suite files.
//
// A suite file is YAML named *.hostspec.yaml (or .yml). Each document is
// validated against an embedded JSON schema before it is decoded into a
// check.Suite:
//
//	name: letsencrypt
//	vars:
//	  prefix: /opt
//	controls:
//	  - file: "{{prefix}}/letsencrypt"
//	    checks:
//	      - type: directory
//	      - owner: root
//	  - command: pdns_control rping
//	    checks:
//	      - stdout: PONG
//	      - exit_status: 0
//
// Every check item holds exactly one predicate key, optionally paired with
// "not: true" to negate it.
package suite
