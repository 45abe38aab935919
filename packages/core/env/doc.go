// Package env resolves variables in suite subjects.
//
// It provides functionality for:
//   - Variable interpolation using {{variable}} syntax
//   - Process environment lookups using {{$NAME}}
//   - Loading dotenv files (KEY=value, optional export prefix)
package env
