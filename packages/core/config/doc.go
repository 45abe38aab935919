// Package config handles configuration loading for hostspec.
//
// It provides functionality for:
//   - Loading .hostspec.config.json (or an explicit path)
//   - Default configuration values
//   - Merging file values with command-line overrides
package config
