package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the hostspec configuration
type Config struct {
	Timeout   int               `json:"timeout,omitempty"` // milliseconds
	Shell     *string           `json:"shell,omitempty"`
	Dir       string            `json:"dir,omitempty"` // working directory for command subjects
	Output    string            `json:"output,omitempty"`
	Bail      *bool             `json:"bail,omitempty"`
	Verbose   *bool             `json:"verbose,omitempty"`
	NoColor   *bool             `json:"noColor,omitempty"`
	History   string            `json:"history,omitempty"` // SQLite database path
	Variables map[string]string `json:"variables,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// TimeoutDuration returns the command timeout as a duration
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetShell returns the shell for command subjects, defaulting to sh. An
// explicit empty string disables the shell.
func (c *Config) GetShell() string {
	if c.Shell == nil {
		return "sh"
	}
	return *c.Shell
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hostspec.config.json",
	"hostspec.config.json",
	".hostspecrc",
}

// LoadConfig loads configuration from the specified path or searches the
// current directory for one of ConfigFilenames
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory and
// returns defaults when none exists
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if config.Timeout < 0 {
		return nil, fmt.Errorf("parsing config %s: timeout must not be negative", path)
	}
	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Shell != nil {
		result.Shell = other.Shell
	}
	if other.Dir != "" {
		result.Dir = other.Dir
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.History != "" {
		result.History = other.History
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Variables) > 0 {
		vars := make(map[string]string, len(c.Variables)+len(other.Variables))
		for k, v := range c.Variables {
			vars[k] = v
		}
		for k, v := range other.Variables {
			vars[k] = v
		}
		result.Variables = vars
	}

	if len(other.Tags) > 0 {
		result.Tags = other.Tags
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
