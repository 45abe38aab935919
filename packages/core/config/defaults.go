package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30000, // 30 seconds
		Output:  "console",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.Shell == nil &&
		c.Dir == "" &&
		c.Output == defaults.Output &&
		c.Bail == nil &&
		c.Verbose == nil &&
		c.NoColor == nil &&
		c.History == "" &&
		len(c.Variables) == 0 &&
		len(c.Tags) == 0
}
