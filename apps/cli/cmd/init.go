package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hostspec/packages/core/config"
	"github.com/abdul-hamid-achik/hostspec/packages/core/suite"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a new hostspec project",
	Long: `Initialize a new hostspec project in the current directory.

This creates:
  - .hostspec.config.json    - Configuration file
  - example.hostspec.yaml    - Example suite

Examples:
  hostspec init
  hostspec init ./checks --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleSuite = `# Suites describe files and commands and what should hold for them.
# Run with: hostspec run example.hostspec.yaml
name: example
vars:
  prefix: /opt/letsencrypt
controls:
  - title: certbot checkout
    file: "{{prefix}}"
    tags: [pip]
    checks:
      - type: directory
      - owner: root
      - group: root
      - readable: true
      - size: "> 25"

  - title: certbot configuration
    file: /etc/letsencrypt/cli.ini
    checks:
      - type: file
      - mode: "0644"
      - content: "authenticator = standalone"
      - content:
          line: "# File managed by Salt"
      - ini:
          key: server
          value: https://acme-staging.api.letsencrypt.org/directory

  - title: powerdns plugin installed
    command: "{{prefix}}/bin/certbot plugins"
    only_if: "test -x {{prefix}}/bin/certbot"
    checks:
      - stdout: dns-powerdns
      - stderr:
          contains: error
          not: true
      - exit_status: 0
`

func initCommand(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		dir = args[0]
		if err := os.MkdirAll(dir, 0755); err != nil {
			return withExit(ExitConfigError, fmt.Errorf("failed to create %s: %w", dir, err))
		}
	}

	configFile := filepath.Join(dir, config.ConfigFilenames[0])
	exampleFile := filepath.Join(dir, "example.hostspec.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return withExit(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	if _, err := suite.Parse([]byte(exampleSuite), exampleFile); err != nil {
		return fmt.Errorf("built-in example is invalid: %w", err)
	}

	cfg := config.DefaultConfig()
	cfg.Shell = config.StringPtr("sh")
	cfg.Bail = config.BoolPtr(false)
	cfg.Variables = map[string]string{"prefix": "/opt/letsencrypt"}
	if err := cfg.SaveConfig(configFile); err != nil {
		return withExit(ExitConfigError, fmt.Errorf("failed to create config file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleSuite), 0644); err != nil {
		return withExit(ExitConfigError, fmt.Errorf("failed to create example file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhostspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hostspec run %s' to check this host.\n", exampleFile)

	return nil
}
