package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/abdul-hamid-achik/hostspec/packages/core/env"
	"github.com/abdul-hamid-achik/hostspec/packages/core/suite"
	"github.com/spf13/cobra"
)

var printSchema bool

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>",
	Short: "Validate hostspec suites without probing the host",
	Long: `Validate suite files against the hostspec schema and decode every
check without touching the files or commands they describe.

Examples:
  hostspec validate web.hostspec.yaml
  hostspec validate ./suites/
  hostspec validate --schema`,
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().BoolVar(&printSchema, "schema", false, "Print the JSON schema suites are validated against")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	if printSchema {
		fmt.Fprintln(cmd.OutOrStdout(), suite.Schema)
		return nil
	}
	if len(args) == 0 {
		return withExit(ExitUsageError, fmt.Errorf("requires at least 1 file or directory"))
	}

	files, err := suite.Collect(args)
	if err != nil {
		return withExit(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExit(ExitUsageError, fmt.Errorf("no *.hostspec.yaml files found"))
	}

	hasErrors := false
	for _, file := range files {
		s, err := suite.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		checks := 0
		for _, ctrl := range s.Controls {
			checks += len(ctrl.Checks)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d controls, %d checks)\n", file, len(s.Controls), checks)
		if names := undefinedVariables(s); len(names) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s: undefined variables %s (set them with --var, --env-file or the config file)\n",
				file, strings.Join(names, ", "))
		}
	}

	if hasErrors {
		return withExit(ExitParseError, fmt.Errorf("validation failed"))
	}

	return nil
}

// undefinedVariables lists the placeholders a suite uses but does not define
// itself, in order of first use.
func undefinedVariables(s *check.Suite) []string {
	resolver := env.NewResolver()
	resolver.SetVariables(s.Variables)

	var names []string
	seen := map[string]bool{}
	collect := func(texts ...string) {
		for _, text := range texts {
			for _, name := range resolver.Unresolved(text) {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}

	for _, ctrl := range s.Controls {
		collect(ctrl.Title, ctrl.Subject, ctrl.Skip, ctrl.OnlyIf)
		for _, c := range ctrl.Checks {
			p := c.Predicate
			collect(p.Name, p.Pattern, p.Section, p.Key, p.Value)
		}
	}
	return names
}
