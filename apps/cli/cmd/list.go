package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/abdul-hamid-achik/hostspec/packages/core/suite"
	"github.com/abdul-hamid-achik/hostspec/packages/suites"
	"github.com/spf13/cobra"
)

var (
	listBuiltin []string
	listChecks  bool
)

var listCmd = &cobra.Command{
	Use:   "list [file|directory...]",
	Short: "List the controls in hostspec suites",
	Long: `List the controls defined in suite files or built-in suites. Without
arguments, list the built-in suites.

Examples:
  hostspec list
  hostspec list --builtin letsencrypt --checks
  hostspec list ./suites/`,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringSliceVarP(&listBuiltin, "builtin", "b", nil, "List a built-in suite (repeatable)")
	listCmd.Flags().BoolVarP(&listChecks, "checks", "c", false, "Show every check of each control")
}

func listCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 && len(listBuiltin) == 0 {
		fmt.Fprintln(out, "Built-in suites:")
		for _, name := range suites.Names() {
			fmt.Fprintf(out, "  - %s\n", name)
		}
		return nil
	}

	for _, name := range listBuiltin {
		s, ok := suites.Get(name)
		if !ok {
			return withExit(ExitUsageError, fmt.Errorf("unknown built-in suite %q", name))
		}
		fmt.Fprintf(out, "\nbuiltin:%s:\n", name)
		printControls(out, s)
	}

	if len(args) == 0 {
		return nil
	}

	files, err := suite.Collect(args)
	if err != nil {
		return withExit(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExit(ExitUsageError, fmt.Errorf("no *.hostspec.yaml files found"))
	}

	failed := false
	for _, file := range files {
		s, err := suite.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			failed = true
			continue
		}

		fmt.Fprintf(out, "\n%s:\n", file)
		printControls(out, s)
	}

	if failed {
		return withExit(ExitParseError, fmt.Errorf("one or more suites could not be parsed"))
	}
	return nil
}

func printControls(w io.Writer, s *check.Suite) {
	for _, ctrl := range s.Controls {
		fmt.Fprintf(w, "  - %s %s (%d checks)\n", ctrl.Kind, ctrl.Subject, len(ctrl.Checks))
		if ctrl.Title != "" {
			fmt.Fprintf(w, "    title: %s\n", ctrl.Title)
		}
		if len(ctrl.Tags) > 0 {
			fmt.Fprintf(w, "    tags: %s\n", strings.Join(ctrl.Tags, ", "))
		}
		if ctrl.Skip != "" {
			fmt.Fprintf(w, "    skip: %s\n", ctrl.Skip)
		}
		if ctrl.OnlyIf != "" {
			fmt.Fprintf(w, "    only_if: %s\n", ctrl.OnlyIf)
		}
		if listChecks {
			for _, c := range ctrl.Checks {
				fmt.Fprintf(w, "      should %s\n", c.Predicate)
			}
		}
	}
}
