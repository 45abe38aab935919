package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history <database>",
	Short: "Show runs recorded with --history",
	Long: `List recent runs stored in a history database, or the checks of one run.

Examples:
  hostspec history /var/lib/hostspec/history.db
  hostspec history history.db --limit 5
  hostspec history history.db --run 3f0c8f5e-1c5b-4d5e-9d9b-6a4c2f0e7a11`,
	Args: cobra.ExactArgs(1),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the checks recorded for one run ID")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	store, err := history.Open(ctx, args[0])
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	defer store.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	if historyRun != "" {
		rows, err := store.Checks(ctx, historyRun)
		if err != nil {
			return withExit(ExitConfigError, err)
		}
		if len(rows) == 0 {
			return withExit(ExitUsageError, fmt.Errorf("no checks recorded for run %s", historyRun))
		}
		fmt.Fprintln(w, "#\tSTATUS\tCONTROL\tCHECK\tREASON")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.Position, statusText(r.Status), r.Control, r.Operator, r.Reason)
		}
		return nil
	}

	runs, err := store.List(ctx, historyLimit)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	fmt.Fprintln(w, "ID\tSUITE\tSTARTED\tDURATION\tPASSED\tFAILED\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.Suite, r.Started.Local().Format(time.DateTime), r.Duration, r.Passed, r.Failed, r.Skipped)
	}
	return nil
}

func statusText(status string) string {
	switch status {
	case history.StatusPassed:
		return color.GreenString(status)
	case history.StatusFailed:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}
