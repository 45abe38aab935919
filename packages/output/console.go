package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hostspec/packages/core/runner"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Profile: "+displayName(result)))

	for _, r := range result.Results {
		if r.Skipped {
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.Name())
			if r.SkipReason != "" && r.SkipReason != runner.SkipFiltered {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintf(f.writer, "\n")
			continue
		}

		symbol := green("✓")
		if !r.Passed {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name(), cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		for _, c := range r.Checks {
			if c.Passed {
				if f.verbose {
					fmt.Fprintf(f.writer, "    %s %s\n", green("✓"), c.Operator)
				}
				continue
			}
			fmt.Fprintf(f.writer, "    %s %s\n", red("✗"), c.Operator)
			fmt.Fprintf(f.writer, "      %s %s\n", red("→ "+c.Reason.String()+":"), c.Message)
			if c.Expected != nil || c.Actual != nil {
				fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(c.Expected, 100))
				fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(c.Actual, 100))
			}
			if c.Diff != "" {
				for _, line := range strings.Split(strings.TrimRight(c.Diff, "\n"), "\n") {
					switch {
					case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
						line = green(line)
					case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
						line = red(line)
					}
					fmt.Fprintf(f.writer, "      %s\n", line)
				}
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Checks: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Total())
	fmt.Fprintf(f.writer, "Time:   %dms\n", result.Duration.Milliseconds())
	if f.verbose && result.Timings.Count > 0 {
		t := result.Timings
		fmt.Fprintf(f.writer, "Probes: p50 %s, p95 %s, max %s\n", t.P50, t.P95, t.Max)
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hostspec"), version)
}
