package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/core/runner"
)

// Formats lists the values accepted by New.
var Formats = []string{"console", "json", "junit", "tap"}

type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable formatters buffer results and write them on Flush.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

// New returns the formatter registered under format.
func New(format string, opts Options) (Formatter, error) {
	switch format {
	case "", "console":
		consoleOpts := []ConsoleOption{WithVerbose(opts.Verbose), WithNoColor(opts.NoColor)}
		if opts.Writer != nil {
			consoleOpts = append(consoleOpts, WithWriter(opts.Writer))
		}
		return NewConsoleFormatter(consoleOpts...), nil
	case "json":
		var jsonOpts []JSONOption
		if opts.Writer != nil {
			jsonOpts = append(jsonOpts, JSONWithWriter(opts.Writer))
		}
		return NewJSONFormatter(jsonOpts...), nil
	case "junit":
		var junitOpts []JUnitOption
		if opts.Writer != nil {
			junitOpts = append(junitOpts, JUnitWithWriter(opts.Writer))
		}
		return NewJUnitFormatter(junitOpts...), nil
	case "tap":
		var tapOpts []TAPOption
		if opts.Writer != nil {
			tapOpts = append(tapOpts, TAPWithWriter(opts.Writer))
		}
		return NewTAPFormatter(tapOpts...), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of console, json, junit, tap)", format)
}

// checkName labels one check of a control for per-check formats.
func checkName(cr *runner.ControlResult, i int) string {
	switch {
	case i < len(cr.Checks):
		return cr.Name() + " should " + cr.Checks[i].Operator
	case i < len(cr.Expectations):
		return cr.Name() + " should " + cr.Expectations[i]
	}
	return fmt.Sprintf("%s #%d", cr.Name(), i+1)
}

// formatValue formats a value for display, truncating large values.
func formatValue(v any, maxLen int) string {
	if v == nil {
		return "<none>"
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
