package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Suites   []JSONSuite `json:"suites"`
	Errors   []string    `json:"errors,omitempty"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary counts checks across every suite.
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type JSONSuite struct {
	Name     string        `json:"name"`
	File     string        `json:"file,omitempty"`
	Summary  JSONSummary   `json:"summary"`
	Duration float64       `json:"duration"`
	Timings  *JSONTimings  `json:"timings,omitempty"`
	Controls []JSONControl `json:"controls"`
}

// JSONTimings holds control duration percentiles in milliseconds.
type JSONTimings struct {
	Count int64   `json:"count"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Max   float64 `json:"max"`
}

type JSONControl struct {
	Name       string      `json:"name"`
	Subject    string      `json:"subject"`
	Kind       string      `json:"kind"`
	Tags       []string    `json:"tags,omitempty"`
	Passed     bool        `json:"passed"`
	Skipped    bool        `json:"skipped,omitempty"`
	SkipReason string      `json:"skipReason,omitempty"`
	Duration   float64     `json:"duration"`
	Error      string      `json:"error,omitempty"`
	Checks     []JSONCheck `json:"checks,omitempty"`
}

type JSONCheck struct {
	Operator string `json:"operator"`
	Passed   bool   `json:"passed"`
	Reason   string `json:"reason,omitempty"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Message  string `json:"message,omitempty"`
	Diff     string `json:"diff,omitempty"`
}

// JSONFormatter formats check results as JSON
type JSONFormatter struct {
	writer io.Writer
	suites []JSONSuite
	errors []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		suites: make([]JSONSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	suite := JSONSuite{
		Name: result.Suite,
		File: result.File,
		Summary: JSONSummary{
			Total:   result.Total(),
			Passed:  result.Passed,
			Failed:  result.Failed,
			Skipped: result.Skipped,
		},
		Duration: millis(result.Duration),
		Controls: make([]JSONControl, 0, len(result.Results)),
	}
	if t := result.Timings; t.Count > 0 {
		suite.Timings = &JSONTimings{Count: t.Count, P50: millis(t.P50), P95: millis(t.P95), Max: millis(t.Max)}
	}

	for _, r := range result.Results {
		ctrl := JSONControl{
			Name:     r.Name(),
			Subject:  r.Subject,
			Kind:     r.Kind.String(),
			Tags:     r.Tags,
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: millis(r.Duration),
		}

		if r.SkipReason != "" && r.SkipReason != runner.SkipFiltered {
			ctrl.SkipReason = r.SkipReason
		}

		if r.Error != nil {
			ctrl.Error = r.Error.Error()
		}

		for _, c := range r.Checks {
			ctrl.Checks = append(ctrl.Checks, JSONCheck{
				Operator: c.Operator,
				Passed:   c.Passed,
				Reason:   c.Reason.String(),
				Expected: c.Expected,
				Actual:   c.Actual,
				Message:  c.Message,
				Diff:     c.Diff,
			})
		}

		suite.Controls = append(suite.Controls, ctrl)
	}

	f.suites = append(f.suites, suite)
}

// FormatError records a suite that could not be loaded or run. Control
// level errors travel with their results instead.
func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	for _, s := range f.suites {
		summary.Total += s.Summary.Total
		summary.Passed += s.Summary.Passed
		summary.Failed += s.Summary.Failed
		summary.Skipped += s.Summary.Skipped
	}

	output := JSONOutput{
		Summary:  summary,
		Suites:   f.suites,
		Errors:   f.errors,
		Duration: millis(totalDuration),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
