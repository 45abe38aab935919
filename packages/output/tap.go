package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/core/runner"
)

// TAPFormatter writes TAP version 13. The plan needs the final count, so
// points are buffered until Flush.
type TAPFormatter struct {
	writer io.Writer
	points []tapPoint
}

type tapPoint struct {
	ok        bool
	desc      string
	directive string
	diag      []tapField
}

type tapField struct {
	key, value string
	block      bool
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		if r.Skipped {
			reason := r.SkipReason
			if reason == "" || reason == runner.SkipFiltered {
				reason = "SKIP"
			}
			for i := 0; i < r.Total; i++ {
				f.points = append(f.points, tapPoint{ok: true, desc: checkName(r, i), directive: "SKIP " + reason})
			}
			continue
		}

		for i, c := range r.Checks {
			p := tapPoint{ok: c.Passed, desc: checkName(r, i)}
			if !c.Passed {
				p.diag = append(p.diag, tapField{key: "reason", value: c.Reason.String()})
				if c.Message != "" {
					p.diag = append(p.diag, tapField{key: "message", value: c.Message})
				}
				p.diag = append(p.diag,
					tapField{key: "expected", value: formatValue(c.Expected, 200)},
					tapField{key: "actual", value: formatValue(c.Actual, 200)},
				)
				if c.Diff != "" {
					p.diag = append(p.diag, tapField{key: "diff", value: c.Diff, block: true})
				}
			}
			f.points = append(f.points, p)
		}
	}
}

func (f *TAPFormatter) FormatError(err error) {
	f.points = append(f.points, tapPoint{
		desc: "load suite",
		diag: []tapField{{key: "reason", value: "SuiteError"}, {key: "message", value: err.Error()}},
	})
}

func (f *TAPFormatter) FormatHeader(version string) {}

func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	var b strings.Builder
	b.WriteString("TAP version 13\n")
	fmt.Fprintf(&b, "1..%d\n", len(f.points))

	for i, p := range f.points {
		status := "ok"
		if !p.ok {
			status = "not ok"
		}
		fmt.Fprintf(&b, "%s %d - %s", status, i+1, p.desc)
		if p.directive != "" {
			fmt.Fprintf(&b, " # %s", p.directive)
		}
		b.WriteByte('\n')

		if len(p.diag) == 0 {
			continue
		}
		b.WriteString("  ---\n")
		for _, d := range p.diag {
			if d.block {
				fmt.Fprintf(&b, "  %s: |\n", d.key)
				for _, line := range strings.Split(strings.TrimRight(d.value, "\n"), "\n") {
					fmt.Fprintf(&b, "    %s\n", line)
				}
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", d.key, escapeYAML(d.value))
		}
		b.WriteString("  ...\n")
	}

	_, err := io.WriteString(f.writer, b.String())
	return err
}

// escapeYAML quotes s when it would not survive as a plain YAML scalar.
func escapeYAML(s string) string {
	if s == "" || strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`\\") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
