package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/abdul-hamid-achik/hostspec/packages/core/runner"
)

// JUnitTestSuites is the <testsuites> root; one child per suite run.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase is a single check. The class name is the control subject.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitProblem `xml:"failure,omitempty"`
	Error     *JUnitProblem `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitProblem is the body of both <failure> and <error>.
type JUnitProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter collects every suite into one report written on Flush.
type JUnitFormatter struct {
	writer io.Writer
	report JUnitTestSuites
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer: os.Stdout,
		report: JUnitTestSuites{Name: "hostspec"},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

// isError reports reasons where the check could not be evaluated, as
// opposed to evaluated and found false.
func isError(r check.Reason) bool {
	switch r {
	case check.ReasonExecutionError, check.ReasonTimeout, check.ReasonInvalidCheck:
		return true
	}
	return false
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	ts := JUnitTestSuite{
		Name:      displayName(result),
		Time:      result.Duration.Seconds(),
		Timestamp: result.Started.Format(time.RFC3339),
	}

	for _, r := range result.Results {
		class := r.Kind.String() + " " + r.Subject

		if r.Skipped {
			for i := 0; i < r.Total; i++ {
				ts.TestCases = append(ts.TestCases, JUnitTestCase{
					Name:      checkName(r, i),
					ClassName: class,
					Skipped:   &JUnitSkipped{Message: r.SkipReason},
				})
			}
			ts.Skipped += r.Total
			continue
		}

		var each float64
		if n := len(r.Checks); n > 0 {
			each = r.Duration.Seconds() / float64(n)
		}
		for i, c := range r.Checks {
			tc := JUnitTestCase{Name: checkName(r, i), ClassName: class, Time: each}
			if !c.Passed {
				problem := &JUnitProblem{Message: c.Message, Type: c.Reason.String()}
				if isError(c.Reason) {
					tc.Error = problem
					ts.Errors++
				} else {
					var body strings.Builder
					fmt.Fprintf(&body, "%s %s: expected %v, got %v\n",
						c.Subject, c.Operator, formatValue(c.Expected, 200), formatValue(c.Actual, 200))
					body.WriteString(c.Diff)
					problem.Content = body.String()
					tc.Failure = problem
					ts.Failures++
				}
			}
			ts.TestCases = append(ts.TestCases, tc)
		}
	}
	ts.Tests = len(ts.TestCases)

	f.report.Tests += ts.Tests
	f.report.Failures += ts.Failures
	f.report.Errors += ts.Errors
	f.report.Skipped += ts.Skipped
	f.report.TestSuites = append(f.report.TestSuites, ts)
}

// FormatError adds a one-case suite carrying an <error>, so a suite that
// could not be loaded still fails the report.
func (f *JUnitFormatter) FormatError(err error) {
	f.report.TestSuites = append(f.report.TestSuites, JUnitTestSuite{
		Name:   "hostspec",
		Tests:  1,
		Errors: 1,
		TestCases: []JUnitTestCase{{
			Name:      "load suite",
			ClassName: "hostspec",
			Error:     &JUnitProblem{Message: err.Error(), Type: "SuiteError"},
		}},
	})
	f.report.Tests++
	f.report.Errors++
}

func (f *JUnitFormatter) FormatHeader(version string) {}

func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	f.report.Time = totalDuration.Seconds()
	f.report.Timestamp = time.Now().Format(time.RFC3339)

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(f.writer)
	enc.Indent("", "  ")
	if err := enc.Encode(f.report); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}

func displayName(result *runner.RunResult) string {
	if result.File != "" {
		return result.File
	}
	return result.Suite
}
