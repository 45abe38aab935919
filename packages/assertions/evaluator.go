package assertions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/abdul-hamid-achik/hostspec/packages/core/probe"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/tidwall/gjson"
	"gopkg.in/ini.v1"
)

type Result struct {
	Passed   bool
	Reason   check.Reason
	Message  string
	Expected any
	Actual   any
	Diff     string
	Subject  string
	Operator string
}

// Evaluator interprets checks against one probed subject.
type Evaluator struct {
	kind    check.SubjectKind
	subject string
	file    *probe.File
	command *probe.CommandResult
	err     error // command probe failure
}

func NewFileEvaluator(f *probe.File) *Evaluator {
	return &Evaluator{kind: check.SubjectFile, subject: f.Path, file: f}
}

// NewCommandEvaluator wraps the outcome of Executor.Run. res may be nil when
// err is set.
func NewCommandEvaluator(command string, res *probe.CommandResult, err error) *Evaluator {
	return &Evaluator{kind: check.SubjectCommand, subject: command, command: res, err: err}
}

// Probe reads the subject once and returns an evaluator over the snapshot.
func Probe(ctx context.Context, exec *probe.Executor, kind check.SubjectKind, subject string) *Evaluator {
	if kind == check.SubjectCommand {
		res, err := exec.Run(ctx, subject)
		return NewCommandEvaluator(subject, res, err)
	}
	return NewFileEvaluator(probe.StatFile(subject))
}

// EvaluateCheck probes the check's subject and evaluates it.
func EvaluateCheck(ctx context.Context, exec *probe.Executor, c *check.Check) *Result {
	return Probe(ctx, exec, c.Kind, c.Subject).Evaluate(c)
}

// EvaluateAll evaluates every check against the same snapshot. One failure
// never stops the remaining checks.
func EvaluateAll(e *Evaluator, checks []*check.Check) []*Result {
	results := make([]*Result, len(checks))
	for i, c := range checks {
		results[i] = e.Evaluate(c)
	}
	return results
}

// Err returns the probe error of a command subject, if any.
func (e *Evaluator) Err() error {
	if e.kind == check.SubjectFile {
		return e.file.Err()
	}
	return e.err
}

func (e *Evaluator) Command() *probe.CommandResult {
	return e.command
}

func (e *Evaluator) File() *probe.File {
	return e.file
}

// outcome is the raw verdict of one predicate before negation.
type outcome struct {
	ok       bool
	actual   any
	expected any
	message  string
	diff     string
	// failReason replaces ReasonMismatch when a non-negated check fails.
	failReason check.Reason
	// reason is set when the predicate could not be evaluated at all;
	// negation does not apply.
	reason check.Reason
}

func (e *Evaluator) Evaluate(c *check.Check) *Result {
	p := c.Predicate
	result := &Result{
		Subject:  e.subject,
		Operator: p.String(),
	}

	if c.Kind != e.kind || p.Kind.FileOnly() != (e.kind == check.SubjectFile) {
		result.Reason = check.ReasonInvalidCheck
		result.Message = fmt.Sprintf("%q cannot be applied to %s %s", p.Kind, e.kind, e.subject)
		return result
	}

	var o outcome
	if e.kind == check.SubjectFile {
		o = e.evaluateFile(p)
	} else {
		o = e.evaluateCommand(p)
	}

	result.Expected = o.expected
	result.Actual = o.actual

	if o.reason != check.ReasonNone {
		result.Reason = o.reason
		result.Message = o.message
		return result
	}

	result.Passed = o.ok != p.Negate
	if result.Passed {
		return result
	}

	if p.Negate {
		result.Reason = check.ReasonMismatch
		result.Message = fmt.Sprintf("expected not to %s", strings.TrimPrefix(p.String(), "not "))
		return result
	}
	result.Reason = check.ReasonMismatch
	if o.failReason != check.ReasonNone {
		result.Reason = o.failReason
	}
	result.Message = o.message
	result.Diff = o.diff
	return result
}

func (e *Evaluator) evaluateFile(p check.Predicate) outcome {
	f := e.file

	switch p.Kind {
	case check.PredExists:
		if err := f.Err(); err != nil && errors.Is(err, probe.ErrPermissionDenied) {
			return probeFailure(err)
		}
		o := outcome{ok: f.Exists, actual: f.Exists, expected: true, message: "expected to exist"}
		if !f.Exists {
			o.failReason = check.ReasonNotFound
		}
		return o
	case check.PredIsSymlink:
		if !f.Symlink && f.Err() != nil {
			return probeFailure(f.Err())
		}
		return outcome{ok: f.Symlink, actual: f.Symlink, expected: true, message: "expected a symlink"}
	}

	if err := f.Err(); err != nil {
		return probeFailure(err)
	}

	switch p.Kind {
	case check.PredIsDirectory:
		return typeOutcome(f, probe.TypeDirectory)
	case check.PredIsFile:
		return typeOutcome(f, probe.TypeFile)
	case check.PredOwnedBy:
		ok := p.Name == f.Owner || p.Name == strconv.FormatUint(uint64(f.UID), 10)
		return outcome{ok: ok, actual: f.Owner, expected: p.Name,
			message: fmt.Sprintf("expected owner %s, got %s", p.Name, f.Owner)}
	case check.PredGroupedInto:
		ok := p.Name == f.Group || p.Name == strconv.FormatUint(uint64(f.GID), 10)
		return outcome{ok: ok, actual: f.Group, expected: p.Name,
			message: fmt.Sprintf("expected group %s, got %s", p.Name, f.Group)}
	case check.PredReadable:
		return accessOutcome(f, probe.AccessRead, "readable")
	case check.PredWritable:
		return accessOutcome(f, probe.AccessWrite, "writable")
	case check.PredExecutable:
		return accessOutcome(f, probe.AccessExecute, "executable")
	case check.PredMode:
		actual := fmt.Sprintf("%04o", f.UnixMode())
		expected := fmt.Sprintf("%04o", p.Number)
		return outcome{ok: f.UnixMode() == p.Number, actual: actual, expected: expected,
			message: fmt.Sprintf("expected mode %s, got %s", expected, actual)}
	case check.PredSize:
		return outcome{ok: p.Op.Apply(f.Size, p.Number), actual: f.Size,
			expected: fmt.Sprintf("%s %d", p.Op, p.Number),
			message:  fmt.Sprintf("expected size %d %s %d", f.Size, p.Op, p.Number)}
	case check.PredContent, check.PredIniValue, check.PredJSONPath:
		data, err := f.ReadContent()
		if err != nil {
			return probeFailure(err)
		}
		return e.evaluateContent(p, string(data))
	}
	return invalid(fmt.Sprintf("unknown predicate: %v", p.Kind))
}

func (e *Evaluator) evaluateContent(p check.Predicate, content string) outcome {
	switch p.Kind {
	case check.PredContent:
		ok, err := matchText(content, p.Pattern, p.Match)
		if err != nil {
			return invalid(err.Error())
		}
		o := outcome{ok: ok, actual: content, expected: p.Pattern,
			message: fmt.Sprintf("expected content to %s %q", p.Match, p.Pattern)}
		if !ok {
			o.diff = missingLineDiff(e.subject, content, p.Pattern)
		}
		return o
	case check.PredIniValue:
		return iniOutcome(p, content)
	case check.PredJSONPath:
		return jsonOutcome(p, content)
	}
	return invalid(fmt.Sprintf("unknown predicate: %v", p.Kind))
}

func (e *Evaluator) evaluateCommand(p check.Predicate) outcome {
	if e.err != nil {
		return probeFailure(e.err)
	}
	res := e.command

	switch p.Kind {
	case check.PredStream:
		text := res.Stdout
		if p.Stream == check.StreamStderr {
			text = res.Stderr
		}
		ok, err := matchText(text, p.Pattern, p.Match)
		if err != nil {
			return invalid(err.Error())
		}
		return outcome{ok: ok, actual: text, expected: p.Pattern,
			message: fmt.Sprintf("expected %s to %s %q", p.Stream, p.Match, p.Pattern)}
	case check.PredExitStatus:
		o := outcome{ok: p.Op.Apply(int64(res.ExitStatus), p.Number), actual: res.ExitStatus,
			expected: fmt.Sprintf("%s %d", p.Op, p.Number),
			message:  fmt.Sprintf("expected exit status %s %d, got %d", p.Op, p.Number, res.ExitStatus)}
		if res.ExitStatus != 0 {
			o.failReason = check.ReasonNonZeroExit
		}
		return o
	}
	return invalid(fmt.Sprintf("unknown predicate: %v", p.Kind))
}

func typeOutcome(f *probe.File, want probe.FileType) outcome {
	return outcome{ok: f.Type == want, actual: f.Type.String(), expected: want.String(),
		message: fmt.Sprintf("expected %s, got %s", want, f.Type)}
}

func accessOutcome(f *probe.File, mask uint32, what string) outcome {
	err := f.Permits(mask)
	if err == nil {
		return outcome{ok: true, actual: true, expected: true}
	}
	return outcome{actual: false, expected: true, failReason: check.ReasonPermissionDenied,
		message: fmt.Sprintf("expected %s: %v", what, err)}
}

func iniOutcome(p check.Predicate, content string) outcome {
	cfg, err := ini.Load([]byte(content))
	if err != nil {
		return invalid(fmt.Sprintf("parsing ini: %v", err))
	}
	section := p.Section
	if section == "" {
		section = ini.DefaultSection
	}
	key := p.Key
	if p.Section != "" {
		key = p.Section + "." + p.Key
	}
	if !cfg.Section(section).HasKey(p.Key) {
		return outcome{actual: nil, expected: p.Value, message: fmt.Sprintf("key %s not set", key)}
	}
	actual := cfg.Section(section).Key(p.Key).String()
	return outcome{ok: actual == p.Value, actual: actual, expected: p.Value,
		message: fmt.Sprintf("expected %s = %q, got %q", key, p.Value, actual)}
}

func jsonOutcome(p check.Predicate, content string) outcome {
	if !gjson.Valid(content) {
		return invalid("content is not valid JSON")
	}
	r := gjson.Get(content, p.Key)
	if !r.Exists() {
		return outcome{actual: nil, expected: p.Value, message: fmt.Sprintf("path %s not found", p.Key)}
	}
	return outcome{ok: r.String() == p.Value, actual: r.String(), expected: p.Value,
		message: fmt.Sprintf("expected %s = %q, got %q", p.Key, p.Value, r.String())}
}

// matchText applies a pattern in the given mode. Regex patterns may be
// written as /pattern/.
func matchText(text, pattern string, mode check.MatchMode) (bool, error) {
	switch mode {
	case check.MatchContains:
		return strings.Contains(text, pattern), nil
	case check.MatchLine:
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSuffix(line, "\r") == pattern {
				return true, nil
			}
		}
		return false, nil
	default:
		if len(pattern) > 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
			pattern = pattern[1 : len(pattern)-1]
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regex pattern: %v", err)
		}
		return re.MatchString(text), nil
	}
}

// missingLineDiff renders a unified diff from the actual content to the
// content with the expected line added.
func missingLineDiff(path, content, pattern string) string {
	actual := difflib.SplitLines(strings.TrimSuffix(content, "\n"))
	if content == "" {
		actual = nil
	}
	expected := append(append([]string{}, actual...), pattern+"\n")
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        actual,
		B:        expected,
		FromFile: path,
		ToFile:   path + " (expected)",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}

func probeFailure(err error) outcome {
	return outcome{reason: ReasonFor(err), message: err.Error()}
}

func invalid(msg string) outcome {
	return outcome{reason: check.ReasonInvalidCheck, message: msg}
}

// ReasonFor maps a probe error onto the failure taxonomy.
func ReasonFor(err error) check.Reason {
	switch {
	case err == nil:
		return check.ReasonNone
	case errors.Is(err, probe.ErrNotFound):
		return check.ReasonNotFound
	case errors.Is(err, probe.ErrPermissionDenied):
		return check.ReasonPermissionDenied
	case errors.Is(err, probe.ErrTimeout):
		return check.ReasonTimeout
	case errors.Is(err, probe.ErrExecution):
		return check.ReasonExecutionError
	default:
		return check.ReasonInvalidCheck
	}
}
