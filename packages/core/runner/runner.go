package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/assertions"
	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/abdul-hamid-achik/hostspec/packages/core/env"
	"github.com/abdul-hamid-achik/hostspec/packages/core/probe"
	"github.com/abdul-hamid-achik/hostspec/packages/core/suite"
	"github.com/abdul-hamid-achik/hostspec/packages/logger"
)

const (
	SkipFiltered = "filtered out"
	SkipBail     = "bail: a previous control failed"
)

type Runner struct {
	exec   *probe.Executor
	config *Config
	log    *slog.Logger
}

type Config struct {
	Verbose    bool
	Timeout    time.Duration
	Shell      string
	Dir        string
	Bail       bool
	NameFilter string
	TagsFilter []string
	// Variables override suite and dotenv variables.
	Variables map[string]string
	EnvFile   string
	Logger    *slog.Logger
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	opts := []probe.ExecutorOption{}
	if cfg.Timeout > 0 {
		opts = append(opts, probe.WithTimeout(cfg.Timeout))
	}
	if cfg.Shell != "" {
		opts = append(opts, probe.WithShell(cfg.Shell))
	}
	if cfg.Dir != "" {
		opts = append(opts, probe.WithDir(cfg.Dir))
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Runner{
		exec:   probe.NewExecutor(opts...),
		config: cfg,
		log:    log,
	}
}

type RunResult struct {
	Suite    string
	File     string
	Results  []*ControlResult
	Duration time.Duration
	Started  time.Time
	// Passed, Failed and Skipped count checks, not controls.
	Passed  int
	Failed  int
	Skipped int
	Timings Timings
}

// Total is the number of checks in the run.
func (r *RunResult) Total() int {
	return r.Passed + r.Failed + r.Skipped
}

// OK reports whether no check failed.
func (r *RunResult) OK() bool {
	return r.Failed == 0
}

type ControlResult struct {
	Title      string
	Subject    string
	Kind       check.SubjectKind
	Tags       []string
	Line       int
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Checks     []*assertions.Result
	// Error is the probe failure shared by every check, if any.
	Error error
	// Total is the number of checks declared on the control.
	Total int
	// Expectations describes each declared check, in order.
	Expectations []string
}

// Name is the title, or the described subject when the control has none.
func (c *ControlResult) Name() string {
	if c.Title != "" {
		return c.Title
	}
	return fmt.Sprintf("%s %s", c.Kind, c.Subject)
}

// RunFile parses the suite at path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	s, err := suite.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}
	res, err := r.RunSuite(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// RunSuite evaluates every control of s in order.
func (r *Runner) RunSuite(ctx context.Context, s *check.Suite) (*RunResult, error) {
	resolver, err := r.resolverFor(s)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		Suite:   s.Name,
		File:    s.Path,
		Started: time.Now(),
	}
	rec := newRecorder()
	bailed := false

	for _, ctrl := range s.Controls {
		resolved := resolveControl(ctrl, resolver)

		var cr *ControlResult
		switch {
		case ctx.Err() != nil:
			cr = skipped(resolved, "interrupted")
		case bailed:
			cr = skipped(resolved, SkipBail)
		case !r.shouldRun(resolved):
			cr = skipped(resolved, SkipFiltered)
		case resolved.Skip != "":
			cr = skipped(resolved, resolved.Skip)
		default:
			if reason, ok := r.guard(ctx, resolved); !ok {
				cr = skipped(resolved, reason)
			} else {
				cr = r.runControl(ctx, resolved)
				rec.record(cr.Duration)
			}
		}

		if cr.Skipped {
			r.log.Debug("control skipped", "control", cr.Name(), "reason", cr.SkipReason)
		}
		result.Results = append(result.Results, cr)
		r.tally(result, cr)

		if !cr.Passed && !cr.Skipped && r.config.Bail {
			bailed = true
		}
	}

	result.Duration = time.Since(result.Started)
	result.Timings = rec.timings()
	return result, nil
}

func (r *Runner) resolverFor(s *check.Suite) (*env.Resolver, error) {
	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		r.log.Warn(fmt.Sprintf(format, args...), "suite", s.Name)
	})
	resolver.SetVariables(s.Variables)

	if r.config.EnvFile != "" {
		vars, err := env.LoadDotEnv(r.config.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
		resolver.SetVariables(vars)
	}
	resolver.SetVariables(r.config.Variables)
	return resolver, nil
}

func (r *Runner) runControl(ctx context.Context, ctrl *check.Control) *ControlResult {
	cr := &ControlResult{
		Title:   ctrl.Title,
		Subject: ctrl.Subject,
		Kind:    ctrl.Kind,
		Tags:    ctrl.Tags,
		Line:    ctrl.Line,
		Total:   len(ctrl.Checks),

		Expectations: expectations(ctrl),
	}

	start := time.Now()
	ev := assertions.Probe(ctx, r.exec, ctrl.Kind, ctrl.Subject)
	probed := time.Since(start)
	cr.Error = ev.Err()
	cr.Checks = assertions.EvaluateAll(ev, ctrl.Checks)
	cr.Duration = time.Since(start)

	cr.Passed = true
	for _, res := range cr.Checks {
		if !res.Passed {
			cr.Passed = false
			break
		}
	}

	attrs := []any{"control", cr.Name(), "probe", probed, "duration", cr.Duration}
	if cmd := ev.Command(); cmd != nil {
		attrs = append(attrs, "exit_status", cmd.ExitStatus)
	}
	if cr.Error != nil {
		attrs = append(attrs, "error", cr.Error)
	}
	r.log.Debug("control evaluated", attrs...)
	return cr
}

// guard runs the only_if command. A non-zero exit or a failure to run it
// skips the control.
func (r *Runner) guard(ctx context.Context, ctrl *check.Control) (string, bool) {
	if ctrl.OnlyIf == "" {
		return "", true
	}
	res, err := r.exec.Run(ctx, ctrl.OnlyIf)
	if err != nil {
		r.log.Debug("only_if guard failed", "guard", ctrl.OnlyIf, "error", err)
		return fmt.Sprintf("only_if %q: %v", ctrl.OnlyIf, err), false
	}
	r.log.Debug("only_if guard", "guard", ctrl.OnlyIf, "exit_status", res.ExitStatus)
	if res.ExitStatus != 0 {
		return fmt.Sprintf("only_if %q exited %d", ctrl.OnlyIf, res.ExitStatus), false
	}
	return "", true
}

func (r *Runner) tally(result *RunResult, cr *ControlResult) {
	if cr.Skipped {
		result.Skipped += cr.Total
		return
	}
	for _, res := range cr.Checks {
		if res.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
	}
}

func (r *Runner) shouldRun(ctrl *check.Control) bool {
	if r.config.NameFilter != "" {
		if !matchesPattern(ctrl.Title, r.config.NameFilter) && !matchesPattern(ctrl.Subject, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(ctrl.Tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

func skipped(ctrl *check.Control, reason string) *ControlResult {
	return &ControlResult{
		Title:      ctrl.Title,
		Subject:    ctrl.Subject,
		Kind:       ctrl.Kind,
		Tags:       ctrl.Tags,
		Line:       ctrl.Line,
		Skipped:    true,
		SkipReason: reason,
		Total:      len(ctrl.Checks),

		Expectations: expectations(ctrl),
	}
}

func expectations(ctrl *check.Control) []string {
	out := make([]string, len(ctrl.Checks))
	for i, c := range ctrl.Checks {
		out[i] = c.Predicate.String()
	}
	return out
}

// resolveControl returns a copy of ctrl with variables expanded in the
// subject, guard and every string operand. The suite itself is not modified.
func resolveControl(ctrl *check.Control, res *env.Resolver) *check.Control {
	out := *ctrl
	out.Title = res.Resolve(ctrl.Title)
	out.Subject = res.Resolve(ctrl.Subject)
	out.OnlyIf = res.Resolve(ctrl.OnlyIf)
	out.Skip = res.Resolve(ctrl.Skip)
	out.Checks = make([]*check.Check, len(ctrl.Checks))
	for i, c := range ctrl.Checks {
		rc := *c
		rc.Subject = out.Subject
		p := &rc.Predicate
		p.Name = res.Resolve(p.Name)
		p.Pattern = res.Resolve(p.Pattern)
		p.Section = res.Resolve(p.Section)
		p.Key = res.Resolve(p.Key)
		p.Value = res.Resolve(p.Value)
		out.Checks[i] = &rc
	}
	return &out
}

// matchesPattern supports a leading and/or trailing * wildcard.
func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	if name == "" {
		return false
	}

	prefix := strings.HasPrefix(pattern, "*")
	suffix := strings.HasSuffix(pattern, "*") && len(pattern) > 1
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")

	switch {
	case prefix && suffix:
		return strings.Contains(name, core)
	case prefix:
		return strings.HasSuffix(name, core)
	case suffix:
		return strings.HasPrefix(name, core)
	}
	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
