package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/abdul-hamid-achik/hostspec/packages/core/config"
	"github.com/abdul-hamid-achik/hostspec/packages/core/runner"
	"github.com/abdul-hamid-achik/hostspec/packages/core/suite"
	"github.com/abdul-hamid-achik/hostspec/packages/history"
	"github.com/abdul-hamid-achik/hostspec/packages/logger"
	"github.com/abdul-hamid-achik/hostspec/packages/output"
	"github.com/abdul-hamid-achik/hostspec/packages/suites"
	"github.com/abdul-hamid-achik/hostspec/packages/watch"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file|directory...]",
	Short: "Check the host against hostspec suites",
	Long: `Run the controls defined in *.hostspec.yaml files or in a built-in suite.

Examples:
  hostspec run --builtin letsencrypt
  hostspec run ./suites/
  hostspec run web.hostspec.yaml --tags tls --output junit --output-file report.xml
  hostspec run web.hostspec.yaml --var prefix=/srv/certbot
  hostspec run ./suites/ --history /var/lib/hostspec/history.db
  hostspec run ./suites/ --watch`,
	RunE: runCommand,
}

var (
	builtinFlag    []string
	envFileFlag    string
	nameFlag       string
	tagsFlag       string
	varFlag        []string
	verboseFlag    int
	bailFlag       bool
	timeoutFlag    string
	shellFlag      string
	dirFlag        string
	noColorFlag    bool
	outputFlag     string
	outputFileFlag string
	watchFlag      bool
	debounceFlag   time.Duration
	configFlag     string
	historyFlag    string
)

func init() {
	// Suite selection
	runCmd.Flags().StringSliceVarP(&builtinFlag, "builtin", "b", nil, "Run a built-in suite (repeatable)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only controls whose title or subject matches the pattern")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("HOSTSPEC_TAGS", ""), "Run only controls with specified tags (comma-separated) (env: HOSTSPEC_TAGS)")

	// Variables and configuration
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HOSTSPEC_ENV_FILE", ""), "Path to .env file for variable interpolation (env: HOSTSPEC_ENV_FILE)")
	runCmd.Flags().StringArrayVar(&varFlag, "var", nil, "Set a variable as name=value (repeatable)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("HOSTSPEC_CONFIG", ""), "Path to config file (env: HOSTSPEC_CONFIG)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output and debug logging")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HOSTSPEC_NO_COLOR", false), "Disable colored output (env: HOSTSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HOSTSPEC_OUTPUT", ""), "Output format: console, json, junit, tap (env: HOSTSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HOSTSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HOSTSPEC_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("HOSTSPEC_HISTORY", ""), "Record runs in this SQLite database (env: HOSTSPEC_HISTORY)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("HOSTSPEC_BAIL", false), "Stop after the first failing control (env: HOSTSPEC_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HOSTSPEC_TIMEOUT", ""), "Command timeout (e.g., 30s, 1m) (env: HOSTSPEC_TIMEOUT)")
	runCmd.Flags().StringVar(&shellFlag, "shell", getEnvString("HOSTSPEC_SHELL", ""), "Shell used to run command subjects (env: HOSTSPEC_SHELL)")
	runCmd.Flags().StringVar(&dirFlag, "dir", getEnvString("HOSTSPEC_DIR", ""), "Working directory for command subjects (env: HOSTSPEC_DIR)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suites and file subjects and re-run on change")
	runCmd.Flags().DurationVar(&debounceFlag, "debounce", watch.DefaultDebounce, "Quiet period after a change before re-running in watch mode")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return val == "yes"
		}
		return b
	}
	return defaultVal
}

// settings is the effective configuration after merging the config file
// with flags.
type settings struct {
	runner  *runner.Config
	output  string
	verbose bool
	noColor bool
	history string
}

func resolveSettings(fileConfig *config.Config) (*settings, error) {
	flags, err := flagConfig()
	if err != nil {
		return nil, err
	}
	cfg := fileConfig.Merge(flags)

	s := &settings{
		output:  strings.ToLower(cfg.Output),
		verbose: cfg.GetVerbose(),
		noColor: cfg.GetNoColor(),
		history: cfg.History,
	}
	s.runner = &runner.Config{
		Verbose:    s.verbose,
		Timeout:    cfg.TimeoutDuration(),
		Shell:      cfg.GetShell(),
		Dir:        cfg.Dir,
		Bail:       cfg.GetBail(),
		NameFilter: nameFlag,
		TagsFilter: cfg.Tags,
		Variables:  cfg.Variables,
		EnvFile:    envFileFlag,
	}
	return s, nil
}

// flagConfig expresses the flags that were set as a Config layered over the
// config file. Unset flags stay zero so the file value survives Merge.
func flagConfig() (*config.Config, error) {
	cfg := &config.Config{
		Output:  outputFlag,
		Dir:     dirFlag,
		History: historyFlag,
		Tags:    splitList(tagsFlag),
	}

	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, withExit(ExitUsageError, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err))
		}
		if d < time.Millisecond {
			return nil, withExit(ExitUsageError, fmt.Errorf("timeout must be at least 1ms, got %s", timeoutFlag))
		}
		cfg.Timeout = int(d.Milliseconds())
	}
	if shellFlag != "" {
		cfg.Shell = config.StringPtr(shellFlag)
	}
	if bailFlag {
		cfg.Bail = config.BoolPtr(true)
	}
	if verboseFlag > 0 {
		cfg.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		cfg.NoColor = config.BoolPtr(true)
	}

	vars, err := parseVars(varFlag)
	if err != nil {
		return nil, withExit(ExitUsageError, err)
	}
	if len(vars) > 0 {
		cfg.Variables = vars
	}
	return cfg, nil
}

// target is one suite to run: a built-in suite or a file on disk.
type target struct {
	builtin string
	file    string
}

func collectTargets(args []string) ([]target, error) {
	var targets []target
	for _, name := range builtinFlag {
		if _, ok := suites.Get(name); !ok {
			return nil, withExit(ExitUsageError, fmt.Errorf("unknown built-in suite %q (available: %s)", name, strings.Join(suites.Names(), ", ")))
		}
		targets = append(targets, target{builtin: name})
	}

	if len(args) > 0 {
		files, err := suite.Collect(args)
		if err != nil {
			return nil, withExit(ExitUsageError, fmt.Errorf("cannot access suites: %w", err))
		}
		if len(files) == 0 {
			return nil, withExit(ExitUsageError, fmt.Errorf("no *.hostspec.yaml files found"))
		}
		for _, f := range files {
			targets = append(targets, target{file: f})
		}
	}

	if len(targets) == 0 {
		return nil, withExit(ExitUsageError, fmt.Errorf("nothing to run: pass suite files or --builtin <name>"))
	}
	return targets, nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	s, err := resolveSettings(fileConfig)
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{Writer: cmd.ErrOrStderr(), Verbose: s.verbose, NoColor: s.noColor})
	s.runner.Logger = log

	targets, err := collectTargets(args)
	if err != nil {
		return err
	}

	// Setup output writer
	var outWriter io.Writer = cmd.OutOrStdout()
	var outFile *os.File
	if outputFileFlag != "" {
		outFile, err = os.Create(outputFileFlag)
		if err != nil {
			return withExit(ExitConfigError, fmt.Errorf("cannot create output file: %w", err))
		}
		defer outFile.Close()
		outWriter = outFile
	}

	newFormatter := func() (output.Formatter, error) {
		f, err := output.New(s.output, output.Options{Writer: outWriter, Verbose: s.verbose, NoColor: s.noColor})
		if err != nil {
			return nil, err
		}
		f.FormatHeader(version)
		return f, nil
	}
	formatter, err := newFormatter()
	if err != nil {
		return withExit(ExitUsageError, err)
	}

	var store *history.Store
	if s.history != "" {
		store, err = history.Open(contextOf(cmd), s.history)
		if err != nil {
			return withExit(ExitConfigError, err)
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.NewRunner(s.runner)
	session := &runSession{
		runner:    r,
		store:     store,
		log:       log,
		targets:   targets,
		bail:      s.runner.Bail,
		formatter: formatter,
	}

	session.runAll(ctx)
	if err := flush(session.formatter, session.duration); err != nil {
		return withExit(ExitConfigError, err)
	}

	if !watchFlag {
		return session.exitErr()
	}

	paths := session.watchPaths()
	w, err := watch.New(paths, watch.WithLogger(log), watch.WithDebounce(debounceFlag))
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	return w.Run(ctx, func(ctx context.Context, changed []string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nChanged: %s\nRe-running checks...\n", strings.Join(changed, ", "))
		if outFile != nil {
			if err := rewind(outFile); err != nil {
				log.Error("cannot reset output file", "file", outputFileFlag, "error", err)
				return
			}
		}
		f, err := newFormatter()
		if err != nil {
			log.Error("cannot create formatter", "error", err)
			return
		}
		session.formatter = f
		session.runAll(ctx)
		if err := flush(f, session.duration); err != nil {
			log.Error("error writing output", "error", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	})
}

// runSession runs every target once per call to runAll and remembers the
// outcome of the latest pass.
type runSession struct {
	runner    *runner.Runner
	store     *history.Store
	log       *slog.Logger
	targets   []target
	bail      bool
	formatter output.Formatter

	failed      int
	errs        []error
	parseFailed bool
	otherFailed bool
	duration    time.Duration
	subjects    []string
}

func (s *runSession) runAll(ctx context.Context) {
	s.failed, s.errs, s.parseFailed, s.otherFailed, s.subjects = 0, nil, false, false, nil
	start := time.Now()

	for _, t := range s.targets {
		if ctx.Err() != nil {
			break
		}

		result, err := s.runTarget(ctx, t)
		if err != nil {
			s.log.Debug("suite failed", "file", t.file, "builtin", t.builtin, "error", err)
			s.formatter.FormatError(err)
			s.errs = append(s.errs, err)
			if isParseError(err) {
				s.parseFailed = true
			} else {
				s.otherFailed = true
			}
			if s.bail {
				break
			}
			continue
		}

		s.formatter.FormatResult(result)
		s.failed += result.Failed
		for _, cr := range result.Results {
			if cr.Kind == check.SubjectFile {
				s.subjects = append(s.subjects, cr.Subject)
			}
		}
		s.record(ctx, result)

		if s.bail && result.Failed > 0 {
			break
		}
	}

	s.duration = time.Since(start)
}

func (s *runSession) runTarget(ctx context.Context, t target) (*runner.RunResult, error) {
	if t.builtin != "" {
		st, _ := suites.Get(t.builtin)
		res, err := s.runner.RunSuite(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", t.builtin, err)
		}
		return res, nil
	}
	return s.runner.RunFile(ctx, t.file)
}

func (s *runSession) record(ctx context.Context, result *runner.RunResult) {
	if s.store == nil {
		return
	}
	id, err := s.store.Record(ctx, result)
	if err != nil {
		s.log.Warn("failed to record run", "suite", result.Suite, "error", err)
		return
	}
	s.log.Debug("run recorded", "suite", result.Suite, "id", id)
}

// watchPaths lists suite files and every file subject probed in the last
// pass.
func (s *runSession) watchPaths() []string {
	var paths []string
	for _, t := range s.targets {
		if t.file != "" {
			paths = append(paths, t.file)
		}
	}
	return append(paths, s.subjects...)
}

// exitErr reports the outcome of the last pass. Suite errors take precedence
// over check failures.
func (s *runSession) exitErr() error {
	switch {
	case s.parseFailed:
		return withExit(ExitParseError, fmt.Errorf("one or more suites could not be loaded: %w", errors.Join(s.errs...)))
	case s.otherFailed:
		return withExit(ExitConfigError, fmt.Errorf("one or more suites could not be run: %w", errors.Join(s.errs...)))
	case s.failed > 0:
		return withExit(ExitCheckFailure, fmt.Errorf("%d check(s) failed", s.failed))
	}
	return nil
}

func isParseError(err error) bool {
	var perr *suite.ParseError
	var verr *suite.ValidationError
	return errors.As(err, &perr) || errors.As(err, &verr)
}

func flush(f output.Formatter, d time.Duration) error {
	if flushable, ok := f.(output.Flushable); ok {
		if err := flushable.Flush(d); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}
	return nil
}

// rewind empties f so a watch pass writes a fresh report instead of
// appending a second document.
func rewind(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseVars turns name=value pairs into a map.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: want name=value", p)
		}
		vars[name] = value
	}
	return vars, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
