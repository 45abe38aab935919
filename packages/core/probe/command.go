package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultShell runs command subjects as "sh -c <command>".
	DefaultShell = "sh"
	// DefaultTimeout bounds a single command execution.
	DefaultTimeout = 30 * time.Second
	// waitDelay bounds how long Wait blocks on inherited pipes after the
	// process has been killed.
	waitDelay = 2 * time.Second
)

// CommandResult is the captured outcome of one command execution.
type CommandResult struct {
	Command    string
	Stdout     string
	Stderr     string
	ExitStatus int
	Duration   time.Duration
}

type Executor struct {
	shell   string
	timeout time.Duration
	dir     string
}

type ExecutorOption func(*Executor)

// WithShell sets the shell used as "<shell> -c <command>". An empty shell
// splits the command on whitespace and executes it directly.
func WithShell(shell string) ExecutorOption {
	return func(e *Executor) {
		e.shell = shell
	}
}

func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithDir(dir string) ExecutorOption {
	return func(e *Executor) {
		e.dir = dir
	}
}

func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		shell:   DefaultShell,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Run executes command and captures both output streams. A non-zero exit
// status is not an error; the returned error is a *Error whose Kind is
// ErrExecution when the command could not be launched and ErrTimeout when
// the deadline expired. The result is non-nil whenever the process started.
func (e *Executor) Run(ctx context.Context, command string) (*CommandResult, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, &Error{Op: "run", Subject: command, Kind: ErrExecution, Err: errors.New("empty command")}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if e.shell != "" {
		cmd = exec.CommandContext(ctx, e.shell, "-c", command)
	} else {
		fields := strings.Fields(command)
		cmd = exec.CommandContext(ctx, fields[0], fields[1:]...)
	}
	cmd.Dir = e.dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &Error{Op: "run", Subject: command, Kind: ErrExecution, Err: err}
	}
	err := cmd.Wait()

	result := &CommandResult{
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitStatus = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, &Error{Op: "run", Subject: command, Kind: ErrTimeout,
				Err: fmt.Errorf("no exit after %v", e.timeout)}
		}
		return result, &Error{Op: "run", Subject: command, Kind: ErrExecution, Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return result, &Error{Op: "run", Subject: command, Kind: ErrExecution, Err: err}
	}

	// The shell reports launch failures of the inner command as 126 and 127.
	if e.shell != "" && (result.ExitStatus == 126 || result.ExitStatus == 127) {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit status %d", result.ExitStatus)
		}
		return result, &Error{Op: "run", Subject: command, Kind: ErrExecution, Err: errors.New(msg)}
	}

	return result, nil
}
