// Package python drives the target Python interpreter: it probes the
// interpreter's version and word size and runs pip to install packages.
//
// All interaction goes through a Runner so the provisioning flow can be
// exercised without a real interpreter.
package python

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrInvocation wraps any failure to run the interpreter or a nonzero exit.
var ErrInvocation = errors.New("python invocation failed")

// Command describes one interpreter invocation.
type Command struct {
	Args []string
	// Env is appended to the inherited environment.
	Env []string
}

// Runner executes interpreter commands.
type Runner interface {
	// Run streams the command's output to the runner's writers.
	Run(ctx context.Context, cmd Command) error
	// Output returns the command's standard output.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands against a real interpreter binary.
type ExecRunner struct {
	Python string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates a runner for the given interpreter. Output of Run
// goes to the process's stdout and stderr.
func NewExecRunner(python string) *ExecRunner {
	return &ExecRunner{
		Python: python,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the command, streaming its output.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := r.command(ctx, c)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return translateExecError(ctx, err, c, "")
	}
	return nil
}

// Output executes the command and returns its standard output.
func (r *ExecRunner) Output(ctx context.Context, c Command) ([]byte, error) {
	cmd := r.command(ctx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, translateExecError(ctx, err, c, stderr.String())
	}
	return out, nil
}

func (r *ExecRunner) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.Python, c.Args...)
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
	cmd.Env = append(cmd.Env, c.Env...)
	return cmd
}

// translateExecError folds every failure into ErrInvocation while keeping
// context errors matchable.
func translateExecError(ctx context.Context, err error, c Command, stderr string) error {
	// A killed child reports "signal: killed"; the context says why.
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("operation cancelled: %w", context.Canceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("operation timed out: %w", context.DeadlineExceeded)
	}

	msg := strings.TrimSpace(stderr)
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}

	cmdline := strings.Join(c.Args, " ")
	if msg != "" {
		return fmt.Errorf("%w: %s: %v: %s", ErrInvocation, cmdline, err, msg)
	}
	return fmt.Errorf("%w: %s: %v", ErrInvocation, cmdline, err)
}
