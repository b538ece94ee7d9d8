// Package shell runs the external tools setup depends on (python, uv, pip,
// MCP client CLIs) behind a small interface so that callers can be tested
// without spawning processes.
package shell

//go:generate go tool mockgen -source=runner.go -destination=mock_runner.go -package=shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/cli/safeexec"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	// Env holds KEY=VALUE pairs added on top of the inherited environment.
	Env []string
	Dir string
}

// NewCommand is shorthand for Command{Name: name, Args: args}.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String renders the command line the way a user would type it.
func (c Command) String() string {
	return shellescape.QuoteCommand(append([]string{c.Name}, c.Args...))
}

// Runner executes commands. Implementations block until the process exits.
type Runner interface {
	// Run executes cmd with the runner's standard streams attached.
	Run(ctx context.Context, cmd Command) error
	// Output executes cmd and returns its combined stdout and stderr.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// LookPath resolves an executable on PATH without considering the current
// directory on Windows. Tests may replace it.
var LookPath = safeexec.LookPath

// ExecRunner is the [Runner] backed by os/exec.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// WaitDelay bounds how long a cancelled child may take to exit after
	// being interrupted before it is killed.
	WaitDelay time.Duration
}

// NewExecRunner returns a runner attached to the process's own stdio.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		WaitDelay: 5 * time.Second,
	}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := r.command(ctx, c)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

func (r *ExecRunner) Output(ctx context.Context, c Command) ([]byte, error) {
	var buf bytes.Buffer
	cmd := r.command(ctx, c)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

func (r *ExecRunner) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if runtime.GOOS != "windows" {
		// Give the child a chance to shut down cleanly on Ctrl-C.
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
	}
	cmd.WaitDelay = r.WaitDelay
	return cmd
}

// ExitCode extracts the exit status of a finished process from the error
// returned by [Runner.Run]. ok is false when err does not describe a process
// exit (for example the executable could not be started). A process killed
// by a signal reports -1.
func ExitCode(err error) (code int, ok bool) {
	if err == nil {
		return 0, true
	}
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
