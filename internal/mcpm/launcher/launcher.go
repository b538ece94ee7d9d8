// Package launcher implements what the generated bin/mcpm wrapper does at
// run time: find the interpreter inside the isolated environment, repair a
// missing environment by running setup, and otherwise hand the command line
// to mcpm.py.
package launcher

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/bootstrap"
	"github.com/keppylab/mcpm/internal/mcpm/logging"
	"github.com/keppylab/mcpm/internal/mcpm/shell"
	"github.com/keppylab/mcpm/internal/mcpm/util"
)

// MissingEnvMessage is printed when the wrapper finds no interpreter.
const MissingEnvMessage = "MCPM virtual environment not found. Running setup..."

// SetupFunc runs the bootstrapper in-process.
type SetupFunc func(ctx context.Context) error

// Launcher forwards a command line to the Python entry module.
type Launcher struct {
	opts   bootstrap.Options
	runner shell.Runner
	errOut io.Writer
	setup  SetupFunc
}

func New(opts bootstrap.Options, runner shell.Runner, errOut io.Writer, setup SetupFunc) *Launcher {
	return &Launcher{
		opts:   opts,
		runner: runner,
		errOut: errOut,
		setup:  setup,
	}
}

// Command is the child process the launcher spawns for args.
func (l *Launcher) Command(args []string) shell.Command {
	argv := append([]string{l.opts.EntryModule()}, args...)
	cmd := shell.NewCommand(l.opts.Layout().Python(), argv...)
	cmd.Env = []string{"PYTHONUNBUFFERED=1"}
	return cmd
}

// Run returns the exit code the wrapper should terminate with. A missing
// environment triggers setup and always yields 1, whatever setup did; the
// user reruns the command afterwards. A child terminated by a signal has no
// exit code and yields 0. The error is non-nil only when the interpreter
// could not be started.
func (l *Launcher) Run(ctx context.Context, args []string) (int, error) {
	python := l.opts.Layout().Python()
	if !util.Exists(python) {
		fmt.Fprintln(l.errOut, MissingEnvMessage)
		if err := l.setup(ctx); err != nil {
			logging.Debug("Setup from wrapper failed", zap.Error(err))
		}
		return 1, nil
	}

	cmd := l.Command(args)
	logging.Debug("Launching MCPM", zap.Stringer("command", cmd))

	err := l.runner.Run(ctx, cmd)
	code, ok := shell.ExitCode(err)
	if !ok {
		return 1, fmt.Errorf("failed to start %s: %w", python, err)
	}
	if code < 0 {
		logging.Debug("MCPM terminated by signal")
		return 0, nil
	}
	return code, nil
}
