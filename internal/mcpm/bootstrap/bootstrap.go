// Package bootstrap prepares the private Python environment MCPM runs in:
// it checks for an interpreter, creates a virtual environment under the
// MCPM home directory, installs the HTTP client dependency into it and
// writes the bin/mcpm wrapper.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/common"
	"github.com/keppylab/mcpm/internal/mcpm/logging"
	"github.com/keppylab/mcpm/internal/mcpm/shell"
	"github.com/keppylab/mcpm/internal/mcpm/util"
)

// Bootstrapper runs the setup sequence. It is single use per run and not
// safe for concurrent use; concurrent runs in separate processes are
// serialized by the setup lock when enabled.
type Bootstrapper struct {
	opts   Options
	runner shell.Runner
	out    io.Writer
	errOut io.Writer

	lookPath lookPathFunc
}

// Result describes a successful run.
type Result struct {
	Interpreter    *Interpreter
	CreatedHome    bool
	CreatedVenv    bool
	Installer      string
	WrapperPaths   []string
	SkippedReasons map[string]string
}

// New returns a Bootstrapper. Progress goes to out, diagnostics to errOut.
func New(opts Options, runner shell.Runner, out, errOut io.Writer) (*Bootstrapper, error) {
	if err := opts.validate(); err != nil {
		return nil, common.ExitWithCode(common.ExitInvalidParameters, err)
	}
	if opts.Quiet {
		runner = &quietRunner{Runner: runner, out: errOut}
	}
	return &Bootstrapper{
		opts:     opts,
		runner:   runner,
		out:      out,
		errOut:   errOut,
		lookPath: shell.LookPath,
	}, nil
}

func check() string {
	return color.GreenString("✓")
}

// Run executes every setup step in order and stops at the first fatal one.
// Nothing is rolled back on failure; rerunning repairs state.
func (b *Bootstrapper) Run(ctx context.Context) (*Result, error) {
	result := &Result{SkippedReasons: map[string]string{}}

	fmt.Fprintln(b.out, "🚀 Setting up MCPM - The MCP Package Manager...")

	interp, err := probePython(ctx, b.runner, b.lookPath, b.opts.Python, b.opts.MinPythonVersion)
	if err != nil {
		return nil, fail(b.errOut, ErrPrerequisiteMissing, "Python 3 is required but not found in PATH", err)
	}
	result.Interpreter = interp
	fmt.Fprintf(b.out, "%s Found %s\n", check(), interp.Banner)
	logging.Debug("Found Python", zap.String("path", interp.Path), zap.Stringer("version", interp.Version))

	created, err := ensureDir(b.opts.HomeDir)
	if err != nil {
		return nil, fail(b.errOut, ErrEnvironmentCreation, "Failed to create MCPM home directory", err)
	}
	result.CreatedHome = created
	if created {
		fmt.Fprintf(b.out, "%s Created MCPM home directory at %s\n", check(), b.opts.HomeDir)
	}

	if b.opts.Lock {
		release, err := acquireLock(ctx, b.opts.LockPath(), b.opts.LockTimeout)
		if err != nil {
			return nil, fail(b.errOut, ErrSetupLocked, "Another MCPM setup is running", err)
		}
		defer release()
	}

	created, err = b.createVenv(ctx, interp)
	if err != nil {
		return nil, fail(b.errOut, ErrEnvironmentCreation, "Failed to create virtual environment", err)
	}
	result.CreatedVenv = created

	installer, err := b.installDependencies(ctx, result)
	if err != nil {
		return nil, fail(b.errOut, ErrDependencyInstall, "Failed to install dependencies", err)
	}
	result.Installer = installer

	paths, err := writeWrapper(b.opts)
	if err != nil {
		return nil, fail(b.errOut, ErrWrapperWrite, "Failed to write wrapper", err)
	}
	result.WrapperPaths = paths
	fmt.Fprintf(b.out, "%s Wrote %s\n", check(), paths[0])

	if err := PrintReport(b.out, b.opts.Server, paths[0]); err != nil {
		return nil, fail(b.errOut, ErrCompletionReport, "Failed to print completion report", err)
	}
	return result, nil
}

// createVenv creates the isolated environment unless its interpreter is
// already in place.
func (b *Bootstrapper) createVenv(ctx context.Context, interp *Interpreter) (bool, error) {
	layout := b.opts.Layout()
	if util.Exists(layout.Python()) {
		fmt.Fprintf(b.out, "%s Reusing virtual environment at %s\n", check(), layout.Root)
		return false, nil
	}

	fmt.Fprintln(b.out, "📦 Creating virtual environment...")
	cmd := shell.NewCommand(interp.Path, "-m", "venv", layout.Root)
	logging.Debug("Creating virtual environment", zap.Stringer("command", cmd))
	if err := b.runner.Run(ctx, cmd); err != nil {
		return false, err
	}
	fmt.Fprintf(b.out, "%s Virtual environment created\n", check())
	return true, nil
}

// installDependencies tries each installer in priority order. Unavailable
// installers are skipped; a failing one falls through to the next. It
// returns the name of the installer that succeeded.
func (b *Bootstrapper) installDependencies(ctx context.Context, result *Result) (string, error) {
	installers, err := NewInstallers(b.opts.Installers, b.opts.Layout(), b.runner, b.lookPath)
	if err != nil {
		return "", err
	}

	fmt.Fprintln(b.out, "📥 Installing dependencies...")

	var errs []error
	for i, inst := range installers {
		if !inst.Available(ctx) {
			result.SkippedReasons[inst.Name()] = "unavailable"
			logging.Debug("Skipping unavailable installer", zap.String("installer", inst.Name()))
			continue
		}

		fmt.Fprintf(b.out, "⚡ Installing %s with %s...\n", b.opts.Requirement, inst.Name())
		if err := inst.Install(ctx, b.opts.Requirement); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			result.SkippedReasons[inst.Name()] = err.Error()
			msg := "Installer failed"
			if i < len(installers)-1 {
				msg = "Installer failed, trying the next one"
			}
			logging.Warn(msg,
				zap.String("installer", inst.Name()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", inst.Name(), err))
			continue
		}

		fmt.Fprintf(b.out, "%s Dependencies installed with %s\n", check(), inst.Name())
		return inst.Name(), nil
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("none of the installers (%s) is available to install %s", installerNames(installers), b.opts.Requirement)
	}
	return "", fmt.Errorf("could not install %s: %w", b.opts.Requirement, errors.Join(errs...))
}

// ensureDir creates dir and its parents, reporting whether it was missing.
func ensureDir(dir string) (bool, error) {
	if util.IsDir(dir) {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, err
	}
	return true, nil
}

// quietRunner captures the output of streaming commands behind a spinner
// and only replays it when the command fails.
type quietRunner struct {
	shell.Runner
	out io.Writer
}

func (q *quietRunner) Run(ctx context.Context, cmd shell.Command) error {
	spinner := common.NewSpinner(q.out, cmd.String())
	output, err := q.Runner.Output(ctx, cmd)
	if err == nil {
		spinner.Stop("")
		return nil
	}
	spinner.Stop(fmt.Sprintf("%s %s", color.RedString("✗"), cmd))
	if len(output) > 0 {
		_, _ = q.out.Write(output)
	}
	return err
}
