package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/bootstrap"
	"github.com/keppylab/mcpm/internal/mcpm/common"
	"github.com/keppylab/mcpm/internal/mcpm/config"
	"github.com/keppylab/mcpm/internal/mcpm/logging"
	"github.com/keppylab/mcpm/internal/mcpm/mcpconfig"
	"github.com/keppylab/mcpm/internal/mcpm/shell"
	"github.com/keppylab/mcpm/internal/mcpm/util"
)

// setupFlags are the one-off overrides accepted by setup. Persistent
// settings live in the config file.
type setupFlags struct {
	repoRoot    string
	python      string
	requirement string
	installers  []string
	noLock      bool
	lockTimeout time.Duration
	local       bool
}

func (f *setupFlags) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.repoRoot, "repo-root", "", "directory holding mcpm.py and bin/ (default: parent of this executable's directory)")
	flags.StringVar(&f.python, "python", "", `Python interpreter used to create the environment (default "python3")`)
	flags.StringVar(&f.requirement, "requirement", "", `requirement installed into the environment (default "aiohttp>=3.9.0")`)
	flags.StringSliceVar(&f.installers, "installers", nil, "package installers to try, in order (default uv,pip)")
	flags.BoolVar(&f.noLock, "no-lock", false, "do not take the setup lock")
	flags.DurationVar(&f.lockTimeout, "lock-timeout", 0, "how long to wait for a concurrent setup run (default 2m)")
	flags.BoolVar(&f.local, "local", false, "print a registration that runs the generated wrapper instead of npx")
}

// apply copies the flags given on the command line over cfg.
func (f *setupFlags) apply(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("repo-root") {
		cfg.RepoRoot = util.ExpandPath(f.repoRoot)
	}
	if flags.Changed("python") {
		cfg.Python = f.python
	}
	if flags.Changed("requirement") {
		cfg.Requirement = f.requirement
	}
	if flags.Changed("installers") {
		cfg.Installers = f.installers
	}
	if f.noLock {
		cfg.Lock = false
	}
	if flags.Changed("lock-timeout") {
		cfg.LockTimeout = f.lockTimeout
	}
	return cfg.Validate()
}

func buildSetupCmd() *cobra.Command {
	var flags setupFlags

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the MCPM virtual environment and wrapper",
		Long: `Check for Python 3, create the virtual environment in <home>/venv, install
MCPM's dependencies and write <repo>/bin/mcpm.

Dependencies are installed with uv when it is available and with the
environment's own pip otherwise. Each failure exits with its own status:

  2  Python 3 not found or too old
  3  virtual environment could not be created
  4  dependencies could not be installed
  5  another setup run holds the lock

Examples:
  # Set up with defaults
  mcpm-setup setup

  # Use a specific interpreter and skip uv
  mcpm-setup setup --python python3.12 --installers pip

  # Print a registration pointing at the local wrapper
  mcpm-setup setup --local`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, &flags)
		},
	}

	flags.addFlags(cmd.Flags())
	return cmd
}

func runSetup(cmd *cobra.Command, flags *setupFlags) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := flags.apply(cmd.Flags(), cfg); err != nil {
		return common.ExitWithCode(common.ExitInvalidParameters, err)
	}

	opts, err := setupOptions(cfg)
	if err != nil {
		return err
	}
	if flags.local {
		opts.Server = mcpconfig.LocalServer(cfg.ServerName, opts.WrapperPath())
	}

	return runBootstrap(cmd.Context(), cmd, opts)
}

// runBootstrap runs setup with the command's streams. Setup prints its own
// diagnostics, so cobra is told not to repeat them.
func runBootstrap(ctx context.Context, cmd *cobra.Command, opts bootstrap.Options) error {
	b, err := bootstrap.New(opts, newRunner(cmd), cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if _, err := b.Run(ctx); err != nil {
		cmd.SilenceErrors = true
		return err
	}
	return nil
}

// newRunner can be overridden in tests to avoid spawning processes.
var newRunner = func(cmd *cobra.Command) shell.Runner {
	runner := shell.NewExecRunner()
	runner.Stdin = cmd.InOrStdin()
	runner.Stdout = cmd.OutOrStdout()
	runner.Stderr = cmd.ErrOrStderr()
	return runner
}

// setupOptions derives setup options from cfg and the running executable.
func setupOptions(cfg *config.Config) (bootstrap.Options, error) {
	exe, err := setupExecutablePathFunc()
	if err != nil {
		return bootstrap.Options{}, err
	}

	repoRoot, err := defaultRepoRoot(exe)
	if err != nil {
		return bootstrap.Options{}, err
	}

	opts := bootstrap.OptionsFromConfig(cfg, repoRoot, []string{exe})
	logging.Debug("Setup options",
		zap.String("home_dir", opts.HomeDir),
		zap.String("repo_root", opts.RepoRoot),
		zap.String("setup_command", exe),
	)
	return opts, nil
}

// defaultRepoRoot is the parent of the directory holding exe, so that the
// wrapper lands in the same bin directory as mcpm-setup itself. A bare
// command name (as under `go run`) falls back to the working directory.
func defaultRepoRoot(exe string) (string, error) {
	if !filepath.IsAbs(exe) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	}
	return filepath.Dir(filepath.Dir(exe)), nil
}

// setupExecutablePathFunc can be overridden in tests to return a fixed path
var setupExecutablePathFunc = defaultSetupExecutablePath

func defaultSetupExecutablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	// `go run` builds into a temporary directory that disappears afterwards.
	if strings.Contains(exe, "go-build") && strings.Contains(exe, string(filepath.Separator)+"exe"+string(filepath.Separator)) {
		return "mcpm-setup", nil
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}
