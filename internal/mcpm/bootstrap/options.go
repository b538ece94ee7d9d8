package bootstrap

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/keppylab/mcpm/internal/mcpm/config"
	"github.com/keppylab/mcpm/internal/mcpm/mcpconfig"
	"github.com/keppylab/mcpm/internal/mcpm/platform"
)

const (
	venvDirName    = "venv"
	lockFileName   = "setup.lock"
	wrapperDirName = "bin"
	wrapperName    = "mcpm"
	entryModule    = "mcpm.py"
)

// Options is everything setup reads from its surroundings. It is built once
// at start-up so that tests can point setup at temporary directories and a
// fake platform.
type Options struct {
	HomeDir  string
	Platform platform.Platform
	RepoRoot string

	Python           string
	MinPythonVersion string
	Requirement      string
	Installers       []string

	Lock        bool
	LockTimeout time.Duration
	Quiet       bool

	// SetupCommand is the argv prefix the generated wrapper uses to call
	// back into this program.
	SetupCommand []string

	// Server is the registration printed in the completion report.
	Server mcpconfig.Server
}

// OptionsFromConfig builds setup options from loaded configuration.
// repoRoot and setupCommand come from the running executable when the
// configuration does not pin them.
func OptionsFromConfig(cfg *config.Config, repoRoot string, setupCommand []string) Options {
	if cfg.RepoRoot != "" {
		repoRoot = cfg.RepoRoot
	}
	return Options{
		HomeDir:          cfg.HomeDir,
		Platform:         platform.Platform(cfg.Platform),
		RepoRoot:         repoRoot,
		Python:           cfg.Python,
		MinPythonVersion: cfg.MinPythonVersion,
		Requirement:      cfg.Requirement,
		Installers:       cfg.Installers,
		Lock:             cfg.Lock,
		LockTimeout:      cfg.LockTimeout,
		Quiet:            cfg.Quiet,
		SetupCommand:     setupCommand,
		Server:           mcpconfig.NPXServer(cfg.ServerName, cfg.ServerCommand, cfg.ServerPackage),
	}
}

func (o Options) validate() error {
	switch {
	case o.HomeDir == "":
		return fmt.Errorf("home directory must be set")
	case o.RepoRoot == "":
		return fmt.Errorf("repository root must be set")
	case o.Platform == "":
		return fmt.Errorf("platform must be set")
	case o.Python == "":
		return fmt.Errorf("python interpreter must be set")
	case o.Requirement == "":
		return fmt.Errorf("requirement must be set")
	case len(o.SetupCommand) == 0:
		return fmt.Errorf("setup command must be set")
	}
	return nil
}

// VenvDir is the isolated environment directory.
func (o Options) VenvDir() string {
	return filepath.Join(o.HomeDir, venvDirName)
}

// Layout is the platform layout of the isolated environment.
func (o Options) Layout() platform.Layout {
	return platform.NewLayout(o.VenvDir(), o.Platform)
}

// LockPath is the advisory lock file guarding concurrent setup runs.
func (o Options) LockPath() string {
	return filepath.Join(o.HomeDir, lockFileName)
}

// WrapperDir is the bin directory next to the installation.
func (o Options) WrapperDir() string {
	return filepath.Join(o.RepoRoot, wrapperDirName)
}

// WrapperPath is the generated entry point.
func (o Options) WrapperPath() string {
	return filepath.Join(o.WrapperDir(), wrapperName)
}

// EntryModule is the Python program the wrapper runs.
func (o Options) EntryModule() string {
	return filepath.Join(o.RepoRoot, entryModule)
}
