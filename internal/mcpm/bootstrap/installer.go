package bootstrap

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/logging"
	"github.com/keppylab/mcpm/internal/mcpm/platform"
	"github.com/keppylab/mcpm/internal/mcpm/shell"
)

// PackageInstaller installs a requirement into the isolated environment.
// Installers are tried in priority order; the first available one whose
// install succeeds wins.
type PackageInstaller interface {
	Name() string
	// Available reports whether the installer can be used at all. It must
	// not fail: any probe error means unavailable.
	Available(ctx context.Context) bool
	Install(ctx context.Context, requirement string) error
}

type lookPathFunc func(file string) (string, error)

// NewInstallers builds installers for names, in the given order.
func NewInstallers(names []string, layout platform.Layout, runner shell.Runner, lookPath lookPathFunc) ([]PackageInstaller, error) {
	installers := make([]PackageInstaller, 0, len(names))
	for _, name := range names {
		switch name {
		case "uv":
			installers = append(installers, &UVInstaller{
				VenvDir:  layout.Root,
				runner:   runner,
				lookPath: lookPath,
			})
		case "pip":
			installers = append(installers, &PipInstaller{
				Pip:    layout.Pip(),
				runner: runner,
			})
		default:
			return nil, fmt.Errorf("unknown installer: %s", name)
		}
	}
	if len(installers) == 0 {
		return nil, fmt.Errorf("no package installers configured")
	}
	return installers, nil
}

// UVInstaller installs with uv's pip interface, targeting the environment
// through --python.
type UVInstaller struct {
	VenvDir string

	runner   shell.Runner
	lookPath lookPathFunc
	path     string
}

func (u *UVInstaller) Name() string {
	return "uv"
}

var uvVersionPattern = regexp.MustCompile(`uv\s+v?(\d+\.\d+(?:\.\d+)?)`)

func (u *UVInstaller) Available(ctx context.Context) bool {
	path, err := u.lookPath("uv")
	if err != nil {
		logging.Debug("uv not found on PATH", zap.Error(err))
		return false
	}

	out, err := u.runner.Output(ctx, shell.NewCommand(path, "--version"))
	if err != nil {
		logging.Debug("uv version probe failed", zap.String("path", path), zap.Error(err))
		return false
	}

	fields := []zap.Field{zap.String("path", path)}
	if m := uvVersionPattern.FindStringSubmatch(string(out)); m != nil {
		if v, err := semver.NewVersion(m[1]); err == nil {
			fields = append(fields, zap.Stringer("version", v))
		}
	}
	logging.Debug("Found uv", fields...)

	u.path = path
	return true
}

func (u *UVInstaller) Install(ctx context.Context, requirement string) error {
	path := u.path
	if path == "" {
		path = "uv"
	}
	cmd := shell.NewCommand(path, "pip", "install", "--python", u.VenvDir, requirement)
	if err := u.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

// PipInstaller uses the environment's own pip. It upgrades pip before
// installing the requirement.
type PipInstaller struct {
	Pip string

	runner shell.Runner
}

func (p *PipInstaller) Name() string {
	return "pip"
}

func (p *PipInstaller) Available(context.Context) bool {
	info, err := os.Stat(p.Pip)
	if err != nil {
		logging.Debug("pip not found in virtual environment", zap.String("path", p.Pip), zap.Error(err))
		return false
	}
	return !info.IsDir()
}

func (p *PipInstaller) Install(ctx context.Context, requirement string) error {
	for _, args := range [][]string{
		{"install", "--upgrade", "pip"},
		{"install", requirement},
	} {
		cmd := shell.NewCommand(p.Pip, args...)
		if err := p.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
	}
	return nil
}

// installerNames lists names for diagnostics.
func installerNames(installers []PackageInstaller) string {
	names := make([]string, len(installers))
	for i, inst := range installers {
		names[i] = inst.Name()
	}
	return strings.Join(names, ", ")
}
