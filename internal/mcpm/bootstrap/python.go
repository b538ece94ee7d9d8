package bootstrap

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/keppylab/mcpm/internal/mcpm/shell"
)

// Interpreter is a Python interpreter found by the prerequisite check.
type Interpreter struct {
	Path    string
	Version *semver.Version
	// Banner is the interpreter's own version line, e.g. "Python 3.12.1".
	Banner string
}

var pythonVersionPattern = regexp.MustCompile(`Python\s+(\d+)\.(\d+)(?:\.(\d+))?\S*`)

// parsePythonVersion extracts the version from `python --version` output.
// Pre-release suffixes such as "rc1" are ignored for the minimum check.
func parsePythonVersion(out string) (*semver.Version, string, error) {
	m := pythonVersionPattern.FindStringSubmatch(out)
	if m == nil {
		return nil, "", fmt.Errorf("unrecognized version output %q", strings.TrimSpace(out))
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v, err := semver.NewVersion(fmt.Sprintf("%s.%s.%s", m[1], m[2], patch))
	if err != nil {
		return nil, "", err
	}
	return v, m[0], nil
}

// probePython resolves name on PATH, asks it for its version and checks it
// against minVersion.
func probePython(ctx context.Context, runner shell.Runner, lookPath lookPathFunc, name, minVersion string) (*Interpreter, error) {
	path, err := lookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", name, err)
	}

	out, err := runner.Output(ctx, shell.NewCommand(path, "--version"))
	if err != nil {
		return nil, fmt.Errorf("%s --version: %w", path, err)
	}

	version, banner, err := parsePythonVersion(string(out))
	if err != nil {
		return nil, err
	}

	if minVersion != "" {
		constraint, err := semver.NewConstraint(">= " + minVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum Python version %q: %w", minVersion, err)
		}
		if !constraint.Check(version) {
			return nil, fmt.Errorf("%s is older than the required %s", banner, minVersion)
		}
	}

	return &Interpreter{Path: path, Version: version, Banner: banner}, nil
}
