package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"al.essio.dev/pkg/shellescape"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/keppylab/mcpm/internal/mcpm/common"
	"github.com/keppylab/mcpm/internal/mcpm/config"
	"github.com/keppylab/mcpm/internal/mcpm/launcher"
	"github.com/keppylab/mcpm/internal/mcpm/shell"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type exitError int

func (e exitError) Error() string { return "exit status" }
func (e exitError) ExitCode() int { return int(e) }

// testEnv is an isolated home directory and repository checkout.
type testEnv struct {
	home     string
	repoRoot string
	exe      string
}

func (e testEnv) python() string {
	return filepath.Join(e.home, "venv", "bin", "python")
}

func (e testEnv) pip() string {
	return filepath.Join(e.home, "venv", "bin", "pip")
}

func (e testEnv) wrapper() string {
	return filepath.Join(e.repoRoot, "bin", "mcpm")
}

func setupCmdTest(t *testing.T) testEnv {
	t.Helper()

	config.ResetGlobalConfig()
	t.Cleanup(config.ResetGlobalConfig)

	root := t.TempDir()
	env := testEnv{
		home:     filepath.Join(root, "home", ".mcpm"),
		repoRoot: filepath.Join(root, "repo"),
	}
	env.exe = filepath.Join(env.repoRoot, "bin", "mcpm-setup")

	t.Setenv("MCPM_HOME", env.home)
	t.Setenv("MCPM_PLATFORM", "linux")

	oldExe := setupExecutablePathFunc
	setupExecutablePathFunc = func() (string, error) {
		return env.exe, nil
	}
	t.Cleanup(func() { setupExecutablePathFunc = oldExe })

	useLookPath(t, map[string]string{"python3": "/usr/bin/python3"})
	return env
}

func useRunner(t *testing.T, runner shell.Runner) {
	t.Helper()

	old := newRunner
	newRunner = func(*cobra.Command) shell.Runner {
		return runner
	}
	t.Cleanup(func() { newRunner = old })
}

func useLookPath(t *testing.T, found map[string]string) {
	t.Helper()

	old := shell.LookPath
	shell.LookPath = func(file string) (string, error) {
		if path, ok := found[file]; ok {
			return path, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
	t.Cleanup(func() { shell.LookPath = old })
}

func executeCommand(args ...string) (string, string, error) {
	root := buildRootCmd()

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func populateVenv(t *testing.T, env testEnv) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(env.python()), 0755))
	require.NoError(t, os.WriteFile(env.python(), []byte("python"), 0755))
	require.NoError(t, os.WriteFile(env.pip(), []byte("pip"), 0755))
}

// expectSetup expects a full pip-only setup run against env.
func expectSetup(t *testing.T, runner *shell.MockRunner, env testEnv) {
	t.Helper()

	gomock.InOrder(
		runner.EXPECT().
			Output(gomock.Any(), shell.NewCommand("/usr/bin/python3", "--version")).
			Return([]byte("Python 3.12.1\n"), nil),
		runner.EXPECT().
			Run(gomock.Any(), shell.NewCommand("/usr/bin/python3", "-m", "venv", filepath.Join(env.home, "venv"))).
			DoAndReturn(func(context.Context, shell.Command) error {
				populateVenv(t, env)
				return nil
			}),
		runner.EXPECT().
			Run(gomock.Any(), shell.NewCommand(env.pip(), "install", "--upgrade", "pip")).
			Return(nil),
		runner.EXPECT().
			Run(gomock.Any(), shell.NewCommand(env.pip(), "install", "aiohttp>=3.9.0")).
			Return(nil),
	)
}

func TestSetupCmd(t *testing.T) {
	for _, args := range [][]string{
		{"setup", "--installers", "pip"},
		{"--installers", "pip"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			env := setupCmdTest(t)
			runner := shell.NewMockRunner(gomock.NewController(t))
			useRunner(t, runner)
			expectSetup(t, runner, env)

			stdout, stderr, err := executeCommand(args...)
			require.NoError(t, err)
			assert.Empty(t, stderr)

			assert.Contains(t, stdout, "✓ Found Python 3.12.1")
			assert.Contains(t, stdout, "✨ MCPM setup complete!")
			assert.Contains(t, stdout, `"command": "npx"`)

			content, err := os.ReadFile(env.wrapper())
			require.NoError(t, err)
			assert.Contains(t, string(content), "exec "+shellescape.Quote(env.exe)+
				" exec --home "+shellescape.Quote(env.home)+
				" --repo-root "+shellescape.Quote(env.repoRoot)+` -- "$@"`)
		})
	}
}

func TestSetupCmd_Local(t *testing.T) {
	env := setupCmdTest(t)
	runner := shell.NewMockRunner(gomock.NewController(t))
	useRunner(t, runner)
	expectSetup(t, runner, env)

	stdout, _, err := executeCommand("setup", "--installers", "pip", "--local")
	require.NoError(t, err)

	var snippet map[string]struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	start := strings.Index(stdout, "{")
	require.GreaterOrEqual(t, start, 0)
	require.NoError(t, json.Unmarshal([]byte(stdout[start:]), &snippet))
	assert.Equal(t, env.wrapper(), snippet["mcpm"].Command)
}

func TestSetupCmd_PrerequisiteMissing(t *testing.T) {
	setupCmdTest(t)
	useLookPath(t, map[string]string{})
	useRunner(t, shell.NewMockRunner(gomock.NewController(t)))

	_, stderr, err := executeCommand("setup")
	require.Error(t, err)

	assert.Equal(t, common.ExitPrerequisiteMissing, common.ExitCodeOf(err))
	assert.Contains(t, stderr, "❌ Python 3 is required but not found in PATH")
	assert.NotContains(t, stderr, "Error:", "the diagnostic is printed once")
}

func TestSetupCmd_WrapperWriteFails(t *testing.T) {
	env := setupCmdTest(t)
	require.NoError(t, os.WriteFile(env.repoRoot, []byte("not a directory"), 0644))

	runner := shell.NewMockRunner(gomock.NewController(t))
	useRunner(t, runner)
	expectSetup(t, runner, env)

	_, stderr, err := executeCommand("setup")
	require.Error(t, err)

	assert.Equal(t, common.ExitGeneralError, common.ExitCodeOf(err))
	assert.Contains(t, stderr, "❌ Failed to write wrapper")
	assert.NotContains(t, stderr, "Error:", "the diagnostic is printed once")
}

func TestSetupCmd_InvalidFlags(t *testing.T) {
	setupCmdTest(t)
	useRunner(t, shell.NewMockRunner(gomock.NewController(t)))

	_, stderr, err := executeCommand("setup", "--installers", "conda")
	require.Error(t, err)

	assert.Equal(t, common.ExitInvalidParameters, common.ExitCodeOf(err))
	assert.Contains(t, stderr, "unknown installer: conda")
}

func TestExecCmd_ForwardsArguments(t *testing.T) {
	tests := []struct {
		name     string
		runErr   error
		wantCode int
	}{
		{name: "success", wantCode: 0},
		{name: "child failure", runErr: exitError(3), wantCode: 3},
		{name: "signal", runErr: exitError(-1), wantCode: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupCmdTest(t)
			populateVenv(t, env)

			runner := shell.NewMockRunner(gomock.NewController(t))
			useRunner(t, runner)
			runner.EXPECT().Run(gomock.Any(), shell.Command{
				Name: env.python(),
				Args: []string{filepath.Join(env.repoRoot, "mcpm.py"), "search", "--json", "fs"},
				Env:  []string{"PYTHONUNBUFFERED=1"},
			}).Return(tt.runErr)

			_, stderr, err := executeCommand("exec", "--", "search", "--json", "fs")
			assert.Equal(t, tt.wantCode, common.ExitCodeOf(err))
			assert.Empty(t, stderr)
		})
	}
}

func TestExecCmd_WrapperArguments(t *testing.T) {
	env := setupCmdTest(t)
	other := filepath.Join(t.TempDir(), "other")
	populateVenv(t, env)

	runner := shell.NewMockRunner(gomock.NewController(t))
	useRunner(t, runner)
	runner.EXPECT().Run(gomock.Any(), shell.Command{
		Name: env.python(),
		Args: []string{filepath.Join(other, "mcpm.py"), "list"},
		Env:  []string{"PYTHONUNBUFFERED=1"},
	}).Return(nil)

	_, _, err := executeCommand("exec", "--home", env.home, "--repo-root", other, "--", "list")
	require.NoError(t, err)
}

func TestExecCmd_MissingEnvironment(t *testing.T) {
	setupCmdTest(t)
	useLookPath(t, map[string]string{})
	useRunner(t, shell.NewMockRunner(gomock.NewController(t)))

	_, stderr, err := executeCommand("exec", "--", "list")
	require.Error(t, err)

	assert.Equal(t, common.ExitGeneralError, common.ExitCodeOf(err))
	assert.True(t, strings.HasPrefix(stderr, launcher.MissingEnvMessage+"\n"))
	assert.Contains(t, stderr, "❌ Python 3 is required")
}

func TestStatusCmd(t *testing.T) {
	env := setupCmdTest(t)

	stdout, _, err := executeCommand("status", "-o", "json")
	require.NoError(t, err)

	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, env.home, report.HomeDir)
	assert.Equal(t, env.python(), report.Interpreter)
	assert.False(t, report.InterpreterExists)
	assert.Empty(t, report.UV)
	assert.False(t, report.Ready)

	populateVenv(t, env)
	require.NoError(t, os.MkdirAll(filepath.Dir(env.wrapper()), 0755))
	require.NoError(t, os.WriteFile(env.wrapper(), []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.repoRoot, "mcpm.py"), []byte(""), 0644))
	useLookPath(t, map[string]string{"uv": "/usr/bin/uv"})

	stdout, _, err = executeCommand("status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "/usr/bin/uv")
	assert.Contains(t, stdout, "✅ MCPM is ready")
}

func TestMCPSnippetCmd(t *testing.T) {
	env := setupCmdTest(t)

	stdout, _, err := executeCommand("mcp", "snippet")
	require.NoError(t, err)
	assert.Equal(t, `{
  "mcpm": {
    "command": "npx",
    "args": [
      "-y",
      "@keppylab/mcpm"
    ]
  }
}
`, stdout)

	stdout, _, err = executeCommand("mcp", "snippet", "--local")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"command": "`+env.wrapper()+`"`)
}

func TestMCPInstallCmd_ConfigPath(t *testing.T) {
	setupCmdTest(t)
	useRunner(t, shell.NewMockRunner(gomock.NewController(t)))

	configPath := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"mcpServers": {"other": {"command": "x", "args": []}}}`), 0644))

	stdout, _, err := executeCommand("mcp", "install", "cursor", "--config-path", configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✅ Successfully installed MCPM server configuration for Cursor")
	assert.Contains(t, stdout, "💾 Backup created: "+configPath+".backup.")

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"other"`)
	assert.Contains(t, string(content), `"@keppylab/mcpm"`)
}

func TestMCPInstallCmd_ViaCLI(t *testing.T) {
	setupCmdTest(t)
	useLookPath(t, map[string]string{"claude": "/usr/bin/claude"})
	t.Setenv("HOME", t.TempDir())

	runner := shell.NewMockRunner(gomock.NewController(t))
	useRunner(t, runner)
	runner.EXPECT().
		Output(gomock.Any(), shell.NewCommand("/usr/bin/claude", "mcp", "add", "-s", "user", "mcpm", "--", "npx", "-y", "@keppylab/mcpm")).
		Return(nil, nil)

	stdout, _, err := executeCommand("mcp", "install", "claude-code", "--no-backup")
	require.NoError(t, err)
	assert.Contains(t, stdout, "⚙️  Configuration managed by Claude Code")
}

func TestMCPInstallCmd_NoClientWithoutTerminal(t *testing.T) {
	setupCmdTest(t)

	old := selectClientFunc
	selectClientFunc = func(in io.Reader, out io.Writer) (string, error) {
		t.Error("picker must not run without a terminal")
		return "", nil
	}
	t.Cleanup(func() { selectClientFunc = old })

	_, _, err := executeCommand("mcp", "install")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no client specified")
}

func TestConfigCmd(t *testing.T) {
	env := setupCmdTest(t)

	stdout, _, err := executeCommand("config", "set", "python", "python3.12")
	require.NoError(t, err)
	assert.Equal(t, "Set python = python3.12\n", stdout)
	assert.FileExists(t, filepath.Join(env.home, "config.yaml"))

	stdout, _, err = executeCommand("config", "show", "-o", "json")
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &data))
	assert.Equal(t, "python3.12", data["python"])
	assert.Equal(t, env.home, data["home_dir"])

	_, _, err = executeCommand("config", "unset", "python")
	require.NoError(t, err)

	stdout, _, err = executeCommand("config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Python:              python3\n")

	_, _, err = executeCommand("config", "set", "installers", "conda")
	assert.Error(t, err)

	_, _, err = executeCommand("config", "reset")
	require.NoError(t, err)
}

func TestVersionCmd(t *testing.T) {
	setupCmdTest(t)

	stdout, _, err := executeCommand("version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mcpm-setup dev\n")
	assert.Contains(t, stdout, "Go version: ")
}

func TestDefaultRepoRoot(t *testing.T) {
	root, err := defaultRepoRoot(filepath.Join(string(filepath.Separator), "opt", "mcpm", "bin", "mcpm-setup"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(string(filepath.Separator), "opt", "mcpm"), root)

	wd, err := os.Getwd()
	require.NoError(t, err)
	root, err = defaultRepoRoot("mcpm-setup")
	require.NoError(t, err)
	assert.Equal(t, wd, root)
}
