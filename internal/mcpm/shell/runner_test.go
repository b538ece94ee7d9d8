package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	cmd := NewCommand("uv", "pip", "install", "--python", "/home/a b/.mcpm/venv", "aiohttp>=3.9.0")
	assert.Equal(t, `uv pip install --python '/home/a b/.mcpm/venv' 'aiohttp>=3.9.0'`, cmd.String())
}

func TestExitCode(t *testing.T) {
	code, ok := ExitCode(nil)
	assert.True(t, ok)
	assert.Equal(t, 0, code)

	_, ok = ExitCode(errors.New("exec: not found"))
	assert.False(t, ok)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell script")
	}

	t.Run("run streams output and reports exit status", func(t *testing.T) {
		script := writeScript(t, "echo out-$MCPM_TEST_VALUE\necho err >&2\nexit 7\n")

		var stdout, stderr bytes.Buffer
		r := &ExecRunner{Stdout: &stdout, Stderr: &stderr}
		err := r.Run(context.Background(), Command{Name: script, Env: []string{"MCPM_TEST_VALUE=42"}})

		code, ok := ExitCode(err)
		require.True(t, ok)
		assert.Equal(t, 7, code)
		assert.Equal(t, "out-42\n", stdout.String())
		assert.Equal(t, "err\n", stderr.String())
	})

	t.Run("output captures both streams", func(t *testing.T) {
		script := writeScript(t, "echo Python 3.12.1\necho warn >&2\n")

		r := &ExecRunner{}
		out, err := r.Output(context.Background(), NewCommand(script))
		require.NoError(t, err)
		assert.Contains(t, string(out), "Python 3.12.1")
		assert.Contains(t, string(out), "warn")
	})

	t.Run("missing executable is not an exit status", func(t *testing.T) {
		r := &ExecRunner{}
		err := r.Run(context.Background(), NewCommand(filepath.Join(t.TempDir(), "missing")))
		require.Error(t, err)
		_, ok := ExitCode(err)
		assert.False(t, ok)
	})
}
