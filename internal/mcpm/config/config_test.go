package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/keppylab/mcpm/internal/mcpm/platform"
)

func setupTestConfig(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	viper.Reset()
	t.Cleanup(viper.Reset)

	return tmpDir
}

func setupViper(t *testing.T, homeDir string) {
	t.Helper()

	if err := SetupViper(homeDir); err != nil {
		t.Fatalf("Failed to setup Viper: %v", err)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	tmpDir := setupTestConfig(t)
	setupViper(t, tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.HomeDir != tmpDir {
		t.Errorf("Expected HomeDir %s, got %s", tmpDir, cfg.HomeDir)
	}
	if cfg.Python != DefaultPython {
		t.Errorf("Expected Python %s, got %s", DefaultPython, cfg.Python)
	}
	if cfg.Requirement != DefaultRequirement {
		t.Errorf("Expected Requirement %s, got %s", DefaultRequirement, cfg.Requirement)
	}
	assert.Equal(t, DefaultInstallers, cfg.Installers)
	assert.Equal(t, string(platform.Current()), cfg.Platform)
	assert.Equal(t, DefaultLockTimeout, cfg.LockTimeout)
	assert.True(t, cfg.Lock)
	assert.Equal(t, "npx", cfg.ServerCommand)
	assert.Equal(t, "@keppylab/mcpm", cfg.ServerPackage)
}

func TestLoad_FromConfigFile(t *testing.T) {
	tmpDir := setupTestConfig(t)

	configContent := `python: /usr/bin/python3.12
requirement: aiohttp>=3.10
installers:
  - pip
lock: false
lock_timeout: 30s
output: json
`
	if err := os.WriteFile(GetConfigFile(tmpDir), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	setupViper(t, tmpDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/python3.12", cfg.Python)
	assert.Equal(t, "aiohttp>=3.10", cfg.Requirement)
	assert.Equal(t, []string{"pip"}, cfg.Installers)
	assert.False(t, cfg.Lock)
	assert.Equal(t, 30*time.Second, cfg.LockTimeout)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir := setupTestConfig(t)

	if err := os.WriteFile(GetConfigFile(tmpDir), []byte("python: python3.11\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("MCPM_PYTHON", "python3.13")
	t.Setenv("MCPM_INSTALLERS", "pip, UV")
	t.Setenv("MCPM_LOCK_TIMEOUT", "90s")
	t.Setenv("MCPM_PLATFORM", "windows")

	setupViper(t, tmpDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "python3.13", cfg.Python, "env should win over the config file")
	assert.Equal(t, []string{"pip", "uv"}, cfg.Installers)
	assert.Equal(t, 90*time.Second, cfg.LockTimeout)
	assert.Equal(t, "windows", cfg.Platform)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "unknown installer", content: "installers: [conda]\n", errMsg: "unknown installer: conda"},
		{name: "duplicate installer", content: "installers: [uv, uv]\n", errMsg: "installer listed twice: uv"},
		{name: "bad min version", content: "min_python_version: three\n", errMsg: "invalid min_python_version"},
		{name: "bad output", content: "output: xml\n", errMsg: "invalid output format: xml"},
		{name: "empty requirement", content: "requirement: \"\"\n", errMsg: "requirement must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := setupTestConfig(t)
			require.NoError(t, os.WriteFile(GetConfigFile(tmpDir), []byte(tt.content), 0644))
			setupViper(t, tmpDir)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func readConfigFile(t *testing.T, homeDir string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(GetConfigFile(homeDir))
	require.NoError(t, err)

	values := map[string]any{}
	require.NoError(t, yaml.Unmarshal(data, &values))
	return values
}

func TestConfig_Set(t *testing.T) {
	tmpDir := setupTestConfig(t)
	setupViper(t, tmpDir)

	cfg, err := Load()
	require.NoError(t, err)

	tests := []struct {
		key     string
		value   string
		want    any
		wantErr string
	}{
		{key: "python", value: "python3.12", want: "python3.12"},
		{key: "installers", value: "pip,uv", want: []any{"pip", "uv"}},
		{key: "lock", value: "false", want: false},
		{key: "quiet", value: "true", want: true},
		{key: "output", value: "yaml", want: "yaml"},
		{key: "lock", value: "maybe", wantErr: "invalid lock value: maybe"},
		{key: "lock_timeout", value: "soon", wantErr: "invalid lock_timeout value"},
		{key: "installers", value: "brew", wantErr: "unknown installer: brew"},
		{key: "min_python_version", value: "x.y", wantErr: "invalid min_python_version"},
		{key: "nope", value: "1", wantErr: "unknown configuration key: nope"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, readConfigFile(t, tmpDir)[tt.key])
		})
	}

	assert.Equal(t, "python3.12", cfg.Python)
	assert.Equal(t, []string{"pip", "uv"}, cfg.Installers)
	assert.False(t, cfg.Lock)
}

func TestConfig_UnsetAndReset(t *testing.T) {
	tmpDir := setupTestConfig(t)

	cfg, err := UseTestConfig(tmpDir, map[string]any{
		"python":      "python3.10",
		"requirement": "aiohttp==3.9.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "python3.10", cfg.Python)

	require.NoError(t, cfg.Unset("python"))
	assert.Equal(t, DefaultPython, cfg.Python)
	values := readConfigFile(t, tmpDir)
	assert.NotContains(t, values, "python")
	assert.Equal(t, "aiohttp==3.9.5", values["requirement"])

	assert.Error(t, cfg.Unset("nope"))

	require.NoError(t, cfg.Reset())
	assert.Equal(t, DefaultRequirement, cfg.Requirement)
	assert.Empty(t, readConfigFile(t, tmpDir))
}

func TestGetEffectiveHomeDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv(HomeEnvVar, "")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("home", "", "")
	flag := flags.Lookup("home")

	assert.Equal(t, filepath.Join(home, ".mcpm"), GetEffectiveHomeDir(flag))

	t.Setenv(HomeEnvVar, "~/custom-mcpm")
	assert.Equal(t, filepath.Join(home, "custom-mcpm"), GetEffectiveHomeDir(flag))

	require.NoError(t, flags.Set("home", "/srv/mcpm"))
	assert.Equal(t, filepath.Clean("/srv/mcpm"), GetEffectiveHomeDir(flag))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "python")
	assert.Contains(t, keys, "installers")
	assert.IsNonDecreasing(t, keys)
}
