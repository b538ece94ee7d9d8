package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/keppylab/mcpm/internal/mcpm/platform"
	"github.com/keppylab/mcpm/internal/mcpm/util"
)

type Config struct {
	HomeDir          string        `mapstructure:"home_dir" yaml:"-"`
	Platform         string        `mapstructure:"platform" yaml:"platform"`
	RepoRoot         string        `mapstructure:"repo_root" yaml:"repo_root"`
	Python           string        `mapstructure:"python" yaml:"python"`
	MinPythonVersion string        `mapstructure:"min_python_version" yaml:"min_python_version"`
	Requirement      string        `mapstructure:"requirement" yaml:"requirement"`
	Installers       []string      `mapstructure:"installers" yaml:"installers"`
	Lock             bool          `mapstructure:"lock" yaml:"lock"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
	Quiet            bool          `mapstructure:"quiet" yaml:"quiet"`
	Output           string        `mapstructure:"output" yaml:"output"`
	Debug            bool          `mapstructure:"debug" yaml:"debug"`
	ServerName       string        `mapstructure:"server_name" yaml:"server_name"`
	ServerCommand    string        `mapstructure:"server_command" yaml:"server_command"`
	ServerPackage    string        `mapstructure:"server_package" yaml:"server_package"`
}

const (
	DefaultPython           = "python3"
	DefaultMinPythonVersion = "3.8"
	DefaultRequirement      = "aiohttp>=3.9.0"
	DefaultLock             = true
	DefaultLockTimeout      = 2 * time.Minute
	DefaultQuiet            = false
	DefaultOutput           = "table"
	DefaultDebug            = false
	DefaultServerName       = "mcpm"
	DefaultServerCommand    = "npx"
	DefaultServerPackage    = "@keppylab/mcpm"
	ConfigFileName          = "config.yaml"
	HomeDirName             = ".mcpm"
	EnvPrefix               = "MCPM"
	HomeEnvVar              = "MCPM_HOME"
)

// DefaultInstallers is the package installer priority order: the fast
// manager first, the environment's own pip second.
var DefaultInstallers = []string{"uv", "pip"}

// ValidInstallers lists every installer name setup knows how to drive.
var ValidInstallers = []string{"uv", "pip"}

var defaultValues = map[string]any{
	"platform":           string(platform.Current()),
	"repo_root":          "",
	"python":             DefaultPython,
	"min_python_version": DefaultMinPythonVersion,
	"requirement":        DefaultRequirement,
	"installers":         DefaultInstallers,
	"lock":               DefaultLock,
	"lock_timeout":       DefaultLockTimeout,
	"quiet":              DefaultQuiet,
	"output":             DefaultOutput,
	"debug":              DefaultDebug,
	"server_name":        DefaultServerName,
	"server_command":     DefaultServerCommand,
	"server_package":     DefaultServerPackage,
}

func ApplyDefaults(v *viper.Viper) {
	for key, value := range defaultValues {
		v.SetDefault(key, value)
	}
}

func ApplyEnvOverrides(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
}

func ReadInConfig(v *viper.Viper) error {
	// A missing config file is fine: defaults and env vars still apply.
	if err := v.ReadInConfig(); err != nil &&
		!errors.As(err, &viper.ConfigFileNotFoundError{}) &&
		!errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SetupViper configures the global Viper instance with defaults, env vars,
// and the config file inside homeDir.
func SetupViper(homeDir string) error {
	v := viper.GetViper()

	v.SetConfigFile(GetConfigFile(homeDir))
	ApplyEnvOverrides(v)
	ApplyDefaults(v)

	return ReadInConfig(v)
}

// decodeHook lets env vars and config files spell lists as comma separated
// strings (MCPM_INSTALLERS=pip,uv) and durations as strings ("90s").
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HomeDir: filepath.Dir(v.ConfigFileUsed()),
	}

	if err := v.Unmarshal(cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.RepoRoot = util.ExpandPath(cfg.RepoRoot)
	cfg.Installers = normalizeInstallers(cfg.Installers)

	return cfg, nil
}

// Load creates a new Config instance from the current viper state. It must be
// called after SetupViper.
func Load() (*Config, error) {
	v := viper.GetViper()

	if err := ReadInConfig(v); err != nil {
		return nil, err
	}

	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that setup cannot recover from at run time.
func (c *Config) Validate() error {
	if c.Python == "" {
		return fmt.Errorf("python must not be empty")
	}
	if c.Requirement == "" {
		return fmt.Errorf("requirement must not be empty")
	}
	if _, err := semver.NewVersion(c.MinPythonVersion); err != nil {
		return fmt.Errorf("invalid min_python_version %q: %w", c.MinPythonVersion, err)
	}
	if err := ValidateInstallers(c.Installers); err != nil {
		return err
	}
	return ValidateOutputFormat(c.Output)
}

func ensureHomeDir(homeDir string) (string, error) {
	if err := os.MkdirAll(homeDir, 0755); err != nil {
		return "", fmt.Errorf("error creating home directory: %w", err)
	}
	return GetConfigFile(homeDir), nil
}

func (c *Config) EnsureHomeDir() (string, error) {
	return ensureHomeDir(c.HomeDir)
}

// UseTestConfig writes only the specified key-value pairs to the config file
// in homeDir and returns a Config loaded from it. Intended for tests.
func UseTestConfig(homeDir string, values map[string]any) (*Config, error) {
	configFile, err := ensureHomeDir(homeDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	for key, value := range values {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(configFile); err != nil {
		return nil, fmt.Errorf("error writing config file: %w", err)
	}

	viper.Reset()
	if err := SetupViper(homeDir); err != nil {
		return nil, err
	}

	return FromViper(viper.GetViper())
}

func (c *Config) Set(key, value string) error {
	validated, err := c.updateField(key, value)
	if err != nil {
		return err
	}

	configFile, err := c.EnsureHomeDir()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	_ = v.ReadInConfig()

	v.Set(key, validated)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func setBool(key, val string) (bool, error) {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %s (must be true or false)", key, val)
	}
	return b, nil
}

func setString(key string, value any, validate func(string) error) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s must be string, got %T", key, value)
	}
	if validate != nil {
		if err := validate(s); err != nil {
			return "", err
		}
	}
	return s, nil
}

func notEmpty(key string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		return nil
	}
}

func toBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return setBool(key, v)
	default:
		return false, fmt.Errorf("%s must be string or bool, got %T", key, value)
	}
}

// updateField validates value for key, stores it on c and mirrors it into the
// global viper state. It accepts user input strings as well as the typed
// values held in defaultValues.
func (c *Config) updateField(key string, value any) (any, error) {
	var validated any

	switch key {
	case "platform":
		s, err := setString(key, value, notEmpty(key))
		if err != nil {
			return nil, err
		}
		c.Platform = s
		validated = s

	case "repo_root":
		s, err := setString(key, value, nil)
		if err != nil {
			return nil, err
		}
		c.RepoRoot = util.ExpandPath(s)
		validated = s

	case "python":
		s, err := setString(key, value, notEmpty(key))
		if err != nil {
			return nil, err
		}
		c.Python = s
		validated = s

	case "min_python_version":
		s, err := setString(key, value, func(s string) error {
			if _, err := semver.NewVersion(s); err != nil {
				return fmt.Errorf("invalid min_python_version %q: %w", s, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		c.MinPythonVersion = s
		validated = s

	case "requirement":
		s, err := setString(key, value, notEmpty(key))
		if err != nil {
			return nil, err
		}
		c.Requirement = s
		validated = s

	case "installers":
		var names []string
		switch v := value.(type) {
		case []string:
			names = v
		case string:
			names = strings.Split(v, ",")
		default:
			return nil, fmt.Errorf("installers must be string or list, got %T", value)
		}
		names = normalizeInstallers(names)
		if err := ValidateInstallers(names); err != nil {
			return nil, err
		}
		c.Installers = names
		validated = names

	case "lock":
		b, err := toBool(key, value)
		if err != nil {
			return nil, err
		}
		c.Lock = b
		validated = b

	case "lock_timeout":
		switch v := value.(type) {
		case time.Duration:
			c.LockTimeout = v
			validated = v
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid lock_timeout value: %s (must be a duration like 90s or 2m)", v)
			}
			if d < 0 {
				return nil, fmt.Errorf("lock_timeout must not be negative")
			}
			c.LockTimeout = d
			validated = d
		default:
			return nil, fmt.Errorf("lock_timeout must be string or duration, got %T", value)
		}

	case "quiet":
		b, err := toBool(key, value)
		if err != nil {
			return nil, err
		}
		c.Quiet = b
		validated = b

	case "output":
		s, err := setString(key, value, ValidateOutputFormat)
		if err != nil {
			return nil, err
		}
		c.Output = s
		validated = s

	case "debug":
		b, err := toBool(key, value)
		if err != nil {
			return nil, err
		}
		c.Debug = b
		validated = b

	case "server_name":
		s, err := setString(key, value, notEmpty(key))
		if err != nil {
			return nil, err
		}
		c.ServerName = s
		validated = s

	case "server_command":
		s, err := setString(key, value, notEmpty(key))
		if err != nil {
			return nil, err
		}
		c.ServerCommand = s
		validated = s

	case "server_package":
		s, err := setString(key, value, notEmpty(key))
		if err != nil {
			return nil, err
		}
		c.ServerPackage = s
		validated = s

	default:
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}

	viper.Set(key, validated)
	return validated, nil
}

func (c *Config) Unset(key string) error {
	configFile, err := c.EnsureHomeDir()
	if err != nil {
		return err
	}

	vCurrent := viper.New()
	vCurrent.SetConfigFile(configFile)
	_ = vCurrent.ReadInConfig()

	vNew := viper.New()
	vNew.SetConfigFile(configFile)

	_, validKey := defaultValues[key]
	for k, v := range vCurrent.AllSettings() {
		if k != key {
			vNew.Set(k, v)
		} else {
			validKey = true
		}
	}

	if !validKey {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if def, ok := defaultValues[key]; ok {
		if _, err := c.updateField(key, def); err != nil {
			return err
		}
	}

	if err := vNew.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func (c *Config) Reset() error {
	configFile, err := c.EnsureHomeDir()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	for key, value := range defaultValues {
		if _, err := c.updateField(key, value); err != nil {
			return err
		}
	}

	return nil
}

// Keys returns every configuration key accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaultValues))
	for key := range defaultValues {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func GetConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

func (c *Config) GetConfigFile() string {
	return GetConfigFile(c.HomeDir)
}

func GetDefaultHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", HomeDirName)
	}

	return filepath.Join(homeDir, HomeDirName)
}

// GetEffectiveHomeDir resolves the home directory from the --home flag, then
// MCPM_HOME, then the default ~/.mcpm.
func GetEffectiveHomeDir(homeFlag *pflag.Flag) string {
	if homeFlag != nil && homeFlag.Changed {
		return util.ExpandPath(homeFlag.Value.String())
	}

	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return util.ExpandPath(dir)
	}

	return GetDefaultHomeDir()
}

// ValidateInstallers rejects empty lists, unknown names and duplicates.
func ValidateInstallers(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("installers must name at least one of: %s", strings.Join(ValidInstallers, ", "))
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !slices.Contains(ValidInstallers, name) {
			return fmt.Errorf("unknown installer: %s (must be one of: %s)", name, strings.Join(ValidInstallers, ", "))
		}
		if seen[name] {
			return fmt.Errorf("installer listed twice: %s", name)
		}
		seen[name] = true
	}
	return nil
}

func normalizeInstallers(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// ResetGlobalConfig clears the global viper state between tests.
func ResetGlobalConfig() {
	viper.Reset()
}
