package mcpconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/logging"
	"github.com/keppylab/mcpm/internal/mcpm/shell"
	"github.com/keppylab/mcpm/internal/mcpm/util"
)

// InstallOptions configures one registration.
type InstallOptions struct {
	Server Server
	// CreateBackup copies the client's config file aside before changing it.
	CreateBackup bool
	// ConfigPath overrides config file discovery. The file is then patched
	// directly, even for clients that have a CLI.
	ConfigPath string
}

// InstallResult reports what a registration touched.
type InstallResult struct {
	Client     string
	ConfigPath string
	BackupPath string
	// ViaCLI is set when the client's own CLI made the change.
	ViaCLI bool
}

// Installer registers the MCPM server with MCP clients.
type Installer struct {
	runner   shell.Runner
	lookPath func(string) (string, error)
	now      func() time.Time
}

func NewInstaller(runner shell.Runner) *Installer {
	return &Installer{
		runner:   runner,
		lookPath: shell.LookPath,
		now:      time.Now,
	}
}

// Install registers opts.Server with the named client. Registering the same
// server name twice replaces the earlier entry.
func (i *Installer) Install(ctx context.Context, clientName string, opts InstallOptions) (*InstallResult, error) {
	if opts.Server.Name == "" || opts.Server.Command == "" {
		return nil, fmt.Errorf("server name and command are required")
	}

	cfg, err := findClientConfig(clientName)
	if err != nil {
		return nil, err
	}

	var configPath string
	switch {
	case opts.ConfigPath != "":
		configPath = util.ExpandPath(opts.ConfigPath)
	case len(cfg.ConfigPaths) > 0:
		configPath, err = findClientConfigFile(cfg.ConfigPaths)
		if err != nil {
			return nil, fmt.Errorf("failed to find configuration for %s: %w", cfg.Name, err)
		}
	case cfg.InstallCommand == nil:
		return nil, fmt.Errorf("client %s has no config paths or install command", cfg.Name)
	}

	logging.Info("Installing MCPM server configuration",
		zap.String("client", cfg.Name),
		zap.String("config_path", configPath),
		zap.String("servers_path", cfg.ServersPath),
		zap.Bool("create_backup", opts.CreateBackup),
	)

	result := &InstallResult{Client: cfg.Name, ConfigPath: configPath}

	if opts.CreateBackup && configPath != "" {
		result.BackupPath, err = createConfigBackup(configPath, i.now())
		if err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
	}

	if cfg.InstallCommand != nil && opts.ConfigPath == "" {
		if err := i.addServerViaCLI(ctx, cfg, opts.Server); err != nil {
			return nil, fmt.Errorf("failed to add MCPM server configuration: %w", err)
		}
		result.ViaCLI = true
		return result, nil
	}

	serversPath := cfg.ServersPath
	if serversPath == "" {
		serversPath = "/mcpServers"
	}
	if err := addServerViaJSON(configPath, serversPath, opts.Server); err != nil {
		return nil, fmt.Errorf("failed to add MCPM server configuration: %w", err)
	}
	return result, nil
}

// findClientConfigFile returns the first existing path, or the first path
// when none exists yet.
func findClientConfigFile(configPaths []string) (string, error) {
	if len(configPaths) == 0 {
		return "", fmt.Errorf("no config paths provided")
	}

	for _, path := range configPaths {
		expanded := util.ExpandPath(path)
		if _, err := os.Stat(expanded); err == nil {
			logging.Debug("Found existing config file", zap.String("path", expanded))
			return expanded, nil
		}
	}

	defaultPath := util.ExpandPath(configPaths[0])
	logging.Debug("No existing config found, will create at default location", zap.String("path", defaultPath))
	return defaultPath, nil
}

// createConfigBackup copies configPath next to itself and returns the copy's
// path, or "" when there is nothing to back up.
func createConfigBackup(configPath string, now time.Time) (string, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Debug("No existing configuration file found, skipping backup")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read original config file: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%d", configPath, now.Unix())
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	logging.Debug("Created configuration backup", zap.String("backup_path", backupPath))
	return backupPath, nil
}

func (i *Installer) addServerViaCLI(ctx context.Context, cfg *clientConfig, server Server) error {
	argv, err := cfg.InstallCommand(server)
	if err != nil {
		return err
	}

	path, err := i.lookPath(argv[0])
	if err != nil {
		return fmt.Errorf("%s CLI (%s) not found in PATH: %w", cfg.Name, argv[0], err)
	}

	cmd := shell.NewCommand(path, argv[1:]...)
	logging.Info("Adding MCPM server using CLI", zap.String("client", cfg.Name), zap.Stringer("command", cmd))

	output, err := i.runner.Output(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to run %s CLI command: %w\nOutput: %s", cfg.Name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// addServerViaJSON writes the server entry under serversPath (a JSON
// pointer) in configPath, keeping comments and formatting of the rest of
// the file.
func addServerViaJSON(configPath, serversPath string, server Server) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create configuration directory %s: %w", dir, err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		content = []byte("{}")
	}

	value, err := hujson.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse existing config: %w", err)
	}

	if value.Find(serversPath) == nil {
		parent := fmt.Sprintf(`[{ "op": "add", "path": %q, "value": {} }]`, serversPath)
		if err := value.Patch([]byte(parent)); err != nil {
			return fmt.Errorf("failed to create MCP servers path: %w", err)
		}
	}

	entry, err := json.Marshal(server.Entry())
	if err != nil {
		return fmt.Errorf("failed to marshal server entry: %w", err)
	}
	pointer := serversPath + "/" + pointerEscaper.Replace(server.Name)
	patch := fmt.Sprintf(`[{ "op": "add", "path": %q, "value": %s }]`, pointer, entry)
	if err := value.Patch([]byte(patch)); err != nil {
		return fmt.Errorf("failed to apply JSON patch: %w", err)
	}

	formatted, err := hujson.Format(value.Pack())
	if err != nil {
		return fmt.Errorf("failed to format patched JSON: %w", err)
	}
	if err := os.WriteFile(configPath, formatted, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	logging.Debug("Added MCPM server to configuration",
		zap.String("server_name", server.Name),
		zap.String("command", server.Command),
		zap.Strings("args", server.Args),
	)
	return nil
}
