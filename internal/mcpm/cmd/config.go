package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/config"
	"github.com/keppylab/mcpm/internal/mcpm/logging"
)

func buildConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  `Display the effective configuration: defaults, overridden by <home>/config.yaml, overridden by MCPM_* environment variables and flags`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			switch cfg.Output {
			case "json":
				return outputJSON(cmd.OutOrStdout(), configData(cfg))
			case "yaml":
				return outputYAML(cmd.OutOrStdout(), configData(cfg))
			default:
				return outputConfigTable(cmd, cfg)
			}
		},
	}
}

func buildConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set configuration value",
		Long: fmt.Sprintf(`Set a configuration value and save it to <home>/config.yaml

Keys: %s`, strings.Join(config.Keys(), ", ")),
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := cfg.Set(key, value); err != nil {
				return fmt.Errorf("failed to set config: %w", err)
			}

			logging.Info("Configuration updated", zap.String("key", key), zap.String("value", value))
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func buildConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "unset <key>",
		Short:     "Remove configuration value",
		Long:      `Remove a configuration value from <home>/config.yaml, restoring its default`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := cfg.Unset(key); err != nil {
				return fmt.Errorf("failed to unset config: %w", err)
			}

			logging.Info("Configuration updated", zap.String("key", key))
			fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", key)
			return nil
		},
	}
}

func buildConfigResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset to defaults",
		Long:  `Reset all configuration settings to their default values`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := cfg.Reset(); err != nil {
				return fmt.Errorf("failed to reset config: %w", err)
			}

			logging.Info("Configuration reset to defaults")
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults")
			return nil
		},
	}
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage setup configuration",
		Long:  `Manage setup configuration stored in <home>/config.yaml`,
	}

	cmd.AddCommand(buildConfigShowCmd())
	cmd.AddCommand(buildConfigSetCmd())
	cmd.AddCommand(buildConfigUnsetCmd())
	cmd.AddCommand(buildConfigResetCmd())

	return cmd
}

func outputConfigTable(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintf(out, "  Home Dir:            %s\n", cfg.HomeDir)
	fmt.Fprintf(out, "  Platform:            %s\n", cfg.Platform)
	fmt.Fprintf(out, "  Repo Root:           %s\n", valueOrEmpty(cfg.RepoRoot))
	fmt.Fprintf(out, "  Python:              %s\n", cfg.Python)
	fmt.Fprintf(out, "  Min Python Version:  %s\n", cfg.MinPythonVersion)
	fmt.Fprintf(out, "  Requirement:         %s\n", cfg.Requirement)
	fmt.Fprintf(out, "  Installers:          %s\n", strings.Join(cfg.Installers, ", "))
	fmt.Fprintf(out, "  Lock:                %t\n", cfg.Lock)
	fmt.Fprintf(out, "  Lock Timeout:        %s\n", cfg.LockTimeout)
	fmt.Fprintf(out, "  Quiet:               %t\n", cfg.Quiet)
	fmt.Fprintf(out, "  Output:              %s\n", cfg.Output)
	fmt.Fprintf(out, "  Debug:               %t\n", cfg.Debug)
	fmt.Fprintf(out, "  Server Name:         %s\n", cfg.ServerName)
	fmt.Fprintf(out, "  Server Command:      %s\n", cfg.ServerCommand)
	fmt.Fprintf(out, "  Server Package:      %s\n", cfg.ServerPackage)
	return nil
}

func configData(cfg *config.Config) map[string]any {
	return map[string]any{
		"home_dir":           cfg.HomeDir,
		"platform":           cfg.Platform,
		"repo_root":          cfg.RepoRoot,
		"python":             cfg.Python,
		"min_python_version": cfg.MinPythonVersion,
		"requirement":        cfg.Requirement,
		"installers":         cfg.Installers,
		"lock":               cfg.Lock,
		"lock_timeout":       cfg.LockTimeout.String(),
		"quiet":              cfg.Quiet,
		"output":             cfg.Output,
		"debug":              cfg.Debug,
		"server_name":        cfg.ServerName,
		"server_command":     cfg.ServerCommand,
		"server_package":     cfg.ServerPackage,
	}
}
