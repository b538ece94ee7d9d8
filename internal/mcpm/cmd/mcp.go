package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keppylab/mcpm/internal/mcpm/config"
	"github.com/keppylab/mcpm/internal/mcpm/mcpconfig"
	"github.com/keppylab/mcpm/internal/mcpm/util"
)

// selectClientFunc can be overridden in tests to skip the interactive picker
var selectClientFunc = mcpconfig.SelectClient

func buildMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Register MCPM with MCP clients",
		Long: `Register MCPM as an MCP server with AI assistants and editors, or print the
registration to paste in by hand.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(buildMCPInstallCmd())
	cmd.AddCommand(buildMCPSnippetCmd())

	return cmd
}

// mcpServer is the registration described by cfg. With local set it runs
// the generated wrapper rather than the published package.
func mcpServer(cfg *config.Config, local bool) (mcpconfig.Server, error) {
	if !local {
		return mcpconfig.NPXServer(cfg.ServerName, cfg.ServerCommand, cfg.ServerPackage), nil
	}
	opts, err := setupOptions(cfg)
	if err != nil {
		return mcpconfig.Server{}, err
	}
	return mcpconfig.LocalServer(cfg.ServerName, opts.WrapperPath()), nil
}

func buildMCPInstallCmd() *cobra.Command {
	var (
		noBackup   bool
		configPath string
		local      bool
	)

	cmd := &cobra.Command{
		Use:   "install [client]",
		Short: "Register MCPM with an MCP client",
		Long: fmt.Sprintf(`Register MCPM as an MCP server in the configuration of an MCP client.

Clients that ship a CLI (Claude Code, Codex, Gemini CLI, VS Code) are
configured through it. For the others the JSON configuration file is patched
in place, keeping comments and every other server entry.

%s
If no client is specified, you'll be prompted to select one interactively.

Examples:
  # Interactive client selection
  mcpm-setup mcp install

  # Install for Cursor without a backup
  mcpm-setup mcp install cursor --no-backup

  # Point Claude Desktop at the local wrapper instead of npx
  mcpm-setup mcp install claude-desktop --local`, mcpconfig.ClientsHelp()),
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: mcpconfig.ClientNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			server, err := mcpServer(cfg, local)
			if err != nil {
				return err
			}

			var clientName string
			if len(args) == 0 {
				if !util.IsTerminal(cmd.OutOrStdout()) {
					return fmt.Errorf("no client specified. Supported clients: %v", mcpconfig.ClientNames())
				}
				clientName, err = selectClientFunc(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("failed to select client: %w", err)
				}
			} else {
				clientName = args[0]
			}

			installer := mcpconfig.NewInstaller(newRunner(cmd))
			result, err := installer.Install(cmd.Context(), clientName, mcpconfig.InstallOptions{
				Server:       server,
				CreateBackup: !noBackup,
				ConfigPath:   configPath,
			})
			if err != nil {
				return err
			}

			printInstallResult(cmd, result, server)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip creating backup of existing configuration (default: create backup)")
	cmd.Flags().StringVar(&configPath, "config-path", "", "Custom path to configuration file (overrides default locations)")
	cmd.Flags().BoolVar(&local, "local", false, "Register the generated bin/mcpm wrapper instead of the npx package")

	return cmd
}

func printInstallResult(cmd *cobra.Command, result *mcpconfig.InstallResult, server mcpconfig.Server) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Successfully installed MCPM server configuration for %s\n", result.Client)
	if result.ViaCLI {
		fmt.Fprintf(out, "⚙️  Configuration managed by %s\n", result.Client)
	} else {
		fmt.Fprintf(out, "📁 Configuration file: %s\n", result.ConfigPath)
	}
	if result.BackupPath != "" {
		fmt.Fprintf(out, "💾 Backup created: %s\n", result.BackupPath)
	}

	fmt.Fprintf(out, "\n💡 Next steps:\n")
	fmt.Fprintf(out, "   1. Restart %s to load the new configuration\n", result.Client)
	fmt.Fprintf(out, "   2. The MCPM server will be available as '%s'\n", server.Name)
}

func buildMCPSnippetCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "snippet",
		Short: "Print the MCP server registration as JSON",
		Long: `Print the JSON fragment that registers MCPM under "mcpServers" in an MCP
client's configuration. This is the same fragment setup prints when it
finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			server, err := mcpServer(cfg, local)
			if err != nil {
				return err
			}

			snippet, err := server.Snippet()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(snippet))
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Print a registration for the generated bin/mcpm wrapper")
	return cmd
}
