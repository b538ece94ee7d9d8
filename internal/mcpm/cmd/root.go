package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/common"
	"github.com/keppylab/mcpm/internal/mcpm/config"
	"github.com/keppylab/mcpm/internal/mcpm/logging"
)

func buildRootCmd() *cobra.Command {
	var (
		homeDir string
		debug   bool
		output  string
		quiet   bool
		setup   setupFlags
	)

	cmd := &cobra.Command{
		Use:   "mcpm-setup",
		Short: "Set up the MCPM Python environment",
		Long: `mcpm-setup prepares everything MCPM needs to run: it checks for Python 3,
creates a private virtual environment under ~/.mcpm, installs MCPM's
dependencies into it and writes the bin/mcpm wrapper.

Running mcpm-setup without a subcommand performs setup. Running it again is
safe: an existing environment is reused and the wrapper is regenerated.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Init(debug); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			home := config.GetEffectiveHomeDir(cmd.Flags().Lookup("home"))
			if err := config.SetupViper(home); err != nil {
				return fmt.Errorf("failed to set up config: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				logging.Error("failed to load config", zap.Error(err))
				return common.ExitWithCode(common.ExitInvalidParameters, err)
			}

			if cfg.Debug && !debug {
				if err := logging.Init(true); err != nil {
					return fmt.Errorf("failed to initialize logging: %w", err)
				}
			}

			logging.Debug("CLI initialized",
				zap.String("home_dir", cfg.HomeDir),
				zap.String("platform", cfg.Platform),
				zap.String("output", cfg.Output),
				zap.Bool("debug", cfg.Debug),
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, &setup)
		},
	}

	cmd.PersistentFlags().StringVar(&homeDir, "home", config.GetDefaultHomeDir(), "MCPM home directory (env: MCPM_HOME)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output format (json, yaml, table)")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "hide installer output unless a step fails")

	viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("output", cmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("quiet", cmd.PersistentFlags().Lookup("quiet"))

	setup.addFlags(cmd.Flags())

	cmd.AddCommand(buildSetupCmd())
	cmd.AddCommand(buildExecCmd())
	cmd.AddCommand(buildStatusCmd())
	cmd.AddCommand(buildMCPCmd())
	cmd.AddCommand(buildConfigCmd())
	cmd.AddCommand(buildVersionCmd())

	return cmd
}

// Execute runs the command line and returns the error main should exit with.
func Execute(ctx context.Context) error {
	return buildRootCmd().ExecuteContext(ctx)
}
