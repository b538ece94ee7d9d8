package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keppylab/mcpm/internal/mcpm/common"
	"github.com/keppylab/mcpm/internal/mcpm/config"
	"github.com/keppylab/mcpm/internal/mcpm/launcher"
	"github.com/keppylab/mcpm/internal/mcpm/util"
)

func buildExecCmd() *cobra.Command {
	var repoRoot string

	cmd := &cobra.Command{
		Use:   "exec [flags] -- [mcpm arguments...]",
		Short: "Run MCPM inside its virtual environment",
		Long: `Run <repo>/mcpm.py with the interpreter from the MCPM virtual environment,
forwarding every argument after "--" unchanged and exiting with its status.

If the environment is missing, setup runs first and exec exits with status 1;
run the command again once setup has finished.

The generated bin/mcpm wrapper calls this command.`,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("repo-root") {
				cfg.RepoRoot = util.ExpandPath(repoRoot)
			}

			opts, err := setupOptions(cfg)
			if err != nil {
				return err
			}

			setup := func(ctx context.Context) error {
				return runBootstrap(ctx, cmd, opts)
			}
			l := launcher.New(opts, newRunner(cmd), cmd.ErrOrStderr(), setup)

			code, err := l.Run(cmd.Context(), args)
			if err != nil {
				return err
			}
			if code != common.ExitSuccess {
				cmd.SilenceErrors = true
				return common.SilentExit(code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repoRoot, "repo-root", "", "directory holding mcpm.py")
	return cmd
}
