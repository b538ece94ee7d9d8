package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/keppylab/mcpm/internal/mcpm/bootstrap"
	"github.com/keppylab/mcpm/internal/mcpm/config"
	"github.com/keppylab/mcpm/internal/mcpm/shell"
	"github.com/keppylab/mcpm/internal/mcpm/util"
)

type statusReport struct {
	HomeDir           string `json:"home_dir" yaml:"home_dir"`
	HomeExists        bool   `json:"home_exists" yaml:"home_exists"`
	Interpreter       string `json:"interpreter" yaml:"interpreter"`
	InterpreterExists bool   `json:"interpreter_exists" yaml:"interpreter_exists"`
	UV                string `json:"uv" yaml:"uv"`
	Wrapper           string `json:"wrapper" yaml:"wrapper"`
	WrapperExists     bool   `json:"wrapper_exists" yaml:"wrapper_exists"`
	EntryModule       string `json:"entry_module" yaml:"entry_module"`
	EntryModuleExists bool   `json:"entry_module_exists" yaml:"entry_module_exists"`
	Ready             bool   `json:"ready" yaml:"ready"`
}

func collectStatus(opts bootstrap.Options) statusReport {
	report := statusReport{
		HomeDir:     opts.HomeDir,
		HomeExists:  util.IsDir(opts.HomeDir),
		Interpreter: opts.Layout().Python(),
		Wrapper:     opts.WrapperPath(),
		EntryModule: opts.EntryModule(),
	}
	report.InterpreterExists = util.Exists(report.Interpreter)
	report.EntryModuleExists = util.Exists(report.EntryModule)

	report.WrapperExists = true
	for _, path := range bootstrap.WrapperCandidates(opts) {
		report.WrapperExists = report.WrapperExists && util.Exists(path)
	}

	if path, err := shell.LookPath("uv"); err == nil {
		report.UV = path
	}

	report.Ready = report.InterpreterExists && report.WrapperExists && report.EntryModuleExists
	return report
}

func buildStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the MCPM environment",
		Long: `Report whether the MCPM home directory, virtual environment, wrapper and
entry module are in place, and whether uv is available for installs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			opts, err := setupOptions(cfg)
			if err != nil {
				return err
			}
			report := collectStatus(opts)

			switch cfg.Output {
			case "json":
				return outputJSON(cmd.OutOrStdout(), report)
			case "yaml":
				return outputYAML(cmd.OutOrStdout(), report)
			default:
				return outputStatusTable(cmd, report)
			}
		},
	}
}

func outputStatusTable(cmd *cobra.Command, report statusReport) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("COMPONENT", "PATH", "STATUS")
	table.Append("Home directory", report.HomeDir, presence(report.HomeExists))
	table.Append("Interpreter", report.Interpreter, presence(report.InterpreterExists))
	table.Append("Wrapper", report.Wrapper, presence(report.WrapperExists))
	table.Append("Entry module", report.EntryModule, presence(report.EntryModuleExists))
	if report.UV != "" {
		table.Append("uv", report.UV, "available")
	} else {
		table.Append("uv", "(not found)", "pip will be used")
	}
	if err := table.Render(); err != nil {
		return err
	}

	if report.Ready {
		fmt.Fprintln(cmd.OutOrStdout(), "✅ MCPM is ready")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "💡 Run 'mcpm-setup' to finish setting up MCPM")
	}
	return nil
}

func presence(ok bool) string {
	if ok {
		return "ok"
	}
	return "missing"
}
