// Package cmd provides the CLI commands for lpsens.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"production/pkg/logger"
)

// options - общие флаги всех команд
type options struct {
	configFile string
	remote    string
	solver    string
	currency  string
	verbose   bool
	timeout   time.Duration
	requestID string
}

// NewRootCmd собирает дерево команд
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "lpsens",
		Short: "Solve production-planning LPs and analyse resource sensitivity",
		Long: `lpsens solves small production-planning linear programs and reports
shadow prices, feasibility ranges of every constraint and the profit impact
of proposed resource changes.

Problems are read from YAML (or JSON) files. By default the solver runs
in-process; --remote sends requests to a running sensitivity-svc.

Examples:
  lpsens solve wyndor.yaml
  lpsens analyze wyndor.yaml
  lpsens scenario wyndor.yaml --delta R2=+3 --delta R3=-2
  lpsens report wyndor.yaml --format xlsx -o wyndor.xlsx
  lpsens analyze --remote http://localhost:8080 wyndor.yaml`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			logger.Init(level)
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: config.yaml, config/config.yaml)")
	root.PersistentFlags().StringVar(&opts.remote, "remote", "", "sensitivity-svc base URL (default: solve in-process)")
	root.PersistentFlags().StringVar(&opts.solver, "solver", "", "solver: tableau, gonum (default from config)")
	root.PersistentFlags().StringVar(&opts.currency, "currency", "", "currency symbol for profit values")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	root.PersistentFlags().StringVar(&opts.requestID, "request-id", "", "X-Request-ID for remote calls")

	root.AddCommand(
		newSolveCmd(opts),
		newAnalyzeCmd(opts),
		newScenarioCmd(opts),
		newReportCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// commandContext возвращает контекст команды с таймаутом
func (o *options) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "lpsens version", version)
		},
	}
}
