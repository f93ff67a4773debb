package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
)

func newSolveCmd(opts *options) *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "solve <problem.yaml>",
		Short: "Solve the problem and print the plan and shadow prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pf, err := loadProblemFile(args[0])
			if err != nil {
				return err
			}
			b, rc, err := opts.open()
			if err != nil {
				return err
			}
			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			resp, err := b.Solve(ctx, &sensitivityv1.SolveRequest{Problem: pf.Problem, Solver: opts.solver})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			newPrinter(cmd.OutOrStdout(), rc.Currency, rc.Precision).
				solution(resp.Status, resp.Message, resp.Objective, resp.Variables, resp.ShadowPrices)
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return c
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var (
		asJSON bool
		name   string
	)

	c := &cobra.Command{
		Use:   "analyze <problem.yaml>",
		Short: "Solve and compute feasibility ranges of every constraint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pf, err := loadProblemFile(args[0])
			if err != nil {
				return err
			}
			b, rc, err := opts.open()
			if err != nil {
				return err
			}
			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			if name == "" {
				name = pf.Name
			}
			a, err := b.Analyze(ctx, &sensitivityv1.AnalyzeRequest{Problem: pf.Problem, Solver: opts.solver, Name: name})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, a)
			}
			newPrinter(cmd.OutOrStdout(), rc.Currency, rc.Precision).analysis(a)
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	c.Flags().StringVar(&name, "name", "", "analysis name (default from the problem file)")
	return c
}

func newScenarioCmd(opts *options) *cobra.Command {
	var (
		asJSON bool
		deltas []string
	)

	c := &cobra.Command{
		Use:   "scenario <problem.yaml>",
		Short: "Evaluate the profit impact of resource changes",
		Long: `Evaluate resource changes against the feasibility ranges.

Changes come from --delta flags and the "scenario" section of the problem
file; flags are added on top of the file values.

Examples:
  lpsens scenario wyndor.yaml --delta R2=+3 --delta R3=-2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pf, err := loadProblemFile(args[0])
			if err != nil {
				return err
			}
			changes, err := mergeDeltas(pf.Scenario, deltas)
			if err != nil {
				return err
			}
			b, rc, err := opts.open()
			if err != nil {
				return err
			}
			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			s, err := b.EvaluateScenario(ctx, &sensitivityv1.EvaluateScenarioRequest{
				Problem: &pf.Problem,
				Solver:  opts.solver,
				Deltas:  changes,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, s)
			}
			newPrinter(cmd.OutOrStdout(), rc.Currency, rc.Precision).scenario(s)
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	c.Flags().StringArrayVarP(&deltas, "delta", "d", nil, "resource change LABEL=VALUE (repeatable)")
	return c
}

func newReportCmd(opts *options) *cobra.Command {
	var (
		format string
		output string
		title  string
		deltas []string
	)

	c := &cobra.Command{
		Use:   "report <problem.yaml>",
		Short: "Export an analysis report (csv, markdown, json, xlsx, pdf)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pf, err := loadProblemFile(args[0])
			if err != nil {
				return err
			}
			changes, err := mergeDeltas(pf.Scenario, deltas)
			if err != nil {
				return err
			}
			b, _, err := opts.open()
			if err != nil {
				return err
			}
			ctx, cancel := opts.commandContext(cmd)
			defer cancel()

			if title == "" {
				title = pf.Name
			}
			resp, err := b.ExportReport(ctx, &sensitivityv1.ExportReportRequest{
				Problem:  &pf.Problem,
				Solver:   opts.solver,
				Format:   format,
				Title:    title,
				Scenario: changes,
			})
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(resp.Content)
				return err
			}
			if output == "" {
				output = resp.Filename
			}
			if err := os.WriteFile(output, resp.Content, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s (%d bytes)\n", output, len(resp.Content))
			return nil
		},
	}
	c.Flags().StringVarP(&format, "format", "f", "", "report format: csv, markdown, json, xlsx, pdf")
	c.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: generated name)")
	c.Flags().StringVar(&title, "title", "", "report title (default: problem name)")
	c.Flags().StringArrayVarP(&deltas, "delta", "d", nil, "include a scenario LABEL=VALUE (repeatable)")
	return c
}

// mergeDeltas складывает изменения из файла и флагов
func mergeDeltas(fromFile map[string]float64, flags []string) (map[string]float64, error) {
	parsed, err := parseDeltas(flags)
	if err != nil {
		return nil, err
	}
	for label, v := range fromFile {
		parsed[label] += v
	}
	return parsed, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
