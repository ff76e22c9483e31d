package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/engine"
)

// RepairOptions holds flags for the repair command.
type RepairOptions struct {
	*RootOptions
	StoreOptions
	RunFlags

	ReportPath  string
	MetricsFile string

	// RunIDs overrides the run id generator (for tests).
	RunIDs engine.RunIDGenerator
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	return newRepairCommand(&RepairOptions{RootOptions: rootOpts})
}

func newRepairCommand(opts *RepairOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair <location>",
		Short: "Repair a plan graph until it converges",
		Long: `Run repair passes against the graph at <location> until every
invariant holds or no further progress is possible.

Each pass reloads the graph, finds gaps, mints the missing nodes and links,
writes them and re-verifies. The run stops when all ten invariants pass,
when a pass changes nothing, or when the budget is spent.

Exit codes:
  0 - Converged
  1 - Exhausted (invariants still fail)
  2 - Command error (bad path, unreadable store, invalid config)

Examples:
  plangraph repair ./plan
  plangraph repair --budget 3 --report report.json ./plan
  plangraph repair --backend sqlite ./plan.db
  plangraph repair --backend memory ./plan   # dry run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd, opts, args[0])
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions)
	addRunFlags(cmd, &opts.RunFlags)
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "write the JSON report to this file")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

func runRepair(cmd *cobra.Command, opts *RepairOptions, location string) error {
	f := opts.formatter(cmd)
	logger := opts.logger()
	ctx := commandContext(cmd)

	cfg, err := resolveConfig(cmd, &opts.StoreOptions, &opts.RunFlags)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	st, err := openStore(ctx, cfg.Backend, location, false, logger)
	if err != nil {
		return storeError(f, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("close store", zap.Error(closeErr))
		}
	}()

	var metrics *engine.Metrics
	if opts.MetricsFile != "" {
		metrics = engine.NewMetrics()
	}
	extra := []engine.Option{engine.WithMetrics(metrics)}
	if opts.RunIDs != nil {
		extra = append(extra, engine.WithRunIDGenerator(opts.RunIDs))
	}
	ctrl, err := newController(st, cfg, logger, extra...)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "load templates", err)
	}

	report, err := ctrl.Run(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeRun, "repair aborted", err)
	}

	if opts.ReportPath != "" {
		if err := writeReport(opts.ReportPath, report); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWrite, "write report", err)
		}
	}
	if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
		return f.Fail(ExitCommandError, ErrCodeWrite, "write metrics", err)
	}

	if err := f.Success(report); err != nil {
		return err
	}
	if !report.Converged {
		return NewExitError(ExitFailure, fmt.Sprintf("not converged after %d iteration(s): %v failing",
			report.Iterations, report.Proofs.Failing()))
	}
	return nil
}

func writeReport(path string, r *engine.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func readReport(path string) (*engine.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r engine.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &r, nil
}
