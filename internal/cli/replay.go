package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/engine"
)

// ReplaySummary is the result of the replay command.
type ReplaySummary struct {
	RunID   string `json:"run_id"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
}

func (s ReplaySummary) String() string {
	return fmt.Sprintf("Replayed run %s: %d applied, %d already present", s.RunID, s.Applied, s.Skipped)
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <location> <report.json>",
		Short: "Re-apply the deltas recorded in a repair report",
		Long: `Apply the deltas_applied list of a JSON report (written with
repair --report) to the graph at <location>.

Deltas whose effect is already present are skipped, so replaying the same
report twice changes nothing the second time.

Example:
  plangraph replay ./plan-copy report.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args[0], args[1])
		},
	}
	addStoreFlags(cmd, &opts.StoreOptions)
	return cmd
}

func runReplay(cmd *cobra.Command, opts *InspectOptions, location, reportPath string) error {
	f := opts.formatter(cmd)
	logger := opts.logger()
	ctx := commandContext(cmd)

	report, err := readReport(reportPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, "read report", err)
	}
	cfg, err := resolveConfig(cmd, &opts.StoreOptions, nil)
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

	res, err := engine.Replay(ctx, st, report.Deltas())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "replay", err)
	}
	logger.Info("replayed report",
		zap.String("run_id", report.RunID),
		zap.Int("applied", len(res.Applied)),
		zap.Int("skipped", res.Skipped))
	return f.Success(ReplaySummary{RunID: report.RunID, Applied: len(res.Applied), Skipped: res.Skipped})
}
