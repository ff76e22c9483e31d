package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/analyze"
	"github.com/roach88/plangraph/internal/plan"
)

// InspectOptions holds flags for the read-only analyze and verify commands.
type InspectOptions struct {
	*RootOptions
	StoreOptions
}

// GapReport is the result of the analyze command.
type GapReport struct {
	Gaps     plan.GapSets          `json:"gaps"`
	Sizes    map[plan.GapClass]int `json:"sizes"`
	Warnings []string              `json:"warnings,omitempty"`
}

// WriteText renders the gap sets.
func (r GapReport) WriteText(w io.Writer) error {
	var b strings.Builder
	for _, class := range plan.GapClasses {
		ids := r.Gaps.Get(class)
		fmt.Fprintf(&b, "%-9s %d\n", class, len(ids))
		for _, id := range ids {
			fmt.Fprintf(&b, "  %s\n", id)
		}
	}
	writeWarnings(&b, r.Warnings)
	_, err := io.WriteString(w, b.String())
	return err
}

// VerifyReport is the result of the verify command.
type VerifyReport struct {
	analyze.Verification
	Passed   bool     `json:"passed"`
	Warnings []string `json:"warnings,omitempty"`
}

// WriteText renders one line per invariant.
func (r VerifyReport) WriteText(w io.Writer) error {
	var b strings.Builder
	for _, inv := range analyze.Invariants {
		mark := "FAIL"
		if r.Proofs[inv] {
			mark = "PASS"
		}
		fmt.Fprintf(&b, "[%s] %-3s %s: %s\n", mark, inv, inv.Title(), r.Details[inv])
	}
	if r.OneSidedLinks > 0 {
		fmt.Fprintf(&b, "%d links recorded on one side only\n", r.OneSidedLinks)
	}
	writeWarnings(&b, r.Warnings)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("Warnings:\n")
	for _, msg := range warnings {
		fmt.Fprintf(b, "  - %s\n", msg)
	}
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <location>",
		Short: "List the gap sets of a plan graph",
		Long: `Compute the six gap classes of the graph at <location> without
changing it.

Examples:
  plangraph analyze ./plan
  plangraph analyze --format json ./plan`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts, args[0], false)
		},
	}
	addStoreFlags(cmd, &opts.StoreOptions)
	return cmd
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <location>",
		Short: "Check the ten completeness invariants",
		Long: `Evaluate P1 through P10 against the graph at <location> without
changing it.

Exit codes:
  0 - All invariants pass
  1 - At least one invariant fails
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts, args[0], true)
		},
	}
	addStoreFlags(cmd, &opts.StoreOptions)
	return cmd
}

func runInspect(cmd *cobra.Command, opts *InspectOptions, location string, verify bool) error {
	f := opts.formatter(cmd)
	logger := opts.logger()
	ctx := commandContext(cmd)

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

	g, err := st.Load(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "load graph", err)
	}
	warnings := make([]string, 0, len(g.Warnings))
	for _, w := range g.Warnings {
		warnings = append(warnings, w.String())
	}
	a := newAnalyzer(cfg)

	if !verify {
		gaps := a.Analyze(g)
		return f.Success(GapReport{Gaps: gaps, Sizes: gaps.Sizes(), Warnings: warnings})
	}

	v := a.Verify(g)
	report := VerifyReport{Verification: v, Passed: v.Proofs.AllPass(), Warnings: warnings}
	if err := f.Success(report); err != nil {
		return err
	}
	if !report.Passed {
		return NewExitError(ExitFailure, fmt.Sprintf("invariants failing: %v", v.Proofs.Failing()))
	}
	return nil
}
