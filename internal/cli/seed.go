package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/plan"
)

// SeedResult is the result of the seed command.
type SeedResult struct {
	ID   string `json:"id"`
	Stmt string `json:"stmt"`
}

func (r SeedResult) String() string {
	return fmt.Sprintf("Added %s", r.ID)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <location> <statement...>",
		Short: "Add a scenario to a plan graph",
		Long: `Add an Open scenario whose id is derived from the statement. The
graph is created when <location> does not exist yet. Run repair afterwards
to grow the scenario into a full chain.

Example:
  plangraph seed ./plan "Shoppers check out a cart and pay by card"`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts, args[0], strings.Join(args[1:], " "))
		},
	}
	addStoreFlags(cmd, &opts.StoreOptions)
	return cmd
}

func runSeed(cmd *cobra.Command, opts *InspectOptions, location, stmt string) error {
	f := opts.formatter(cmd)
	logger := opts.logger()
	ctx := commandContext(cmd)

	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return f.Fail(ExitCommandError, ErrCodeConfig, "statement is empty", nil)
	}
	cfg, err := resolveConfig(cmd, &opts.StoreOptions, nil)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	st, err := openStore(ctx, cfg.Backend, location, true, logger)
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
	id := plan.NewID(plan.TypeScenario, plan.Slugify(stmt))
	if g.Has(id) {
		return f.Fail(ExitFailure, ErrCodeInput, "scenario already exists", fmt.Errorf("%s", id))
	}

	n := &plan.Node{ID: id, Type: plan.TypeScenario, Stmt: stmt, Status: plan.StatusOpen}
	if err := st.SaveNode(ctx, n); err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "save scenario", err)
	}
	logger.Info("seeded scenario", zap.String("id", id))
	return f.Success(SeedResult{ID: id, Stmt: stmt})
}
