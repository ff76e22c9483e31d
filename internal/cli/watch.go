package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/engine"
	"github.com/roach88/plangraph/internal/store"
	"github.com/roach88/plangraph/internal/store/filetree"
	"github.com/roach88/plangraph/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	StoreOptions
	RunFlags

	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <location>",
		Short: "Repair a filetree graph whenever it changes",
		Long: `Run repair once, then again every time files under <location>
settle after a change. Runs never overlap. The repair's own writes trigger
one more run, which finds nothing to do.

Only the filetree backend can be watched. Stop with Ctrl-C.

Example:
  plangraph watch --debounce 1s ./plan`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, args[0])
		},
	}
	addStoreFlags(cmd, &opts.StoreOptions)
	addRunFlags(cmd, &opts.RunFlags)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "quiet period before a run")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions, location string) error {
	f := opts.formatter(cmd)
	logger := opts.logger()

	cfg, err := resolveConfig(cmd, &opts.StoreOptions, &opts.RunFlags)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if cfg.Backend != store.BackendFiletree {
		return f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration",
			fmt.Errorf("watch needs the %s backend, not %s", store.BackendFiletree, cfg.Backend))
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	st, err := openStore(ctx, cfg.Backend, location, false, logger)
	if err != nil {
		return storeError(f, err)
	}
	defer st.Close()

	ctrl, err := newController(st, cfg, logger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "load templates", err)
	}
	repairOnce := func(ctx context.Context) error {
		report, err := ctrl.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s after %d iteration(s), %d deltas\n",
			report.RunID, report.State, report.Iterations, len(report.DeltasApplied))
		return nil
	}

	w, err := watch.New(location, repairOnce,
		watch.WithDebounce(opts.Debounce),
		watch.WithLogger(logger),
		watch.WithIgnore(func(path string) bool {
			return filepath.Base(path) == filetree.ManifestFile
		}))
	if err != nil {
		return storeError(f, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := repairOnce(ctx); err != nil {
		if engine.IsStoreError(err) {
			return f.Fail(ExitCommandError, ErrCodeRun, "repair aborted", err)
		}
		logger.Error("initial repair failed", zap.Error(err))
	}
	if err := w.Run(ctx); err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "watch", err)
	}
	return nil
}
