package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/analyze"
	"github.com/roach88/plangraph/internal/config"
	"github.com/roach88/plangraph/internal/engine"
	"github.com/roach88/plangraph/internal/store"
	"github.com/roach88/plangraph/internal/store/badgerkv"
	"github.com/roach88/plangraph/internal/store/filetree"
	"github.com/roach88/plangraph/internal/store/memstore"
	"github.com/roach88/plangraph/internal/store/sqlite"
	"github.com/roach88/plangraph/internal/synth"
)

// ErrLocationNotFound is returned when a graph location does not exist.
var ErrLocationNotFound = errors.New("graph location not found")

// StoreOptions holds the flags shared by every command that opens a graph.
type StoreOptions struct {
	Backend    string
	ConfigPath string
}

func addStoreFlags(cmd *cobra.Command, o *StoreOptions) {
	cmd.Flags().StringVar(&o.Backend, "backend", store.BackendFiletree,
		fmt.Sprintf("store backend %v; memory repairs a copy of a filetree without writing", store.Backends))
	cmd.Flags().StringVar(&o.ConfigPath, "config", "", "config file (.yaml, .yml, .json or .cue)")
}

// RunFlags holds the flags that shape a repair run.
type RunFlags struct {
	Budget       int
	SeedTopics   bool
	TemplatesDir string
}

func addRunFlags(cmd *cobra.Command, o *RunFlags) {
	cmd.Flags().IntVar(&o.Budget, "budget", config.DefaultMaxIterations, "maximum number of passes")
	cmd.Flags().BoolVar(&o.SeedTopics, "seed-topics", false, "mint one scenario per uncovered domain topic")
	cmd.Flags().StringVar(&o.TemplatesDir, "templates", "", "directory of *.tmpl files overriding built-in statements")
}

// resolveConfig layers explicitly set flags over the config file over the
// defaults. run may be nil for commands without run flags.
func resolveConfig(cmd *cobra.Command, so *StoreOptions, run *RunFlags) (config.Config, error) {
	cfg, err := config.Load(so.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = so.Backend
	}
	if run != nil {
		if flags.Changed("budget") {
			cfg.MaxIterations = run.Budget
		}
		if flags.Changed("seed-topics") {
			cfg.SeedTopics = run.SeedTopics
		}
		if flags.Changed("templates") {
			cfg.TemplatesDir = run.TemplatesDir
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the graph at location with the named backend. Unless
// create is set the location must already exist.
func openStore(ctx context.Context, backend, location string, create bool, logger *zap.Logger) (store.Store, error) {
	if !create {
		if _, err := os.Stat(location); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, location)
			}
			return nil, err
		}
	}

	switch backend {
	case store.BackendFiletree:
		st, err := filetree.Open(location, filetree.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return st, nil
	case store.BackendSQLite:
		st, err := sqlite.Open(location, sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return st, nil
	case store.BackendBadger:
		cfg := badgerkv.DefaultConfig(location)
		cfg.Logger = logger
		st, err := badgerkv.Open(cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	case store.BackendMemory:
		return snapshot(ctx, location, logger)
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

// snapshot copies a filetree graph into memory.
func snapshot(ctx context.Context, location string, logger *zap.Logger) (store.Store, error) {
	src, err := filetree.Open(location, filetree.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	g, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	m, err := src.ReadManifest(ctx)
	if err != nil {
		return nil, err
	}
	mem, err := memstore.FromGraph(g)
	if err != nil {
		return nil, err
	}
	if err := mem.WriteManifest(ctx, m); err != nil {
		return nil, err
	}
	return mem, nil
}

// storeError maps a failure to open a store onto an exit error.
func storeError(f *OutputFormatter, err error) error {
	if errors.Is(err, ErrLocationNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "graph location not found", err)
	}
	return f.Fail(ExitCommandError, ErrCodeStore, "open store", err)
}

func newAnalyzer(cfg config.Config) *analyze.Analyzer {
	return analyze.New(analyze.WithThresholds(cfg.Thresholds))
}

// newController wires a controller from cfg.
func newController(st store.Store, cfg config.Config, logger *zap.Logger, opts ...engine.Option) (*engine.Controller, error) {
	renderer, err := synth.NewTemplateRenderer(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}
	synthOpts := []synth.Option{
		synth.WithRenderer(renderer),
		synth.WithLogger(logger),
		synth.WithDataLifecycleMinTerms(cfg.Thresholds.DataLifecycleMinTerms),
		synth.WithAPIWeakMissing(cfg.Thresholds.APIWeakMissing),
	}
	if cfg.SeedTopics {
		synthOpts = append(synthOpts, synth.WithTopicSeeding(cfg.Thresholds.DomainTopicFloor))
	}

	base := []engine.Option{
		engine.WithBudget(cfg.MaxIterations),
		engine.WithLogger(logger),
		engine.WithAnalyzer(newAnalyzer(cfg)),
		engine.WithSynthesizer(synth.New(synthOpts...)),
	}
	return engine.New(st, append(base, opts...)...), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
