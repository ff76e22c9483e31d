// Package config loads run configuration.
//
// Values are layered: Default, then an optional file, then CLI flags
// applied by the caller. Files ending in .yaml, .yml or .json are decoded
// with gopkg.in/yaml.v3 and reject unknown keys. Files ending in .cue are
// unified with the embedded schema.cue, which also supplies defaults and
// range checks. Either way the result is checked with validator tags.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/plangraph/internal/analyze"
)

//go:embed schema.cue
var schemaCUE string

// DefaultMaxIterations is the pass budget when nothing overrides it.
const DefaultMaxIterations = 10

// Config holds the knobs of a repair run.
type Config struct {
	// MaxIterations bounds the number of passes.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" validate:"gte=1,lte=1000"`

	// Backend selects the store implementation.
	Backend string `json:"backend" yaml:"backend" validate:"oneof=filetree sqlite badger memory"`

	// TemplatesDir overrides built-in statement templates with *.tmpl
	// files from this directory.
	TemplatesDir string `json:"templates_dir,omitempty" yaml:"templates_dir,omitempty" validate:"omitempty,dir"`

	// SeedTopics lets the synthesizer mint one Scenario per uncovered
	// domain topic until the topic floor is met.
	SeedTopics bool `json:"seed_topics" yaml:"seed_topics"`

	Thresholds analyze.Thresholds `json:"thresholds" yaml:"thresholds"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		Backend:       "filetree",
		Thresholds:    analyze.DefaultThresholds(),
	}
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load returns Default overlaid with the file at path. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		err = decodeYAML(data, &cfg)
	case ".cue":
		err = decodeCUE(path, data, &cfg)
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := unified.Decode(cfg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
