// Package config loads engine settings from ember.toml or ember.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileNames are searched in order in every directory.
var FileNames = []string{"ember.toml", "ember.yaml", "ember.yml"}

// Config is the full engine configuration.
type Config struct {
	Engine   EngineConfig   `toml:"engine" yaml:"engine"`
	Tier     TierConfig     `toml:"tier" yaml:"tier"`
	Feedback FeedbackConfig `toml:"feedback" yaml:"feedback"`
	Trace    TraceConfig    `toml:"trace" yaml:"trace"`
}

// EngineConfig controls the evaluation core.
type EngineConfig struct {
	// MaxDepth limits re-entrant call depth.
	MaxDepth int `toml:"max_depth" yaml:"max_depth"`
	// NoSuchMethod enables the __noSuchMethod__ hook for call-position
	// element reads.
	NoSuchMethod bool `toml:"no_such_method" yaml:"no_such_method"`
}

// TierConfig controls the compiled-code tier.
type TierConfig struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	HotThreshold   uint32 `toml:"hot_threshold" yaml:"hot_threshold"`
	SkippedUseBump uint32 `toml:"skipped_use_bump" yaml:"skipped_use_bump"`
}

// FeedbackConfig controls profile persistence.
type FeedbackConfig struct {
	ProfilePath string `toml:"profile_path" yaml:"profile_path"`
	Format      string `toml:"format" yaml:"format"`
}

// TraceConfig mirrors the --trace flags.
type TraceConfig struct {
	Level    string `toml:"level" yaml:"level"`
	Mode     string `toml:"mode" yaml:"mode"`
	Output   string `toml:"output" yaml:"output"`
	RingSize int    `toml:"ring_size" yaml:"ring_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			MaxDepth: 512,
		},
		Tier: TierConfig{
			Enabled:        true,
			HotThreshold:   1000,
			SkippedUseBump: 5,
		},
		Feedback: FeedbackConfig{
			Format: "msgpack",
		},
		Trace: TraceConfig{
			Level:    "off",
			Mode:     "stream",
			Output:   "stderr",
			RingSize: 4096,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_depth must be positive, got %d", c.Engine.MaxDepth))
	}
	if c.Tier.Enabled && c.Tier.HotThreshold == 0 {
		errs = append(errs, errors.New("tier.hot_threshold must be positive when the tier is enabled"))
	}
	switch strings.ToLower(c.Feedback.Format) {
	case "", "msgpack", "mp", "cbor":
	default:
		errs = append(errs, fmt.Errorf("feedback.format: unknown format %q", c.Feedback.Format))
	}
	switch c.Trace.Mode {
	case "", "stream", "ring", "both", "log":
	default:
		errs = append(errs, fmt.Errorf("trace.mode: unknown mode %q", c.Trace.Mode))
	}
	if c.Trace.RingSize < 0 {
		errs = append(errs, fmt.Errorf("trace.ring_size must not be negative, got %d", c.Trace.RingSize))
	}
	return errors.Join(errs...)
}

// Find walks up from startDir looking for a config file.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults. The format follows the extension.
func Load(path string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%s: unsupported config format", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Discover finds and loads the nearest config file, falling back to the
// defaults when none exists.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// WriteTOML encodes cfg as TOML.
func WriteTOML(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
