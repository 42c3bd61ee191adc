package config

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/dshills/rewind/internal/config/loader"
)

// Default configuration values.
const (
	DefaultCapacity         = 0 // unbounded
	DefaultLabelPrefix      = "snapshot"
	DefaultLogLevel         = "info"
	DefaultLogEncoding      = "json"
	DefaultMetricsNamespace = "rewind"
)

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	logEncodings = []string{"json", "console"}
)

// Config is the complete configuration of a history session.
type Config struct {
	History History `yaml:"history" toml:"history"`
	Log     Log     `yaml:"log" toml:"log"`
	Metrics Metrics `yaml:"metrics" toml:"metrics"`
	Hooks   Hooks   `yaml:"hooks" toml:"hooks"`
}

// History configures the history manager.
type History struct {
	// Capacity bounds the undo stack; 0 means unbounded.
	Capacity int `yaml:"capacity" toml:"capacity"`

	// LabelPrefix prefixes generated snapshot labels.
	LabelPrefix string `yaml:"labelPrefix" toml:"labelPrefix"`
}

// Log configures the zap logger.
type Log struct {
	Level    string `yaml:"level" toml:"level"`
	Encoding string `yaml:"encoding" toml:"encoding"`

	// File, when set, sends logs to a rotated file instead of stderr.
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" toml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups" toml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays" toml:"maxAgeDays"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// Metrics configures prometheus collectors.
type Metrics struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// Hooks configures scripted history subscribers.
type Hooks struct {
	// Script is the path of a Lua hook script; empty disables scripting.
	Script string `yaml:"script" toml:"script"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		History: History{
			Capacity:    DefaultCapacity,
			LabelPrefix: DefaultLabelPrefix,
		},
		Log: Log{
			Level:    DefaultLogLevel,
			Encoding: DefaultLogEncoding,
		},
		Metrics: Metrics{
			Namespace: DefaultMetricsNamespace,
		},
	}
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var problems []string
	if c.History.Capacity < 0 {
		problems = append(problems, fmt.Sprintf("history.capacity must be >= 0, got %d", c.History.Capacity))
	}
	if c.History.LabelPrefix == "" {
		problems = append(problems, "history.labelPrefix must not be empty")
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		problems = append(problems, fmt.Sprintf("log.level must be one of %v, got %q", logLevels, c.Log.Level))
	}
	if !slices.Contains(logEncodings, c.Log.Encoding) {
		problems = append(problems, fmt.Sprintf("log.encoding must be one of %v, got %q", logEncodings, c.Log.Encoding))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		problems = append(problems, "log rotation limits must be >= 0")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		problems = append(problems, "metrics.namespace must not be empty when metrics are enabled")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	fs  loader.FileSystem
	env loader.Loader
}

// WithFS reads the config file from fs instead of the OS.
func WithFS(fs loader.FileSystem) Option {
	return func(o *loadOptions) {
		o.fs = fs
	}
}

// WithEnv replaces the environment source. A nil loader disables it.
func WithEnv(env loader.Loader) Option {
	return func(o *loadOptions) {
		o.env = env
	}
}

// Load builds a Config from defaults, the file at path (if any) and the
// environment, then validates it. An empty path or a missing file only
// skips the file layer.
func Load(path string, opts ...Option) (Config, error) {
	o := loadOptions{
		fs:  loader.DefaultFS(),
		env: loader.NewEnvLoader(loader.DefaultEnvPrefix),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var merged map[string]any

	if path != "" {
		fl, err := loader.NewFile(path, o.fs)
		if err != nil {
			return Config{}, err
		}
		file, err := fl.Load()
		if err != nil {
			return Config{}, err
		}
		merged = loader.DeepMerge(merged, file)
	}

	if o.env != nil {
		env, err := o.env.Load()
		if err != nil {
			return Config{}, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, env)
	}

	cfg, err := decode(merged)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode overlays a generic settings map onto the defaults.
func decode(settings map[string]any) (Config, error) {
	cfg := Default()
	if len(settings) == 0 {
		return cfg, nil
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return Config{}, fmt.Errorf("encoding settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding settings: %w", err)
	}
	return cfg, nil
}

// Marshal encodes c in the format implied by the extension of path.
func (c Config) Marshal(path string) ([]byte, error) {
	format, err := loader.FormatFor(path)
	if err != nil {
		return nil, err
	}
	return format.Marshal(c)
}
