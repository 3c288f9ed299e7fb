// Package config loads and validates the notedown configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/notedown/internal/errors"
)

// Duration is a time.Duration that unmarshals from YAML strings like "15s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Resolve ResolveConfig `yaml:"resolve"`
	Images  ImagesConfig  `yaml:"images"`
	State   StateConfig   `yaml:"state"`
	Events  EventsConfig  `yaml:"events"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the note.com API client.
type APIConfig struct {
	BaseURL string   `yaml:"base_url,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// ResolveConfig configures the placeholder resolution engine.
type ResolveConfig struct {
	MaxIterations int      `yaml:"max_iterations,omitempty"`
	PollInterval  Duration `yaml:"poll_interval,omitempty"`
	EmbedTimeout  Duration `yaml:"embed_timeout,omitempty"`
	ImageTimeout  Duration `yaml:"image_timeout,omitempty"`
	AlignTimeout  Duration `yaml:"align_timeout,omitempty"`
	TOCTimeout    Duration `yaml:"toc_timeout,omitempty"`
}

// ImagesConfig configures image payload resolution.
type ImagesConfig struct {
	MaxBytes int64  `yaml:"max_bytes,omitempty"`
	TempDir  string `yaml:"temp_dir,omitempty"`
}

// StateConfig configures the draft store.
type StateConfig struct {
	Path string `yaml:"path,omitempty"`
}

// EventsConfig configures NATS event publishing. Disabled unless a URL is
// set and Enabled is true.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig configures the Prometheus scrape endpoint served while
// watching. An empty address disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.API.Timeout <= 0 {
		c.API.Timeout = Duration(30 * time.Second)
	}
	if c.Resolve.MaxIterations <= 0 {
		c.Resolve.MaxIterations = 20
	}
	if c.Resolve.PollInterval <= 0 {
		c.Resolve.PollInterval = Duration(250 * time.Millisecond)
	}
	if c.Resolve.EmbedTimeout <= 0 {
		c.Resolve.EmbedTimeout = Duration(15 * time.Second)
	}
	if c.Resolve.ImageTimeout <= 0 {
		c.Resolve.ImageTimeout = Duration(60 * time.Second)
	}
	if c.Resolve.AlignTimeout <= 0 {
		c.Resolve.AlignTimeout = Duration(5 * time.Second)
	}
	if c.Resolve.TOCTimeout <= 0 {
		c.Resolve.TOCTimeout = Duration(10 * time.Second)
	}
	if c.Images.MaxBytes <= 0 {
		c.Images.MaxBytes = 10 << 20
	}
	if c.State.Path == "" {
		c.State.Path = "notedown.db"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "notedown.documents"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ValidationError(fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.ValidationError(fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return errors.ValidationError("events enabled without a NATS url")
	}
	return nil
}

// Load reads the configuration file at path, expands environment variables
// in it, applies defaults and validates the result. A missing file is an
// error; use Default for a fileless setup.
func Load(path string) (*Config, error) {
	// .env files are optional and never override the process environment.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "read config file").WithContext("path", path)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "parse config file").WithContext("path", path)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
