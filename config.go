package livepart

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	lperrors "github.com/livefir/livepart/internal/errors"
	"github.com/livefir/livepart/internal/marker"
	"github.com/livefir/livepart/internal/memory"
	"github.com/livefir/livepart/internal/part"
)

// Config holds engine configuration options
type Config struct {
	// Marker protocol
	NodeMarker        string `yaml:"node_marker" validate:"required,excludes=--"`
	ListMarker        string `yaml:"list_marker" validate:"required,excludes=--,nefield=NodeMarker"`
	Placeholder       string `yaml:"placeholder" validate:"required,excludesall=<>"`
	NativeEventPrefix string `yaml:"native_event_prefix" validate:"required_without=CustomEventPrefix"`
	CustomEventPrefix string `yaml:"custom_event_prefix"`

	// Compilation
	KeyAttribute      string `yaml:"key_attribute" validate:"required"`
	ContainerTag      string `yaml:"container_tag" validate:"required"`
	FragmentContext   string `yaml:"fragment_context" validate:"required"`
	CompactWhitespace bool   `yaml:"compact_whitespace"`

	// Compiled cache budget; the cache never evicts, crossing a threshold is logged
	Cache memory.Config `yaml:"cache"`

	// LogLevel builds a text logger on stderr when Logger is nil
	LogLevel string       `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Logger   *slog.Logger `yaml:"-" validate:"-"`
	Tracer   part.Tracer  `yaml:"-" validate:"-"`
}

// Option is a functional option for configuring an Engine
type Option func(*Config)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		NodeMarker:        marker.DefaultNode,
		ListMarker:        marker.DefaultList,
		Placeholder:       marker.DefaultPlaceholder,
		NativeEventPrefix: marker.DefaultNativePrefix,
		CustomEventPrefix: marker.DefaultCustomPrefix,
		KeyAttribute:      "key",
		ContainerTag:      "lp-fragment",
		FragmentContext:   "body",
		Cache:             *memory.DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithLogger sets the structured logger used for diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithLogLevel sets the level of the default stderr logger
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// WithTracer installs a tracer that observes every part Apply call
func WithTracer(tracer Tracer) Option {
	return func(c *Config) {
		c.Tracer = tracer
	}
}

// WithMarkers overrides the marker tokens
func WithMarkers(node, list, placeholder string) Option {
	return func(c *Config) {
		c.NodeMarker = node
		c.ListMarker = list
		c.Placeholder = placeholder
	}
}

// WithEventPrefixes overrides the event attribute prefixes; either may be empty
func WithEventPrefixes(native, custom string) Option {
	return func(c *Config) {
		c.NativeEventPrefix = native
		c.CustomEventPrefix = custom
	}
}

// WithKeyAttribute sets the attribute list items are keyed by
func WithKeyAttribute(name string) Option {
	return func(c *Config) {
		c.KeyAttribute = name
	}
}

// WithContainerTag sets the element that wraps multi-node templates
func WithContainerTag(tag string) Option {
	return func(c *Config) {
		c.ContainerTag = tag
	}
}

// WithFragmentContext sets the element templates are parsed inside of
func WithFragmentContext(tag string) Option {
	return func(c *Config) {
		c.FragmentContext = tag
	}
}

// WithCompactWhitespace enables whitespace compaction of template markup
func WithCompactWhitespace(enabled bool) Option {
	return func(c *Config) {
		c.CompactWhitespace = enabled
	}
}

// WithCacheBudget sets the compiled cache budget and its thresholds
func WithCacheBudget(maxKB, warningPct, criticalPct int) Option {
	return func(c *Config) {
		c.Cache = memory.Config{
			MaxMemoryKB:          maxKB,
			WarningThresholdPct:  warningPct,
			CriticalThresholdPct: criticalPct,
		}
	}
}

var lower = cases.Lower(language.Und)

// normalize lower-cases names the HTML parser lower-cases in markup.
func (c *Config) normalize() {
	c.KeyAttribute = lower.String(strings.TrimSpace(c.KeyAttribute))
	c.ContainerTag = lower.String(strings.TrimSpace(c.ContainerTag))
	c.FragmentContext = lower.String(strings.TrimSpace(c.FragmentContext))
	c.NativeEventPrefix = lower.String(strings.TrimSpace(c.NativeEventPrefix))
	c.CustomEventPrefix = lower.String(strings.TrimSpace(c.CustomEventPrefix))
	c.LogLevel = lower.String(strings.TrimSpace(c.LogLevel))
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return lperrors.InvalidConfig(err, "invalid engine configuration")
	}
	if _, err := c.protocol(); err != nil {
		return lperrors.InvalidConfig(err, "invalid marker protocol")
	}
	return nil
}

func (c *Config) protocol() (*marker.Protocol, error) {
	return marker.New(c.NodeMarker, c.ListMarker, c.Placeholder, c.NativeEventPrefix, c.CustomEventPrefix)
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.LogLevel == "" {
		return slog.Default()
	}
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// LoadConfig reads a YAML configuration file on top of the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, lperrors.InvalidConfig(err, "failed to parse config %s", path)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
