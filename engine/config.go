package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-audiograph/decode"
	"github.com/cwbudde/algo-audiograph/render"
)

// LatencyHint tells sinks how to trade latency for robustness.
type LatencyHint string

const (
	LatencyInteractive LatencyHint = "interactive"
	LatencyBalanced    LatencyHint = "balanced"
	LatencyPlayback    LatencyHint = "playback"
)

// ParseLatencyHint parses a hint name. The empty string selects
// LatencyInteractive.
func ParseLatencyHint(s string) (LatencyHint, error) {
	switch h := LatencyHint(strings.ToLower(strings.TrimSpace(s))); h {
	case "":
		return LatencyInteractive, nil
	case LatencyInteractive, LatencyBalanced, LatencyPlayback:
		return h, nil
	}
	return "", fmt.Errorf("%w: latency hint %q", ErrNotSupported, s)
}

// BufferQuanta returns how many quanta a real-time sink should keep queued.
func (h LatencyHint) BufferQuanta() int {
	switch h {
	case LatencyPlayback:
		return 16
	case LatencyBalanced:
		return 6
	default:
		return 2
	}
}

// Config holds the settings of a Context. Zero fields are replaced by
// defaults when the context is created.
type Config struct {
	SampleRate  float64 `yaml:"sampleRate"`
	QuantumSize int     `yaml:"quantumSize"`
	Channels    int     `yaml:"channels"`
	// MaxNodes bounds the live node count, destination included.
	MaxNodes         int           `yaml:"maxNodes"`
	CommandQueueSize int           `yaml:"commandQueueSize"`
	EventQueueSize   int           `yaml:"eventQueueSize"`
	CommandTimeout   time.Duration `yaml:"commandTimeout"`
	LatencyHint      LatencyHint   `yaml:"latencyHint"`

	Logger   *logrus.Entry    `yaml:"-"`
	Decoders *decode.Registry `yaml:"-"`
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the settings used for unset fields.
func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		QuantumSize:      128,
		Channels:         2,
		MaxNodes:         1024,
		CommandQueueSize: 1024,
		EventQueueSize:   256,
		CommandTimeout:   100 * time.Millisecond,
		LatencyHint:      LatencyInteractive,
	}
}

// WithSampleRate sets the context sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *Config) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithQuantumSize sets the frames rendered per quantum.
func WithQuantumSize(frames int) Option {
	return func(cfg *Config) {
		if frames > 0 {
			cfg.QuantumSize = frames
		}
	}
}

// WithChannels sets the destination channel count.
func WithChannels(channels int) Option {
	return func(cfg *Config) {
		if channels > 0 {
			cfg.Channels = channels
		}
	}
}

// WithMaxNodes sets the node capacity.
func WithMaxNodes(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxNodes = n
		}
	}
}

// WithCommandQueueSize sets the command channel capacity.
func WithCommandQueueSize(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.CommandQueueSize = n
		}
	}
}

// WithCommandTimeout sets how long a control call waits for room in the
// command channel.
func WithCommandTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.CommandTimeout = d
		}
	}
}

// WithLatencyHint sets the latency hint passed on to sinks.
func WithLatencyHint(h LatencyHint) Option {
	return func(cfg *Config) {
		if h != "" {
			cfg.LatencyHint = h
		}
	}
}

// WithLogger sets the logger. Context and render logs carry a component
// field.
func WithLogger(l *logrus.Entry) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithDecoders sets the registry used by DecodeAudioData.
func WithDecoders(r *decode.Registry) Option {
	return func(cfg *Config) {
		if r != nil {
			cfg.Decoders = r
		}
	}
}

// WithConfig applies every non-zero field of c.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		for _, opt := range []Option{
			WithSampleRate(c.SampleRate),
			WithQuantumSize(c.QuantumSize),
			WithChannels(c.Channels),
			WithMaxNodes(c.MaxNodes),
			WithCommandQueueSize(c.CommandQueueSize),
			WithCommandTimeout(c.CommandTimeout),
			WithLatencyHint(c.LatencyHint),
			WithLogger(c.Logger),
			WithDecoders(c.Decoders),
		} {
			opt(cfg)
		}
		if c.EventQueueSize > 0 {
			cfg.EventQueueSize = c.EventQueueSize
		}
	}
}

// ApplyOptions applies opts to DefaultConfig.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Validate checks the ranges the render side depends on.
func (c Config) Validate() error {
	var errs []error
	if c.SampleRate < 3000 || c.SampleRate > 768000 {
		errs = append(errs, fmt.Errorf("sample rate %v outside [3000, 768000]", c.SampleRate))
	}
	if c.QuantumSize < 1 || c.QuantumSize > 16384 {
		errs = append(errs, fmt.Errorf("quantum size %d outside [1, 16384]", c.QuantumSize))
	}
	if c.Channels < 1 || c.Channels > render.MaxChannels {
		errs = append(errs, fmt.Errorf("%d channels outside [1, %d]", c.Channels, render.MaxChannels))
	}
	if c.MaxNodes < 2 {
		errs = append(errs, fmt.Errorf("max nodes %d below 2", c.MaxNodes))
	}
	if c.CommandQueueSize < 1 || c.EventQueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue sizes %d/%d must be positive", c.CommandQueueSize, c.EventQueueSize))
	}
	if _, err := ParseLatencyHint(string(c.LatencyHint)); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNotSupported, errors.Join(errs...))
	}
	return nil
}

// LoadConfig reads a YAML document over DefaultConfig. Durations use Go
// syntax ("50ms").
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("engine config: %w", err)
	}
	h, err := ParseLatencyHint(string(cfg.LatencyHint))
	if err != nil {
		return Config{}, err
	}
	cfg.LatencyHint = h
	return cfg, cfg.Validate()
}
