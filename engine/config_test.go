package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 48000.0, cfg.SampleRate)
	assert.Equal(t, 128, cfg.QuantumSize)
	assert.Equal(t, 2, cfg.Channels)
	assert.Equal(t, LatencyInteractive, cfg.LatencyHint)
}

func TestApplyOptionsIgnoresZeroValues(t *testing.T) {
	cfg := ApplyOptions(
		WithSampleRate(0),
		WithQuantumSize(-1),
		WithChannels(6),
		WithCommandTimeout(0),
		WithLatencyHint(""),
		WithLogger(nil),
		nil,
	)
	assert.Equal(t, 48000.0, cfg.SampleRate)
	assert.Equal(t, 128, cfg.QuantumSize)
	assert.Equal(t, 6, cfg.Channels)
	assert.Equal(t, 100*time.Millisecond, cfg.CommandTimeout)
	assert.Equal(t, LatencyInteractive, cfg.LatencyHint)
	assert.Nil(t, cfg.Logger)
}

func TestWithConfigOverlaysNonZeroFields(t *testing.T) {
	cfg := ApplyOptions(WithConfig(Config{SampleRate: 22050, EventQueueSize: 8, LatencyHint: LatencyBalanced}))
	assert.Equal(t, 22050.0, cfg.SampleRate)
	assert.Equal(t, 8, cfg.EventQueueSize)
	assert.Equal(t, LatencyBalanced, cfg.LatencyHint)
	assert.Equal(t, 1024, cfg.MaxNodes)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"low sample rate", func(c *Config) { c.SampleRate = 2999 }},
		{"high sample rate", func(c *Config) { c.SampleRate = 768001 }},
		{"zero quantum", func(c *Config) { c.QuantumSize = 0 }},
		{"huge quantum", func(c *Config) { c.QuantumSize = 1 << 15 }},
		{"no channels", func(c *Config) { c.Channels = 0 }},
		{"too many channels", func(c *Config) { c.Channels = 33 }},
		{"single node", func(c *Config) { c.MaxNodes = 1 }},
		{"no command queue", func(c *Config) { c.CommandQueueSize = 0 }},
		{"no event queue", func(c *Config) { c.EventQueueSize = 0 }},
		{"bad hint", func(c *Config) { c.LatencyHint = "eventually" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrNotSupported)
		})
	}
}

func TestParseLatencyHint(t *testing.T) {
	tests := []struct {
		in      string
		want    LatencyHint
		wantErr bool
	}{
		{"", LatencyInteractive, false},
		{"interactive", LatencyInteractive, false},
		{" Balanced ", LatencyBalanced, false},
		{"PLAYBACK", LatencyPlayback, false},
		{"fast", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLatencyHint(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotSupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBufferQuantaGrowsWithHint(t *testing.T) {
	assert.Less(t, LatencyInteractive.BufferQuanta(), LatencyBalanced.BufferQuanta())
	assert.Less(t, LatencyBalanced.BufferQuanta(), LatencyPlayback.BufferQuanta())
}

func TestLoadConfig(t *testing.T) {
	doc := `
sampleRate: 44100
quantumSize: 256
commandTimeout: 50ms
latencyHint: Playback
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 44100.0, cfg.SampleRate)
	assert.Equal(t, 256, cfg.QuantumSize)
	assert.Equal(t, 50*time.Millisecond, cfg.CommandTimeout)
	assert.Equal(t, LatencyPlayback, cfg.LatencyHint)
	assert.Equal(t, 2, cfg.Channels)
}

func TestLoadConfigEmptyUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("sampleRate: 10\n"))
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = LoadConfig(strings.NewReader("sampleRate: [1, 2]\n"))
	assert.Error(t, err)

	_, err = LoadConfig(strings.NewReader("latencyHint: soon\n"))
	assert.ErrorIs(t, err, ErrNotSupported)
}
