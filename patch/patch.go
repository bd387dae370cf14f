package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-audiograph/dsp/automation"
	"github.com/cwbudde/algo-audiograph/engine"
)

// DestinationID is the reserved node id for the context destination.
const DestinationID = "_destination"

// Node types understood by Build.
const (
	TypeGain         = "gain"
	TypeDelay        = "delay"
	TypeIIRFilter    = "iir-filter"
	TypeOscillator   = "oscillator"
	TypeBufferSource = "buffer-source"
	TypeConstant     = "constant-source"
	TypeAnalyser     = "analyser"
	TypeCompressor   = "dynamics-compressor"
)

// Automation pseudo-kinds that cancel instead of scheduling.
const (
	KindCancel        = "cancel"
	KindCancelAndHold = "cancel-and-hold"
)

// ErrInvalidPatch reports a structurally invalid patch.
var ErrInvalidPatch = errors.New("patch: invalid patch")

// Patch is the root of a patch document.
type Patch struct {
	// Config overrides engine defaults for contexts created by NewContext.
	Config *engine.Config `yaml:"config,omitempty" json:"config,omitempty"`
	// Duration is the suggested render length in seconds.
	Duration    float64      `yaml:"duration,omitempty" json:"duration,omitempty"`
	Nodes       []Node       `yaml:"nodes" json:"nodes"`
	Connections []Connection `yaml:"connections,omitempty" json:"connections,omitempty"`

	// Dir resolves relative sample paths. Load sets it to the patch's
	// directory.
	Dir string `yaml:"-" json:"-"`
}

// Node describes one graph node.
type Node struct {
	ID   string `yaml:"id" json:"id"`
	Type string `yaml:"type" json:"type"`

	Channels   *Channels               `yaml:"channels,omitempty" json:"channels,omitempty"`
	Params     map[string]float64      `yaml:"params,omitempty" json:"params,omitempty"`
	Automation map[string][]Automation `yaml:"automation,omitempty" json:"automation,omitempty"`

	// Oscillator.
	Waveform string `yaml:"waveform,omitempty" json:"waveform,omitempty"`
	// Delay.
	MaxDelay float64 `yaml:"maxDelay,omitempty" json:"maxDelay,omitempty"`
	// IIR filter.
	Feedforward []float64 `yaml:"feedforward,omitempty" json:"feedforward,omitempty"`
	Feedback    []float64 `yaml:"feedback,omitempty" json:"feedback,omitempty"`
	// Analyser.
	FFTSize int `yaml:"fftSize,omitempty" json:"fftSize,omitempty"`
	// Buffer source.
	File      string   `yaml:"file,omitempty" json:"file,omitempty"`
	Loop      bool     `yaml:"loop,omitempty" json:"loop,omitempty"`
	LoopStart float64  `yaml:"loopStart,omitempty" json:"loopStart,omitempty"`
	LoopEnd   float64  `yaml:"loopEnd,omitempty" json:"loopEnd,omitempty"`
	Start     *Start   `yaml:"start,omitempty" json:"start,omitempty"`
	Stop      *float64 `yaml:"stop,omitempty" json:"stop,omitempty"`
}

// Channels overrides a node's channel configuration.
type Channels struct {
	Count          int    `yaml:"count,omitempty" json:"count,omitempty"`
	Mode           string `yaml:"mode,omitempty" json:"mode,omitempty"`
	Interpretation string `yaml:"interpretation,omitempty" json:"interpretation,omitempty"`
}

// Start schedules a source. Offset and Duration apply to buffer sources
// only.
type Start struct {
	When     float64  `yaml:"when" json:"when"`
	Offset   *float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
	Duration *float64 `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// Automation is one parameter automation step. Kind is an automation event
// kind name, or KindCancel or KindCancelAndHold.
type Automation struct {
	Kind         string    `yaml:"kind" json:"kind"`
	Value        float64   `yaml:"value,omitempty" json:"value,omitempty"`
	Time         float64   `yaml:"time" json:"time"`
	TimeConstant float64   `yaml:"timeConstant,omitempty" json:"timeConstant,omitempty"`
	Curve        []float64 `yaml:"curve,omitempty" json:"curve,omitempty"`
	Duration     float64   `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// Connection links an output of one node to an input of another.
type Connection struct {
	From   string `yaml:"from" json:"from"`
	To     string `yaml:"to" json:"to"`
	Output int    `yaml:"output,omitempty" json:"output,omitempty"`
	Input  int    `yaml:"input,omitempty" json:"input,omitempty"`
}

// event converts a to an automation event. It reports false for the cancel
// kinds.
func (a Automation) event() (automation.Event, bool, error) {
	switch a.Kind {
	case KindCancel, KindCancelAndHold:
		return automation.Event{}, false, nil
	}
	k, err := automation.ParseKind(a.Kind)
	if err != nil {
		return automation.Event{}, false, err
	}
	return automation.Event{
		Kind:         k,
		Value:        a.Value,
		Time:         a.Time,
		TimeConstant: a.TimeConstant,
		Curve:        append([]float64(nil), a.Curve...),
		Duration:     a.Duration,
	}, true, nil
}

// Parse reads a patch. format is "json" or "yaml"; YAML is assumed for
// anything else.
func Parse(r io.Reader, format string) (*Patch, error) {
	var p Patch
	var err error
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&p)
	default:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads the patch file at path, choosing the format by extension.
func Load(path string) (*Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	defer f.Close()

	p, err := Parse(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Dir = filepath.Dir(path)
	return p, nil
}

// Validate checks ids, types and connection endpoints. Parameter values and
// automation are checked by the engine during Build.
func (p *Patch) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(p.Nodes))
	for i, n := range p.Nodes {
		switch {
		case n.ID == "":
			errs = append(errs, fmt.Errorf("node %d has no id", i))
		case n.ID == DestinationID:
			errs = append(errs, fmt.Errorf("node %d uses the reserved id %s", i, DestinationID))
		case seen[n.ID]:
			errs = append(errs, fmt.Errorf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
		if !knownType(n.Type) {
			errs = append(errs, fmt.Errorf("node %q has unknown type %q", n.ID, n.Type))
		}
	}
	for _, c := range p.Connections {
		if c.From == DestinationID {
			errs = append(errs, fmt.Errorf("connection from %s", DestinationID))
		} else if !seen[c.From] {
			errs = append(errs, fmt.Errorf("connection from unknown node %q", c.From))
		}
		if c.To != DestinationID && !seen[c.To] {
			errs = append(errs, fmt.Errorf("connection to unknown node %q", c.To))
		}
		if c.Output < 0 || c.Input < 0 {
			errs = append(errs, fmt.Errorf("connection %s -> %s has a negative port", c.From, c.To))
		}
	}
	if p.Duration < 0 {
		errs = append(errs, fmt.Errorf("negative duration %v", p.Duration))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPatch, errors.Join(errs...))
	}
	return nil
}

func knownType(t string) bool {
	switch t {
	case TypeGain, TypeDelay, TypeIIRFilter, TypeOscillator, TypeBufferSource, TypeConstant, TypeAnalyser,
		TypeCompressor:
		return true
	}
	return false
}

// NewContext creates a context from the patch config; opts are applied
// afterwards and take precedence.
func (p *Patch) NewContext(opts ...engine.Option) (*engine.Context, error) {
	if p.Config != nil {
		opts = append([]engine.Option{engine.WithConfig(*p.Config)}, opts...)
	}
	return engine.NewContext(opts...)
}

// Frames returns Duration in frames at sampleRate, rounded up.
func (p *Patch) Frames(sampleRate float64) int64 {
	f := p.Duration * sampleRate
	n := int64(f)
	if float64(n) < f {
		n++
	}
	return n
}
