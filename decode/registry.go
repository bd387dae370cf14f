package decode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// Decoder decodes one complete encoded stream.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*buffer.AudioBuffer, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, r io.Reader) (*buffer.AudioBuffer, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(ctx context.Context, r io.Reader) (*buffer.AudioBuffer, error) {
	return f(ctx, r)
}

var extensions = map[string]string{
	".wav":  "wav",
	".wave": "wav",
	".aif":  "aiff",
	".aiff": "aiff",
	".aifc": "aiff",
	".mp3":  "mp3",
	".ogg":  "ogg",
	".oga":  "ogg",
	".opk":  "opus",
}

// FormatOf returns the format name for a file name's extension, or "" when
// the extension is unknown.
func FormatOf(path string) string {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// Registry maps format names to decoders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
	log      *logrus.Entry
}

// NewRegistry returns an empty registry logging to the standard logger.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
		log:      logrus.WithField("component", "decode"),
	}
}

// NewDefaultRegistry returns a registry with every built-in format.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for name, d := range map[string]Decoder{
		"wav":  DecoderFunc(DecodeWAV),
		"aiff": DecoderFunc(DecodeAIFF),
		"mp3":  DecoderFunc(DecodeMP3),
		"ogg":  DecoderFunc(DecodeVorbis),
		"opus": DecoderFunc(DecodeOpusPackets),
	} {
		// Built-in names are valid.
		_ = r.Register(name, d)
	}
	return r
}

// SetLogger replaces the registry's logger.
func (r *Registry) SetLogger(l *logrus.Entry) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.log = l.WithField("component", "decode")
	r.mu.Unlock()
}

func normalize(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// Register adds or replaces the decoder for format. Names are
// case-insensitive.
func (r *Registry) Register(format string, d Decoder) error {
	name := normalize(format)
	if name == "" || d == nil {
		return fmt.Errorf("decode: register %q: empty name or nil decoder", format)
	}
	r.mu.Lock()
	r.decoders[name] = d
	r.mu.Unlock()
	return nil
}

// Lookup returns the decoder for format.
func (r *Registry) Lookup(format string) (Decoder, error) {
	r.mu.RLock()
	d, ok := r.decoders[normalize(format)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return d, nil
}

// Formats returns the registered format names in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Decode decodes src with the decoder registered for format.
func (r *Registry) Decode(ctx context.Context, format string, src io.Reader) (*buffer.AudioBuffer, error) {
	d, err := r.Lookup(format)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	log := r.log
	r.mu.RUnlock()

	b, err := d.Decode(ctx, src)
	if err != nil {
		log.WithFields(logrus.Fields{
			"function": "Decode",
			"format":   format,
			"error":    err.Error(),
		}).Debug("Decoding failed")
		return nil, fmt.Errorf("decode %s: %w", normalize(format), err)
	}
	log.WithFields(logrus.Fields{
		"function":    "Decode",
		"format":      format,
		"channels":    b.NumberOfChannels(),
		"frames":      b.Length(),
		"sample_rate": b.SampleRate(),
	}).Debug("Decoded audio")
	return b, nil
}

// DecodeFile decodes the file at path, choosing the decoder by extension.
func (r *Registry) DecodeFile(ctx context.Context, path string) (*buffer.AudioBuffer, error) {
	format := FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("%w: extension of %s", ErrUnknownFormat, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return r.Decode(ctx, format, f)
}

// readSeeker returns r itself when it can seek, or an in-memory copy.
func readSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
