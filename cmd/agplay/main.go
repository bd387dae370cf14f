// Command agplay plays a patch or a sound file on the default audio device.
//
// Usage:
//
//	agplay [flags] patch.yaml|sound.wav
//
// Sound files (wav, aiff, mp3, ogg, opus) are played once through a buffer
// source. The WEB_AUDIO_LATENCY environment variable selects the default
// latency hint: interactive, balanced or playback.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/decode"
	"github.com/cwbudde/algo-audiograph/engine"
	"github.com/cwbudde/algo-audiograph/patch"
	"github.com/cwbudde/algo-audiograph/sink"
	"github.com/cwbudde/algo-audiograph/sink/otosink"
)

const latencyEnv = "WEB_AUDIO_LATENCY"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Getenv(latencyEnv), os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "agplay: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, latencyDefault string, stderr io.Writer) error {
	fs := flag.NewFlagSet("agplay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	latency := fs.String("latency", latencyDefault, "latency hint: interactive, balanced or playback")
	duration := fs.Float64("duration", 0, "stop after this many seconds; 0 plays the patch duration or the whole file")
	rate := fs.Float64("rate", 0, "sample rate; overrides the patch config")
	null := fs.Bool("null", false, "render in real time without an audio device")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: agplay [flags] patch.yaml|sound.wav\n\n")
		fmt.Fprintf(stderr, "Plays an audio graph patch or a sound file.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	hint, err := engine.ParseLatencyHint(*latency)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logger.WithField("component", "agplay")

	opts := []engine.Option{
		engine.WithSampleRate(*rate),
		engine.WithLatencyHint(hint),
		engine.WithLogger(log),
	}
	path := fs.Arg(0)

	var (
		ac     *engine.Context
		frames int64
	)
	if isPatch(path) {
		ac, frames, err = loadPatch(ctx, path, opts)
	} else {
		ac, frames, err = loadSound(ctx, path, opts)
	}
	if err != nil {
		return err
	}
	defer ac.Close()
	ac.OnError(func(err error) {
		log.WithError(err).Warn("Render error")
	})
	if *duration > 0 {
		frames = int64(*duration * ac.SampleRate())
	}

	var out sink.Sink = otosink.Sink{
		BufferQuanta: ac.Config().LatencyHint.BufferQuanta(),
		Frames:       frames,
		Log:          log,
	}
	if *null {
		out = sink.Driver{Frames: frames, Log: log}
	}

	log.WithFields(logrus.Fields{
		"input":   path,
		"latency": ac.Config().LatencyHint,
		"frames":  frames,
	}).Info("Playing")
	if err := out.Run(ctx, ac); err != nil {
		return err
	}
	log.WithField("output_latency", ac.OutputLatency()).Debug("Done")
	return nil
}

func isPatch(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func loadPatch(ctx context.Context, path string, opts []engine.Option) (*engine.Context, int64, error) {
	p, err := patch.Load(path)
	if err != nil {
		return nil, 0, err
	}
	ac, err := p.NewContext(opts...)
	if err != nil {
		return nil, 0, err
	}
	if _, err := p.Build(ctx, ac); err != nil {
		ac.Close()
		return nil, 0, err
	}
	return ac, p.Frames(ac.SampleRate()), nil
}

func loadSound(ctx context.Context, path string, opts []engine.Option) (*engine.Context, int64, error) {
	format := decode.FormatOf(path)
	if format == "" {
		return nil, 0, fmt.Errorf("%s: %w", path, decode.ErrUnknownFormat)
	}
	ac, err := engine.NewContext(opts...)
	if err != nil {
		return nil, 0, err
	}
	fail := func(err error) (*engine.Context, int64, error) {
		ac.Close()
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	defer f.Close()
	b, err := ac.DecodeAudioData(ctx, f, format)
	if err != nil {
		return fail(err)
	}

	src, err := ac.CreateBufferSource()
	if err != nil {
		return fail(err)
	}
	if err := src.SetBuffer(b); err != nil {
		return fail(err)
	}
	if err := src.Connect(ac.Destination()); err != nil {
		return fail(err)
	}
	if err := src.Start(); err != nil {
		return fail(err)
	}
	return ac, int64(b.Length()), nil
}
