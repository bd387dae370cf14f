// Command agrender renders a patch offline to a WAV file.
//
// Usage:
//
//	agrender [flags] patch.yaml
//
// Examples:
//
//	agrender -o tone.wav testdata/tone.yaml
//	agrender -duration 10 -bits 24 -rate 96000 -o long.wav drone.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/engine"
	"github.com/cwbudde/algo-audiograph/patch"
	"github.com/cwbudde/algo-audiograph/sink"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "agrender: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("agrender", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "out.wav", "output WAV file")
	bits := fs.Int("bits", 16, "output bit depth (8, 16, 24 or 32)")
	duration := fs.Float64("duration", 0, "render length in seconds; overrides the patch duration")
	rate := fs.Float64("rate", 0, "sample rate; overrides the patch config")
	channels := fs.Int("channels", 0, "output channels; overrides the patch config")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: agrender [flags] patch.yaml\n\n")
		fmt.Fprintf(stderr, "Renders an audio graph patch to a WAV file as fast as possible.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logger.WithField("component", "agrender")

	p, err := patch.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	if *duration > 0 {
		p.Duration = *duration
	}
	if p.Duration <= 0 {
		return fmt.Errorf("%s: no duration; set one in the patch or with -duration", fs.Arg(0))
	}

	ac, err := p.NewContext(
		engine.WithSampleRate(*rate),
		engine.WithChannels(*channels),
		engine.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer ac.Close()
	ac.OnError(func(err error) {
		log.WithError(err).Warn("Render error")
	})

	if _, err := p.Build(ctx, ac); err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	frames := p.Frames(ac.SampleRate())
	w := sink.OfflineWAV{W: f, Frames: frames, BitDepth: *bits}
	if err := w.Run(ctx, ac); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"file":     *out,
		"frames":   frames,
		"rate":     ac.SampleRate(),
		"channels": ac.Channels(),
		"patch":    fs.Arg(0),
	}).Info("Rendered")
	return nil
}
