// SPDX-License-Identifier: EPL-2.0

// Command wakeconv converts an audio file the way a device hears it and
// writes the recognizer input as a 16-bit mono WAV file.
//
//	wakeconv [flags] <input.{wav|aiff|mp3|ogg}> <output.wav>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ik5/wakefront"
	"github.com/ik5/wakefront/capture"
	"github.com/ik5/wakefront/formats"
	"github.com/ik5/wakefront/internal/config"
	"github.com/ik5/wakefront/internal/logging"
)

type options struct {
	profile    string
	sourceRate int
	targetRate int
	channels   int
	bitDepth   int
	frameBytes int
	logLevel   string
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "wakeconv:", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	var o options
	fs := pflag.NewFlagSet("wakeconv", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.profile, "config", "c", "", "device profile to take the capture settings from")
	fs.IntVar(&o.sourceRate, "source-rate", 0, "codec sample rate in Hz")
	fs.IntVar(&o.targetRate, "target-rate", 0, "recognizer sample rate in Hz")
	fs.IntVar(&o.channels, "channels", 0, "codec channel count")
	fs.IntVar(&o.bitDepth, "bit-depth", 0, "codec bit depth (16, 24 or 32)")
	fs.IntVar(&o.frameBytes, "frame-bytes", 0, "bytes per codec frame")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: wakeconv [flags] <input.{wav|aiff|mp3|ogg}> <output.wav>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("need an input and an output file")
	}

	log := logrus.New()
	if _, err := logging.Setup(log, logging.Config{Level: o.logLevel}, stderr); err != nil {
		return err
	}

	cfg, err := o.captureConfig()
	if err != nil {
		return err
	}

	return convert(fs.Arg(0), fs.Arg(1), cfg, log)
}

func (o options) captureConfig() (capture.Config, error) {
	cfg := capture.DefaultConfig()
	if o.profile != "" {
		p, err := config.Load(o.profile)
		if err != nil {
			return cfg, err
		}
		if cfg, err = p.CaptureSettings(); err != nil {
			return cfg, err
		}
	}

	if o.sourceRate > 0 {
		cfg.SourceRate = o.sourceRate
	}
	if o.targetRate > 0 {
		cfg.TargetRate = o.targetRate
	}
	if o.channels > 0 {
		cfg.Channels = o.channels
	}
	if o.bitDepth > 0 {
		cfg.BitDepth = o.bitDepth
	}
	if o.frameBytes > 0 {
		cfg.MaxFrameBytes = o.frameBytes
	}
	return cfg, cfg.Validate()
}

func convert(in, out string, cfg capture.Config, log logrus.FieldLogger) (err error) {
	src, err := formats.Open(in, nil)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	stats, err := wakefront.ConvertToWAV(src, cfg, f)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"input":     in,
		"output":    out,
		"frames":    stats.Frames,
		"raw_bytes": stats.RawBytes,
		"bytes":     stats.Bytes,
		"truncated": stats.Truncated,
	}).Info("converted")
	return nil
}
