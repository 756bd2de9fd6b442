// SPDX-License-Identifier: EPL-2.0

package wakefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ik5/wakefront/capture"
	"github.com/ik5/wakefront/internal/config"
	"github.com/ik5/wakefront/internal/metrics"
	"github.com/ik5/wakefront/sink/wavsink"
	"github.com/ik5/wakefront/sink/wssink"
	"github.com/ik5/wakefront/source/file"
	"github.com/ik5/wakefront/source/pipe"
)

// Device is an assembled front-end. Init and Start the Controller to run it.
type Device struct {
	Controller *capture.Controller
	Source     capture.StreamSource
	Sink       capture.RecognitionSink
	// Metrics is nil unless a registerer was given.
	Metrics *metrics.Metrics

	done    <-chan struct{}
	closers []func() error
}

// Done is closed when the source input ends, for example at the end of a
// played file. It is nil for sources that never end.
func (d *Device) Done() <-chan struct{} { return d.done }

// Close stops the source and releases the source and sink in reverse order
// of creation.
func (d *Device) Close() error {
	var errs []error
	if err := d.Controller.Stop(); err != nil && !errors.Is(err, capture.ErrNotInitialized) {
		errs = append(errs, err)
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

type BuildOption func(*builder)

type builder struct {
	log   logrus.FieldLogger
	reg   prometheus.Registerer
	stdin io.Reader
}

func WithLogger(l logrus.FieldLogger) BuildOption {
	return func(b *builder) { b.log = l }
}

// WithRegisterer enables metrics, registered on r.
func WithRegisterer(r prometheus.Registerer) BuildOption {
	return func(b *builder) { b.reg = r }
}

// WithStdin replaces os.Stdin for a pipe source reading "-".
func WithStdin(r io.Reader) BuildOption {
	return func(b *builder) { b.stdin = r }
}

// Build assembles a device from cfg. Nothing is started; a websocket sink
// is dialed with ctx.
func Build(ctx context.Context, cfg *config.Config, opts ...BuildOption) (dev *Device, err error) {
	b := &builder{
		log:   logrus.StandardLogger(),
		stdin: os.Stdin,
	}
	for _, opt := range opts {
		opt(b)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cc, err := cfg.CaptureSettings()
	if err != nil {
		return nil, err
	}

	d := &Device{}
	defer func() {
		if err != nil {
			for i := len(d.closers) - 1; i >= 0; i-- {
				_ = d.closers[i]()
			}
		}
	}()

	if err := b.source(d, cfg.Source); err != nil {
		return nil, err
	}
	if err := b.sink(ctx, d, cfg.Sink, cc.TargetRate); err != nil {
		return nil, err
	}

	copts := []capture.Option{capture.WithLogger(b.log)}
	if b.reg != nil {
		d.Metrics = metrics.New(b.reg)
		copts = append(copts, capture.WithObserver(d.Metrics))
	}

	d.Controller, err = capture.New(cc, d.Source, d.Sink, copts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (b *builder) source(d *Device, sc config.SourceConfig) error {
	switch sc.Kind {
	case config.SourceFile:
		src := file.New(sc.Path, file.WithRealtime(sc.Realtime), file.WithLogger(b.log))
		d.Source, d.done = src, src.Done()
		d.closers = append(d.closers, src.Close)
		return nil

	case config.SourcePipe:
		r, closer, err := b.pipeReader(sc)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, closer)
		src := pipe.New(r, pipe.WithLogger(b.log))
		d.Source, d.done = src, src.Done()
		return nil
	}
	return fmt.Errorf("unknown source kind %q", sc.Kind)
}

func (b *builder) pipeReader(sc config.SourceConfig) (io.Reader, func() error, error) {
	if len(sc.Command) > 0 {
		cmd := exec.Command(sc.Command[0], sc.Command[1:]...)
		cmd.Stderr = os.Stderr
		out, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, fmt.Errorf("capture command: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, nil, fmt.Errorf("starting capture command: %w", err)
		}
		b.log.WithField("command", sc.Command).Info("capture command started")

		return out, func() error {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil
		}, nil
	}

	if sc.Path == "-" {
		return b.stdin, func() error { return nil }, nil
	}

	f, err := os.Open(sc.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening capture pipe: %w", err)
	}
	return f, f.Close, nil
}

func (b *builder) sink(ctx context.Context, d *Device, sc config.SinkConfig, rate int) error {
	switch sc.Kind {
	case config.SinkWAV:
		s, err := wavsink.New(sc.Dir, rate, wavsink.WithStream(sc.Stream), wavsink.WithLogger(b.log))
		if err != nil {
			return err
		}
		d.Sink = s
		d.closers = append(d.closers, s.Close)
		return nil

	case config.SinkWebsocket:
		opts := []wssink.Option{
			wssink.WithLogger(b.log),
			wssink.WithWriteTimeout(sc.WriteTimeout),
			wssink.WithDeviceID(sc.DeviceID),
		}
		if sc.Token != "" {
			h := http.Header{}
			h.Set("Authorization", "Bearer "+sc.Token)
			opts = append(opts, wssink.WithHeader(h))
		}
		s, err := wssink.Dial(ctx, sc.URL, rate, opts...)
		if err != nil {
			return err
		}
		d.Sink = s
		d.closers = append(d.closers, s.Close)
		return nil
	}
	return fmt.Errorf("unknown sink kind %q", sc.Kind)
}
