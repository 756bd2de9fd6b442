// SPDX-License-Identifier: EPL-2.0

// Package file implements a capture.StreamSource that plays an audio file as
// if it were a live codec: the file is decoded, conformed to the configured
// rate and channel count, encoded to raw PCM and delivered frame by frame.
package file

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ik5/wakefront/audio"
	"github.com/ik5/wakefront/capture"
	"github.com/ik5/wakefront/formats"
	"github.com/ik5/wakefront/utils"
)

var (
	ErrNotConfigured = errors.New("file source not configured")
	ErrFinished      = errors.New("file source finished")
)

type Option func(*Source)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Source) { s.log = l }
}

// WithRegistry selects the decoders used to open the file.
func WithRegistry(r *audio.Registry) Option {
	return func(s *Source) { s.reg = r }
}

// WithRealtime paces delivery at the frame duration (the default). When
// false, frames are delivered as fast as the handler accepts them.
func WithRealtime(on bool) Option {
	return func(s *Source) { s.realtime = on }
}

// WithOnEOF registers fn to run once after the last frame was delivered.
func WithOnEOF(fn func()) Option {
	return func(s *Source) { s.onEOF = fn }
}

// Source plays one file. Stop pauses playback and Start resumes it.
type Source struct {
	path     string
	reg      *audio.Registry
	log      logrus.FieldLogger
	realtime bool
	onEOF    func()

	mu       sync.Mutex
	stream   audio.Source
	params   capture.Params
	handler  capture.BlockHandler
	running  bool
	playing  bool
	finished bool
	err      error

	resume chan struct{}
	quit   chan struct{}
	done   chan struct{}
	close  sync.Once
}

func New(path string, opts ...Option) *Source {
	s := &Source{
		path:     path,
		log:      logrus.StandardLogger(),
		realtime: true,
		resume:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = formats.NewRegistry()
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "file_source", "path": path})
	return s
}

// Configure opens the file and builds the conversion chain for p.
func (s *Source) Configure(p capture.Params) error {
	width := utils.BytesPerSample(p.BitDepth)
	if width == 0 || p.Channels <= 0 || p.SampleRate <= 0 {
		return fmt.Errorf("unsupported pcm layout: %d Hz, %d channels of %d bits", p.SampleRate, p.Channels, p.BitDepth)
	}
	if p.MaxFrameBytes < p.Channels*width {
		return fmt.Errorf("max frame bytes %d below one frame", p.MaxFrameBytes)
	}

	src, err := formats.Open(s.path, s.reg)
	if err != nil {
		return err
	}

	mapped, err := audio.NewChannelMapper(audio.NewResampler(src, p.SampleRate), p.Channels)
	if err != nil {
		src.Close()
		return fmt.Errorf("conforming %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		mapped.Close()
		return errors.New("file source already playing")
	}
	if s.stream != nil {
		s.stream.Close()
	}
	s.stream = mapped
	s.params = p

	s.log.WithFields(logrus.Fields{
		"file_rate":     src.SampleRate(),
		"file_channels": src.Channels(),
		"rate":          p.SampleRate,
		"channels":      p.Channels,
	}).Debug("audio file opened")

	return nil
}

func (s *Source) RegisterCallback(h capture.BlockHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		if s.err != nil {
			return fmt.Errorf("%w: %w", ErrFinished, s.err)
		}
		return ErrFinished
	}
	if s.stream == nil {
		return ErrNotConfigured
	}

	s.running = true
	if !s.playing {
		s.playing = true
		go s.play(s.stream, s.params)
	}

	select {
	case s.resume <- struct{}{}:
	default:
	}
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Close ends playback and releases the file.
func (s *Source) Close() error {
	var err error
	s.close.Do(func() {
		close(s.quit)

		s.mu.Lock()
		playing := s.playing
		stream := s.stream
		if !playing {
			s.finished = true
		}
		s.mu.Unlock()

		if playing {
			<-s.done
			return
		}
		if stream != nil {
			err = stream.Close()
		}
		close(s.done)
	})
	return err
}

// Done is closed when playback ends, by EOF, error or Close.
func (s *Source) Done() <-chan struct{} { return s.done }

// Err reports why playback ended: io.EOF after the whole file was played.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Running reports whether playback is started and the file has not ended.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Source) play(stream audio.Source, p capture.Params) {
	width := utils.BytesPerSample(p.BitDepth)
	frames := p.MaxFrameBytes / (p.Channels * width)
	samples := make([]float32, frames*p.Channels)
	raw := make([]byte, len(samples)*width)

	period := time.Duration(frames) * time.Second / time.Duration(p.SampleRate)
	tick := time.NewTicker(period)
	defer tick.Stop()

	var err error
	defer func() { s.end(stream, err) }()

	for {
		if !s.Running() {
			select {
			case <-s.resume:
				continue
			case <-s.quit:
				return
			}
		}

		if s.realtime {
			select {
			case <-tick.C:
			case <-s.quit:
				return
			}
		} else {
			select {
			case <-s.quit:
				return
			default:
			}
		}

		var n int
		n, err = fill(stream, samples)
		if n > 0 {
			m := utils.EncodePCM(raw, samples[:n], p.BitDepth)
			s.deliver(raw[:m])
		}
		if err != nil {
			return
		}
	}
}

// fill reads until dst is full or the stream ends.
func fill(src audio.Source, dst []float32) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := src.ReadSamples(dst[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrNoProgress
		}
	}
	return total, nil
}

func (s *Source) deliver(frame []byte) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h(frame)
	}
}

func (s *Source) end(stream audio.Source, err error) {
	if cerr := stream.Close(); cerr != nil {
		s.log.WithError(cerr).Warn("closing audio file")
	}

	s.mu.Lock()
	s.finished = true
	s.running = false
	s.err = err
	s.mu.Unlock()

	switch {
	case errors.Is(err, io.EOF):
		s.log.Info("audio file finished")
		if s.onEOF != nil {
			s.onEOF()
		}
	case err != nil:
		s.log.WithError(err).Error("audio file playback failed")
	}
	close(s.done)
}

var (
	_ capture.StreamSource    = (*Source)(nil)
	_ capture.RunningReporter = (*Source)(nil)
)
