// SPDX-License-Identifier: EPL-2.0

// Package pipe implements a capture.StreamSource over an io.Reader carrying
// raw interleaved PCM, such as the stdout of `arecord -t raw`.
package pipe

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ik5/wakefront/capture"
	"github.com/ik5/wakefront/utils"
)

var (
	ErrClosed        = errors.New("pipe source closed")
	ErrNotConfigured = errors.New("pipe source not configured")
	ErrReading       = errors.New("pipe source already reading")
)

type Option func(*Source)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Source) { s.log = l }
}

// Source reads frames of Params.MaxFrameBytes from r on one goroutine that
// is started by the first Start. Frames read while the source is stopped are
// discarded, the way a halted codec drops its DMA buffers.
type Source struct {
	r   io.Reader
	log logrus.FieldLogger

	mu         sync.Mutex
	frameBytes int
	handler    capture.BlockHandler
	running    bool
	reading    bool
	closed     bool
	err        error
	dropped    uint64

	done chan struct{}
}

func New(r io.Reader, opts ...Option) *Source {
	s := &Source{
		r:    r,
		log:  logrus.StandardLogger(),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "pipe_source")
	return s
}

// Configure sets the read size to the largest whole number of frames that
// fits in p.MaxFrameBytes.
func (s *Source) Configure(p capture.Params) error {
	width := utils.BytesPerSample(p.BitDepth)
	if width == 0 || p.Channels <= 0 {
		return fmt.Errorf("unsupported pcm layout: %d channels of %d bits", p.Channels, p.BitDepth)
	}
	frame := p.Channels * width
	if p.MaxFrameBytes < frame {
		return fmt.Errorf("max frame bytes %d below one frame", p.MaxFrameBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reading {
		return ErrReading
	}
	s.frameBytes = p.MaxFrameBytes - p.MaxFrameBytes%frame
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

	if s.closed {
		return fmt.Errorf("%w: %w", ErrClosed, s.err)
	}
	if s.frameBytes == 0 {
		return ErrNotConfigured
	}

	s.running = true
	if !s.reading {
		s.reading = true
		go s.readLoop(s.frameBytes)
	}
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Running reports whether frames are being delivered. It turns false on
// Stop and when the reader is exhausted.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Dropped counts frames discarded because the source was stopped.
func (s *Source) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Done is closed once the reader is exhausted or failed.
func (s *Source) Done() <-chan struct{} { return s.done }

// Err reports why the source closed: io.EOF for a clean end of input.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Source) readLoop(size int) {
	buf := make([]byte, size)
	for {
		n, err := io.ReadFull(s.r, buf)
		if n > 0 {
			s.deliver(buf[:n])
		}
		if err != nil {
			s.finish(err)
			return
		}
	}
}

func (s *Source) deliver(frame []byte) {
	s.mu.Lock()
	h, running := s.handler, s.running
	if !running {
		s.dropped++
	}
	s.mu.Unlock()

	if running && h != nil {
		h(frame)
	}
}

func (s *Source) finish(err error) {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	s.mu.Lock()
	s.closed = true
	s.running = false
	s.err = err
	s.mu.Unlock()

	if errors.Is(err, io.EOF) {
		s.log.Info("audio input ended")
	} else {
		s.log.WithError(err).Error("audio input failed")
	}
	close(s.done)
}

var (
	_ capture.StreamSource    = (*Source)(nil)
	_ capture.RunningReporter = (*Source)(nil)
)
