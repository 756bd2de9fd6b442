// SPDX-License-Identifier: EPL-2.0

// Package wavsink implements a capture.RecognitionSink that writes
// utterances to WAV files, for bench testing without a recognizer.
package wavsink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ik5/wakefront/capture"
	"github.com/ik5/wakefront/formats/wav"
)

// StreamFile is the name of the file that collects streamed blocks.
const StreamFile = "stream.wav"

// Utterance describes one recorded wake buffer flush.
type Utterance struct {
	ID       uuid.UUID
	Tag      capture.Tag
	Path     string
	Bytes    int
	Duration time.Duration
	At       time.Time
}

type Option func(*Sink)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Sink) { s.log = l }
}

// WithStream keeps streamed blocks in StreamFile instead of dropping them.
func WithStream(on bool) Option {
	return func(s *Sink) { s.stream = on }
}

// WithOnUtterance registers fn to run after each utterance file is written.
func WithOnUtterance(fn func(Utterance)) Option {
	return func(s *Sink) { s.onUtterance = fn }
}

// Sink writes 16-bit mono WAV files at the recognizer rate. Every block
// becomes <tag>-<uuid>.wav in the output directory.
type Sink struct {
	dir         string
	rate        int
	log         logrus.FieldLogger
	stream      bool
	onUtterance func(Utterance)

	mu       sync.Mutex
	tag      capture.Tag
	streamF  *os.File
	streamW  *wav.Writer
	streamed int
	closed   bool
}

// New creates dir if needed.
func New(dir string, sampleRate int, opts ...Option) (*Sink, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	s := &Sink{
		dir:  dir,
		rate: sampleRate,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "wav_sink", "dir": dir})
	return s, nil
}

// RecordStream appends samples to StreamFile, or drops them when streaming
// is disabled.
func (s *Sink) RecordStream(samples []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, os.ErrClosed
	}
	if !s.stream {
		return len(samples), nil
	}

	if s.streamW == nil {
		f, err := os.Create(filepath.Join(s.dir, StreamFile))
		if err != nil {
			return 0, fmt.Errorf("creating stream file: %w", err)
		}
		w, err := wav.NewWriter(f, s.rate, 16, 1)
		if err != nil {
			f.Close()
			return 0, err
		}
		s.streamF, s.streamW = f, w
	}

	if err := s.streamW.WritePCM16(samples); err != nil {
		return 0, fmt.Errorf("writing stream: %w", err)
	}
	s.streamed += len(samples)
	return len(samples), nil
}

// Recognize sets the tag used to name the next utterance.
func (s *Sink) Recognize(tag capture.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tag = tag
	return nil
}

// RecordBlock writes buf to a new utterance file.
func (s *Sink) RecordBlock(buf []byte) (int, error) {
	s.mu.Lock()
	tag, closed := s.tag, s.closed
	s.mu.Unlock()

	if closed {
		return 0, os.ErrClosed
	}

	u := Utterance{
		ID:       uuid.New(),
		Tag:      tag,
		Bytes:    len(buf),
		Duration: time.Duration(len(buf)/2) * time.Second / time.Duration(s.rate),
		At:       time.Now(),
	}
	u.Path = filepath.Join(s.dir, fmt.Sprintf("%s-%s.wav", tag, u.ID))

	if err := writeFile(u.Path, s.rate, buf); err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"id":       u.ID,
		"tag":      tag,
		"bytes":    u.Bytes,
		"duration": u.Duration,
	}).Info("utterance written")

	if s.onUtterance != nil {
		s.onUtterance(u)
	}
	return len(buf), nil
}

func writeFile(path string, rate int, pcm []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating utterance file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	w, err := wav.NewWriter(f, rate, 16, 1)
	if err != nil {
		return err
	}
	if err := w.WritePCM16(pcm); err != nil {
		return fmt.Errorf("writing utterance: %w", err)
	}
	return w.Close()
}

// Close finalizes StreamFile. Later calls fail with os.ErrClosed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.streamW == nil {
		return nil
	}
	err := errors.Join(s.streamW.Close(), s.streamF.Close())
	s.log.WithField("bytes", s.streamed).Debug("stream file closed")
	return err
}
