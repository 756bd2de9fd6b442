// SPDX-License-Identifier: EPL-2.0

// Package capturetest provides in-memory mock implementations of
// [capture.StreamSource] and [capture.RecognitionSink] for use in tests.
//
// All mocks are safe for concurrent use, record method calls, and expose
// exported fields for configuring return values.
package capturetest

import (
	"slices"
	"sync"

	"github.com/ik5/wakefront/capture"
)

// ─── StreamSource ─────────────────────────────────────────────────────────────

// Source is a mock implementation of [capture.StreamSource]. Frames are
// delivered only when a test calls Emit.
type Source struct {
	mu sync.Mutex

	// ConfigureError is returned by [Source.Configure].
	ConfigureError error

	// StartError is returned by [Source.Start].
	StartError error

	// StopError is returned by [Source.Stop].
	StopError error

	// ConfigureCalls records the params of each Configure call.
	ConfigureCalls []capture.Params

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	handler capture.BlockHandler
	running bool
}

// Configure implements [capture.StreamSource].
func (s *Source) Configure(p capture.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConfigureCalls = append(s.ConfigureCalls, p)
	return s.ConfigureError
}

// Start implements [capture.StreamSource]. Returns StartError.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartError != nil {
		return s.StartError
	}
	s.running = true
	return nil
}

// Stop implements [capture.StreamSource]. Returns StopError.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
	if s.StopError != nil {
		return s.StopError
	}
	s.running = false
	return nil
}

// RegisterCallback implements [capture.StreamSource].
func (s *Source) RegisterCallback(h capture.BlockHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Running reports whether Start succeeded more recently than Stop.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Finish marks the source stopped without a Stop call, as a source does
// when its input ends.
func (s *Source) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Starts returns CallCountStart.
func (s *Source) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountStart
}

// Emit delivers frame to the registered handler, regardless of the running
// state. It reports false when no handler is registered.
func (s *Source) Emit(frame []byte) bool {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h == nil {
		return false
	}
	h(frame)
	return true
}

// ─── RecognitionSink ──────────────────────────────────────────────────────────

// EventKind names the sink method an Event came from.
type EventKind string

const (
	EventStream    EventKind = "stream"
	EventRecognize EventKind = "recognize"
	EventBlock     EventKind = "block"
)

// Event records one sink call. Data is a copy of the bytes passed in.
type Event struct {
	Kind EventKind
	Tag  capture.Tag
	Data []byte
}

// Sink is a mock implementation of [capture.RecognitionSink].
type Sink struct {
	mu sync.Mutex

	// RecordStreamError is returned by [Sink.RecordStream].
	RecordStreamError error

	// RecognizeError is returned by [Sink.Recognize].
	RecognizeError error

	// RecordBlockError is returned by [Sink.RecordBlock].
	RecordBlockError error

	// OnRecordStream and OnRecordBlock, when set, run at the start of the
	// matching call without the mock's lock held.
	OnRecordStream func()
	OnRecordBlock  func()

	events []Event
}

// RecordStream implements [capture.RecognitionSink].
func (s *Sink) RecordStream(samples []byte) (int, error) {
	if s.OnRecordStream != nil {
		s.OnRecordStream()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: EventStream, Data: slices.Clone(samples)})
	if s.RecordStreamError != nil {
		return 0, s.RecordStreamError
	}
	return len(samples), nil
}

// Recognize implements [capture.RecognitionSink].
func (s *Sink) Recognize(tag capture.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: EventRecognize, Tag: tag})
	return s.RecognizeError
}

// RecordBlock implements [capture.RecognitionSink].
func (s *Sink) RecordBlock(buf []byte) (int, error) {
	if s.OnRecordBlock != nil {
		s.OnRecordBlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: EventBlock, Data: slices.Clone(buf)})
	if s.RecordBlockError != nil {
		return 0, s.RecordBlockError
	}
	return len(buf), nil
}

// Events returns a copy of every recorded call in order.
func (s *Sink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Kinds returns the kind of every recorded call in order.
func (s *Sink) Kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]EventKind, len(s.events))
	for i, e := range s.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Data returns the payloads of the calls of one kind, in order.
func (s *Sink) Data(kind EventKind) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e.Data)
		}
	}
	return out
}
