// SPDX-License-Identifier: EPL-2.0

// Package wssink implements a capture.RecognitionSink that forwards audio to
// a remote recognizer over a websocket.
//
// Audio travels as binary messages of 16-bit little-endian mono PCM. Control
// messages are JSON text messages:
//
//	{"type":"hello", ...}                     once, after connecting
//	{"type":"listen","state":"detect","mode":"<tag>"}
//	{"type":"utterance","state":"start","bytes":N}
//	<binary utterance>
//	{"type":"utterance","state":"stop"}
package wssink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ik5/wakefront/capture"
)

const DefaultWriteTimeout = 2 * time.Second

var ErrClosed = errors.New("websocket sink closed")

// AudioParams announces the PCM layout in the hello message.
type AudioParams struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
	Format     string `json:"format"`
}

// Message is the JSON envelope of every text message.
type Message struct {
	Type        string       `json:"type"`
	State       string       `json:"state,omitempty"`
	Mode        string       `json:"mode,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
	DeviceID    string       `json:"device_id,omitempty"`
	Bytes       int          `json:"bytes,omitempty"`
	AudioParams *AudioParams `json:"audio_params,omitempty"`
}

type Option func(*Sink)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Sink) { s.log = l }
}

// WithWriteTimeout bounds every websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Sink) { s.timeout = d }
}

// WithDeviceID is reported in the hello message.
func WithDeviceID(id string) Option {
	return func(s *Sink) { s.deviceID = id }
}

// WithHeader adds headers to the handshake request, for example a token.
func WithHeader(h http.Header) Option {
	return func(s *Sink) { s.header = h }
}

// Sink owns one websocket connection. Writes are serialized.
type Sink struct {
	log      logrus.FieldLogger
	timeout  time.Duration
	deviceID string
	header   http.Header
	session  uuid.UUID

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to url and sends the hello message announcing sampleRate.
func Dial(ctx context.Context, url string, sampleRate int, opts ...Option) (*Sink, error) {
	s := &Sink{
		log:     logrus.StandardLogger(),
		timeout: DefaultWriteTimeout,
		session: uuid.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "ws_sink", "session": s.session})

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, s.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing recognizer %s: %w", url, err)
	}
	s.conn = conn
	s.done = make(chan struct{})
	go s.readLoop()

	hello := Message{
		Type:      "hello",
		SessionID: s.session.String(),
		DeviceID:  s.deviceID,
		AudioParams: &AudioParams{
			SampleRate: sampleRate,
			Channels:   1,
			BitDepth:   16,
			Format:     "pcm",
		},
	}
	if err := s.writeJSON(hello); err != nil {
		conn.Close()
		<-s.done
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	s.log.WithField("url", url).Info("connected to recognizer")
	return s, nil
}

// Session identifies this connection in every control message.
func (s *Sink) Session() uuid.UUID { return s.session }

// Done is closed once the connection is gone, by Close or by the recognizer.
func (s *Sink) Done() <-chan struct{} { return s.done }

func (s *Sink) RecordStream(samples []byte) (int, error) {
	if err := s.write(websocket.BinaryMessage, samples); err != nil {
		return 0, err
	}
	return len(samples), nil
}

func (s *Sink) Recognize(tag capture.Tag) error {
	return s.writeJSON(Message{
		Type:      "listen",
		State:     "detect",
		Mode:      tag.String(),
		SessionID: s.session.String(),
	})
}

// RecordBlock sends buf framed by utterance start and stop messages. The
// three writes go out back to back with no stream audio between them.
func (s *Sink) RecordBlock(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, err := json.Marshal(Message{Type: "utterance", State: "start", Bytes: len(buf), SessionID: s.session.String()})
	if err != nil {
		return 0, err
	}
	stop, err := json.Marshal(Message{Type: "utterance", State: "stop", SessionID: s.session.String()})
	if err != nil {
		return 0, err
	}

	if err := s.writeLocked(websocket.TextMessage, start); err != nil {
		return 0, err
	}
	if err := s.writeLocked(websocket.BinaryMessage, buf); err != nil {
		return 0, err
	}
	if err := s.writeLocked(websocket.TextMessage, stop); err != nil {
		return len(buf), err
	}
	return len(buf), nil
}

// Close sends a close frame, gives the recognizer the write timeout to
// answer and drops the connection. It returns after the reader has exited.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		open := !s.closed
		s.closed = true
		s.mu.Unlock()

		var werr error
		if open {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			werr = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.timeout))
			if errors.Is(werr, websocket.ErrCloseSent) {
				werr = nil
			}
			select {
			case <-s.done:
			case <-time.After(s.timeout):
			}
		}

		s.closeErr = errors.Join(werr, s.conn.Close())
		<-s.done
	})
	return s.closeErr
}

// readLoop keeps reading so pings and close frames from the recognizer are
// handled. Text messages are only logged. A read error ends the session.
func (s *Sink) readLoop() {
	defer close(s.done)

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			lost := !s.closed
			s.closed = true
			s.mu.Unlock()

			if lost {
				s.log.WithError(err).Warn("recognizer connection lost")
			}
			return
		}

		if kind == websocket.TextMessage {
			s.log.WithField("message", string(data)).Debug("recognizer message")
		}
	}
}

func (s *Sink) writeJSON(m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, b)
}

func (s *Sink) write(kind int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(kind, data)
}

func (s *Sink) writeLocked(kind int, data []byte) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(kind, data); err != nil {
		return fmt.Errorf("writing to recognizer: %w", err)
	}
	return nil
}
