// SPDX-License-Identifier: EPL-2.0

// Package remote drives a capture controller from MQTT commands.
//
// A command is the plain payload "start", "stop", "trigger" or "reset", or
// the same as JSON: {"cmd":"trigger"}. Every command is answered on the
// status topic with a Status document.
package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/ik5/wakefront/capture"
)

var ErrUnknownCommand = errors.New("unknown command")

const (
	CmdStart   = "start"
	CmdStop    = "stop"
	CmdTrigger = "trigger"
	CmdReset   = "reset"
)

// Controller is the part of capture.Controller the listener drives.
type Controller interface {
	Start() error
	Stop() error
	Trigger() error
	Reset() error
	Mode() capture.Mode
}

var _ Controller = (*capture.Controller)(nil)

// Status answers one command.
type Status struct {
	Cmd   string `json:"cmd"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Mode  string `json:"mode"`
}

type command struct {
	Cmd string `json:"cmd"`
}

// ParseCommand accepts a plain or JSON command, case-insensitively.
func ParseCommand(payload []byte) (string, error) {
	payload = bytes.TrimSpace(payload)

	cmd := string(payload)
	if len(payload) > 0 && payload[0] == '{' {
		var c command
		if err := json.Unmarshal(payload, &c); err != nil {
			return "", fmt.Errorf("decoding command: %w", err)
		}
		cmd = c.Cmd
	}

	cmd = strings.ToLower(strings.TrimSpace(cmd))
	switch cmd {
	case CmdStart, CmdStop, CmdTrigger, CmdReset:
		return cmd, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
}

// Dispatch runs cmd against ctl.
func Dispatch(ctl Controller, cmd string) Status {
	var err error
	switch cmd {
	case CmdStart:
		err = ctl.Start()
	case CmdStop:
		err = ctl.Stop()
	case CmdTrigger:
		err = ctl.Trigger()
	case CmdReset:
		err = ctl.Reset()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}

	st := Status{Cmd: cmd, OK: err == nil, Mode: ctl.Mode().String()}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// Options for Connect.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect opens an auto-reconnecting client to the broker.
func Connect(o Options, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(o.Broker).SetClientID(o.ClientID)
	opts.SetUsername(o.Username)
	opts.SetPassword(o.Password)
	opts.SetAutoReconnect(true)
	// handlers wait on publish tokens
	opts.SetOrderMatters(false)
	opts.SetConnectTimeout(timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connecting to %s: timed out after %s", o.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", o.Broker, err)
	}
	return client, nil
}

type Option func(*Listener)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Listener) { s.log = l }
}

// WithQoS sets the QoS of the subscription and of status replies.
func WithQoS(qos byte) Option {
	return func(s *Listener) { s.qos = qos }
}

// Listener subscribes to the command topic and publishes replies.
type Listener struct {
	client       mqtt.Client
	ctl          Controller
	commandTopic string
	statusTopic  string
	qos          byte
	log          logrus.FieldLogger
}

// NewListener does not subscribe yet; see Listen. An empty statusTopic
// disables replies.
func NewListener(client mqtt.Client, ctl Controller, commandTopic, statusTopic string, opts ...Option) *Listener {
	l := &Listener{
		client:       client,
		ctl:          ctl,
		commandTopic: commandTopic,
		statusTopic:  statusTopic,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithFields(logrus.Fields{"component": "remote", "topic": commandTopic})
	return l
}

// Listen subscribes to the command topic.
func (l *Listener) Listen() error {
	token := l.client.Subscribe(l.commandTopic, l.qos, l.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", l.commandTopic, err)
	}
	l.log.Info("listening for remote commands")
	return nil
}

// Close unsubscribes. The client stays connected.
func (l *Listener) Close() error {
	token := l.client.Unsubscribe(l.commandTopic)
	token.Wait()
	return token.Error()
}

func (l *Listener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	cmd, err := ParseCommand(msg.Payload())
	var st Status
	if err != nil {
		l.log.WithError(err).Warn("ignoring malformed command")
		st = Status{Cmd: strings.TrimSpace(string(msg.Payload())), Error: err.Error(), Mode: l.ctl.Mode().String()}
	} else {
		st = Dispatch(l.ctl, cmd)
		entry := l.log.WithFields(logrus.Fields{"cmd": cmd, "mode": st.Mode})
		if st.OK {
			entry.Info("remote command handled")
		} else {
			entry.WithField("error", st.Error).Warn("remote command failed")
		}
	}

	l.publish(st)
}

func (l *Listener) publish(st Status) {
	if l.statusTopic == "" {
		return
	}
	payload, err := json.Marshal(st)
	if err != nil {
		l.log.WithError(err).Error("encoding status")
		return
	}
	token := l.client.Publish(l.statusTopic, l.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		l.log.WithError(err).Error("publishing status")
	}
}
