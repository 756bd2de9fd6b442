// SPDX-License-Identifier: EPL-2.0

// Package config loads the device profile.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ik5/wakefront/capture"
	"github.com/ik5/wakefront/internal/logging"
)

const (
	SourcePipe = "pipe"
	SourceFile = "file"

	SinkWAV       = "wav"
	SinkWebsocket = "websocket"
)

// Config is the whole device profile.
type Config struct {
	Capture CaptureConfig  `yaml:"capture"`
	Source  SourceConfig   `yaml:"source"`
	Sink    SinkConfig     `yaml:"sink"`
	MQTT    MQTTConfig     `yaml:"mqtt"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Log     logging.Config `yaml:"log"`

	// AutoTrigger, when positive, triggers recognition once this long after
	// the device started.
	AutoTrigger time.Duration `yaml:"auto_trigger"`
}

type CaptureConfig struct {
	SourceRate       int           `yaml:"source_rate"`
	TargetRate       int           `yaml:"target_rate"`
	Channels         int           `yaml:"channels"`
	BitDepth         int           `yaml:"bit_depth"`
	WakeBufferBytes  int           `yaml:"wake_buffer_bytes"`
	MaxFrameBytes    int           `yaml:"max_frame_bytes"`
	MaxOutputSamples int           `yaml:"max_output_samples"`
	Overflow         string        `yaml:"overflow"`
	Tag              string        `yaml:"tag"`
	WarmUp           time.Duration `yaml:"warm_up"`
}

type SourceConfig struct {
	// Kind is "pipe" or "file".
	Kind string `yaml:"kind"`
	// Path is the file to play, or the pipe to read; "-" is stdin.
	Path string `yaml:"path"`
	// Command, for a pipe source, is run and its stdout read instead of Path.
	Command []string `yaml:"command"`
	// Realtime paces file playback at the frame duration.
	Realtime bool `yaml:"realtime"`
}

type SinkConfig struct {
	// Kind is "wav" or "websocket".
	Kind string `yaml:"kind"`

	Dir    string `yaml:"dir"`
	Stream bool   `yaml:"stream"`

	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	DeviceID     string        `yaml:"device_id"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MQTTConfig enables remote control when Broker is set.
type MQTTConfig struct {
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CommandTopic string `yaml:"command_topic"`
	StatusTopic  string `yaml:"status_topic"`
	QoS          byte   `yaml:"qos"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// Default matches capture.DefaultConfig, reads raw PCM from stdin and
// writes utterances to ./utterances.
func Default() *Config {
	c := capture.DefaultConfig()
	return &Config{
		Capture: CaptureConfig{
			SourceRate:      c.SourceRate,
			TargetRate:      c.TargetRate,
			Channels:        c.Channels,
			BitDepth:        c.BitDepth,
			WakeBufferBytes: c.WakeBufferBytes,
			MaxFrameBytes:   c.MaxFrameBytes,
			Overflow:        c.Overflow.String(),
			Tag:             c.Tag.String(),
		},
		Source: SourceConfig{
			Kind:     SourcePipe,
			Path:     "-",
			Realtime: true,
		},
		Sink: SinkConfig{
			Kind:         SinkWAV,
			Dir:          "utterances",
			WriteTimeout: 2 * time.Second,
		},
		MQTT: MQTTConfig{
			ClientID:     "wakefront",
			CommandTopic: "wakefront/cmd",
			StatusTopic:  "wakefront/status",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Log: logging.DefaultConfig(),
	}
}

// Load reads the YAML profile at path on top of Default and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML profile from r. Unknown keys are errors.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CaptureSettings converts the capture section.
func (c *Config) CaptureSettings() (capture.Config, error) {
	var errs []error

	overflow, err := capture.ParseOverflowPolicy(c.Capture.Overflow)
	if err != nil {
		errs = append(errs, fmt.Errorf("capture.overflow: %w", err))
	}
	tag, err := capture.ParseTag(c.Capture.Tag)
	if err != nil {
		errs = append(errs, fmt.Errorf("capture.tag: %w", err))
	}
	if len(errs) > 0 {
		return capture.Config{}, errors.Join(errs...)
	}

	return capture.Config{
		SourceRate:       c.Capture.SourceRate,
		TargetRate:       c.Capture.TargetRate,
		Channels:         c.Capture.Channels,
		BitDepth:         c.Capture.BitDepth,
		WakeBufferBytes:  c.Capture.WakeBufferBytes,
		MaxFrameBytes:    c.Capture.MaxFrameBytes,
		MaxOutputSamples: c.Capture.MaxOutputSamples,
		Overflow:         overflow,
		Tag:              tag,
		WarmUp:           c.Capture.WarmUp,
	}, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	cc, err := cfg.CaptureSettings()
	if err != nil {
		errs = append(errs, err)
	} else if err := cc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("capture: %w", err))
	}

	switch cfg.Source.Kind {
	case SourcePipe:
		if cfg.Source.Path == "" && len(cfg.Source.Command) == 0 {
			errs = append(errs, errors.New("source: pipe needs a path or a command"))
		}
	case SourceFile:
		if cfg.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for a file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind %q is invalid; valid values: pipe, file", cfg.Source.Kind))
	}

	switch cfg.Sink.Kind {
	case SinkWAV:
		if cfg.Sink.Dir == "" {
			errs = append(errs, errors.New("sink.dir is required for a wav sink"))
		}
	case SinkWebsocket:
		if cfg.Sink.URL == "" {
			errs = append(errs, errors.New("sink.url is required for a websocket sink"))
		}
		if cfg.Sink.WriteTimeout <= 0 {
			errs = append(errs, fmt.Errorf("sink.write_timeout %s must be positive", cfg.Sink.WriteTimeout))
		}
	default:
		errs = append(errs, fmt.Errorf("sink.kind %q is invalid; valid values: wav, websocket", cfg.Sink.Kind))
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.CommandTopic == "" {
			errs = append(errs, errors.New("mqtt.command_topic is required when mqtt.broker is set"))
		}
		if cfg.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt.qos %d is out of range [0, 2]", cfg.MQTT.QoS))
		}
	}

	if cfg.Metrics.Addr != "" && cfg.Metrics.Path == "" {
		errs = append(errs, errors.New("metrics.path is required when metrics.addr is set"))
	}

	if cfg.AutoTrigger < 0 {
		errs = append(errs, fmt.Errorf("auto_trigger %s must not be negative", cfg.AutoTrigger))
	}

	return errors.Join(errs...)
}
