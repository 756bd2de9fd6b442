// SPDX-License-Identifier: EPL-2.0

// Package logging configures logrus for the wakefront binaries.
package logging

import (
	"fmt"
	"io"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Config selects the level and outputs.
type Config struct {
	Level string `yaml:"level"`
	// File, when set, receives the log rotated daily. File itself is a
	// link to the current day.
	File string `yaml:"file"`
	// RotationCount is how many daily files are kept.
	RotationCount uint `yaml:"rotation_count"`
	// Stdout keeps console output when File is set.
	Stdout bool `yaml:"stdout"`
}

func DefaultConfig() Config {
	return Config{
		Level:         "info",
		RotationCount: 7,
		Stdout:        true,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Formatter is the nested formatter used for every output, colored only on
// a console.
func Formatter(console bool) *nested.Formatter {
	return &nested.Formatter{
		FieldsOrder:      []string{"component", "op"},
		TimestampFormat:  timestampFormat,
		NoUppercaseLevel: true,
		ShowFullLevel:    true,
		NoColors:         !console,
	}
}

// Setup applies cfg to l. Console output goes to console. The returned
// closer releases the rotated file, if any.
func Setup(l *logrus.Logger, cfg Config, console io.Writer) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	if cfg.File == "" {
		l.SetOutput(console)
		l.SetFormatter(Formatter(true))
		l.SetLevel(level)
		return nopCloser{}, nil
	}

	count := cfg.RotationCount
	if count == 0 {
		count = 1
	}
	writer, err := rotatelogs.New(
		cfg.File+".%Y%m%d",
		rotatelogs.WithLinkName(cfg.File),
		rotatelogs.WithRotationCount(count),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}

	if cfg.Stdout {
		l.SetOutput(io.MultiWriter(writer, console))
	} else {
		l.SetOutput(writer)
	}
	l.SetFormatter(Formatter(false))
	l.SetLevel(level)

	return writer, nil
}
