// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ik5/wakefront/utils"
)

// Mode is the routing state of the controller.
type Mode int

const (
	// ModeStreaming forwards every resampled block to the sink as it arrives.
	ModeStreaming Mode = iota
	// ModeBuffering accumulates blocks in the wake buffer until it overflows.
	ModeBuffering
)

func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeBuffering:
		return "buffering"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Tag tells the recognizer what caused a recorded utterance.
type Tag int

const (
	TagTap Tag = iota
	TagWakeWord
	TagHold
)

var tagNames = map[Tag]string{
	TagTap:      "tap",
	TagWakeWord: "wake_word",
	TagHold:     "hold",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// ParseTag accepts the names produced by Tag.String, case-insensitively.
func ParseTag(s string) (Tag, error) {
	for t, name := range tagNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown recognize tag %q", ErrInvalidConfig, s)
}

// OverflowPolicy decides the fate of the block that overflows the wake buffer.
type OverflowPolicy int

const (
	// OverflowDiscard drops the overflowing block after the flush.
	OverflowDiscard OverflowPolicy = iota
	// OverflowForward streams the overflowing block right after the flush.
	OverflowForward
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowDiscard:
		return "discard"
	case OverflowForward:
		return "forward"
	}
	return fmt.Sprintf("OverflowPolicy(%d)", int(p))
}

// ParseOverflowPolicy accepts "discard" or "forward".
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(s) {
	case "discard", "":
		return OverflowDiscard, nil
	case "forward":
		return OverflowForward, nil
	}
	return 0, fmt.Errorf("%w: unknown overflow policy %q", ErrInvalidConfig, s)
}

// Config is resolved once at Init and never changes afterwards.
type Config struct {
	SourceRate int // Hz, rate the stream source delivers
	TargetRate int // Hz, rate the recognizer expects
	Channels   int // interleaved channels in a raw frame
	BitDepth   int // 16, 24 or 32

	// WakeBufferBytes is the wake buffer capacity.
	WakeBufferBytes int
	// MaxFrameBytes is the nominal upper bound of one raw frame.
	MaxFrameBytes int
	// MaxOutputSamples bounds one resampled block; samples beyond it are
	// truncated. Zero derives the bound from MaxFrameBytes.
	MaxOutputSamples int

	Overflow OverflowPolicy
	Tag      Tag

	// WarmUp, when positive, runs one start, wait, stop cycle during Init.
	WarmUp time.Duration
}

// DefaultConfig matches a 48 kHz stereo 16-bit codec feeding a 16 kHz
// recognizer, with a 4 KiB wake buffer and 20 ms frames.
func DefaultConfig() Config {
	return Config{
		SourceRate:      48000,
		TargetRate:      16000,
		Channels:        2,
		BitDepth:        16,
		WakeBufferBytes: 4 * 1024,
		MaxFrameBytes:   3840,
		Overflow:        OverflowDiscard,
		Tag:             TagTap,
	}
}

// FrameBytes is the size of one interleaved frame.
func (c Config) FrameBytes() int {
	return c.Channels * utils.BytesPerSample(c.BitDepth)
}

// Params is what the stream source needs to know about the raw format.
func (c Config) Params() Params {
	return Params{
		SampleRate:    c.SourceRate,
		Channels:      c.Channels,
		BitDepth:      c.BitDepth,
		MaxFrameBytes: c.MaxFrameBytes,
	}
}

// Validate reports every problem with c, joined.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.SourceRate <= 0 {
		bad("source rate must be positive, got %d", c.SourceRate)
	}
	if c.TargetRate <= 0 {
		bad("target rate must be positive, got %d", c.TargetRate)
	}
	if c.Channels <= 0 {
		bad("channels must be positive, got %d", c.Channels)
	}
	if utils.BytesPerSample(c.BitDepth) == 0 {
		bad("bit depth must be 16, 24 or 32, got %d", c.BitDepth)
	}
	if c.WakeBufferBytes <= 0 {
		bad("wake buffer capacity must be positive, got %d", c.WakeBufferBytes)
	}
	if fb := c.FrameBytes(); fb > 0 && c.MaxFrameBytes < fb {
		bad("max frame bytes %d is smaller than one frame (%d bytes)", c.MaxFrameBytes, fb)
	}
	if c.MaxOutputSamples < 0 {
		bad("max output samples must not be negative, got %d", c.MaxOutputSamples)
	}
	if _, ok := tagNames[c.Tag]; !ok {
		bad("unknown recognize tag %d", int(c.Tag))
	}
	if c.Overflow != OverflowDiscard && c.Overflow != OverflowForward {
		bad("unknown overflow policy %d", int(c.Overflow))
	}
	if c.WarmUp < 0 {
		bad("warm-up must not be negative, got %s", c.WarmUp)
	}

	return errors.Join(errs...)
}

// Params describes the raw stream a StreamSource must produce.
type Params struct {
	SampleRate    int
	Channels      int
	BitDepth      int
	MaxFrameBytes int
}
