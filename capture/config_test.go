// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.FrameBytes())
	assert.Equal(t, Params{SampleRate: 48000, Channels: 2, BitDepth: 16, MaxFrameBytes: 3840}, cfg.Params())
}

func TestConfig_ValidateJoinsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Config{
		SourceRate: -1,
		TargetRate: 0,
		Channels:   1,
		BitDepth:   12,
		Tag:        Tag(42),
		Overflow:   OverflowPolicy(7),
	}

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	// two rates plus bit depth, capacity, tag and policy
	assert.Len(t, joined.Unwrap(), 6)
}

func TestConfig_ValidateFrameBound(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxFrameBytes = 3
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.MaxFrameBytes = 4
	assert.NoError(t, cfg.Validate())
}

func TestParseTag(t *testing.T) {
	t.Parallel()

	for _, tag := range []Tag{TagTap, TagWakeWord, TagHold} {
		got, err := ParseTag(tag.String())
		require.NoError(t, err)
		assert.Equal(t, tag, got)
	}

	got, err := ParseTag("WAKE_WORD")
	require.NoError(t, err)
	assert.Equal(t, TagWakeWord, got)

	_, err = ParseTag("clap")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, "Tag(9)", Tag(9).String())
}

func TestParseOverflowPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    OverflowPolicy
		wantErr bool
	}{
		{"", OverflowDiscard, false},
		{"discard", OverflowDiscard, false},
		{"Forward", OverflowForward, false},
		{"keep", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseOverflowPolicy(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidConfig, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMode_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "streaming", ModeStreaming.String())
	assert.Equal(t, "buffering", ModeBuffering.String())
	assert.Equal(t, "Mode(5)", Mode(5).String())
}
