// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcm16(samples []int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

func samples16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// sineStereo returns frames of a 440 Hz tone at 48 kHz, same on both channels.
func sineStereo(frames int) []byte {
	s := make([]int16, 2*frames)
	for i := range frames {
		v := int16(12000 * math.Sin(2*math.Pi*440*float64(i)/48000))
		s[2*i], s[2*i+1] = v, v
	}
	return pcm16(s)
}

func TestFrameResampler_DecimatesToMono(t *testing.T) {
	t.Parallel()

	r, err := NewFrameResampler(48000, 16000, 2, 16, 3840, 0)
	require.NoError(t, err)

	total := 0
	raw := sineStereo(960 * 50) // one second
	for off := 0; off < len(raw); off += 3840 {
		block := r.Resample(raw[off : off+3840])
		assert.Len(t, block, 640, "20 ms at 16 kHz mono")
		total += len(block)
	}
	assert.Equal(t, 32000, total)
	assert.Zero(t, r.Truncated())
}

func TestFrameResampler_PartialFramesCarry(t *testing.T) {
	t.Parallel()

	raw := sineStereo(960 * 3)

	whole, err := NewFrameResampler(48000, 16000, 2, 16, 3840, 0)
	require.NoError(t, err)
	var want []byte
	for off := 0; off < len(raw); off += 3840 {
		want = append(want, whole.Resample(raw[off:off+3840])...)
	}

	split, err := NewFrameResampler(48000, 16000, 2, 16, 3840, 0)
	require.NoError(t, err)
	var got []byte
	// cuts that land inside a sample and inside a frame
	for _, cut := range [][2]int{{0, 5}, {5, 6}, {6, 3001}, {3001, 6843}, {6843, 10000}, {10000, len(raw)}} {
		got = append(got, split.Resample(raw[cut[0]:cut[1]])...)
	}

	assert.Equal(t, want, got)
}

func TestFrameResampler_OversizeFrameIsBounded(t *testing.T) {
	t.Parallel()

	r, err := NewFrameResampler(48000, 16000, 2, 16, 3840, 0)
	require.NoError(t, err)

	block := r.Resample(sineStereo(960 * 4))
	assert.Len(t, block, 2*r.MaxOutputSamples())
	assert.Positive(t, r.Truncated())
}

func TestFrameResampler_ExplicitBound(t *testing.T) {
	t.Parallel()

	r, err := NewFrameResampler(48000, 16000, 2, 16, 3840, 100)
	require.NoError(t, err)
	require.Equal(t, 100, r.MaxOutputSamples())

	block := r.Resample(sineStereo(960))
	assert.Len(t, block, 200)
	assert.EqualValues(t, 220, r.Truncated())
}

func TestFrameResampler_SameRatePassesThrough(t *testing.T) {
	t.Parallel()

	r, err := NewFrameResampler(16000, 16000, 1, 16, 1024, 0)
	require.NoError(t, err)

	in := make([]int16, 512)
	for i := range in {
		in[i] = int16(i*50 - 12800)
	}

	out := samples16(r.Resample(pcm16(in)))
	// two frames of look-ahead are held back
	require.Len(t, out, 510)
	for i, s := range out {
		assert.InDelta(t, in[i], s, 1, "sample %d", i)
	}
}

func TestFrameResampler_24Bit(t *testing.T) {
	t.Parallel()

	r, err := NewFrameResampler(16000, 16000, 1, 24, 300, 0)
	require.NoError(t, err)

	// 0x400000 is half scale
	raw := make([]byte, 0, 300)
	for range 100 {
		raw = append(raw, 0x00, 0x00, 0x40)
	}

	out := samples16(r.Resample(raw))
	require.Len(t, out, 98)
	for _, s := range out {
		assert.InDelta(t, 16383, s, 1)
	}
}

func TestFrameResampler_EmptyAndReset(t *testing.T) {
	t.Parallel()

	r, err := NewFrameResampler(48000, 16000, 2, 16, 3840, 0)
	require.NoError(t, err)

	assert.Empty(t, r.Resample(nil))

	first := append([]byte(nil), r.Resample(sineStereo(960))...)
	r.Resample([]byte{1, 2, 3}) // leaves a partial frame behind

	r.Reset()
	again := r.Resample(sineStereo(960))
	assert.Equal(t, first, again)
}

func TestFrameResampler_InvalidParams(t *testing.T) {
	t.Parallel()

	_, err := NewFrameResampler(48000, 16000, 2, 8, 3840, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFrameResampler(0, 16000, 2, 16, 3840, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFrameResampler_NoAllocs(t *testing.T) {
	// Note: Cannot use t.Parallel() with testing.AllocsPerRun
	r, err := NewFrameResampler(48000, 16000, 2, 16, 3840, 0)
	require.NoError(t, err)
	frame := sineStereo(960)

	allocs := testing.AllocsPerRun(100, func() {
		r.Resample(frame)
	})
	assert.Zero(t, allocs)
}
