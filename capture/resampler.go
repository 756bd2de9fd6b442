// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"fmt"

	"github.com/ik5/wakefront/audio"
	"github.com/ik5/wakefront/utils"
)

// FrameResampler turns raw interleaved frames into mono 16-bit blocks at the
// target rate. It decodes the PCM, interpolates every channel, downmixes and
// re-encodes, carrying interpolation phase and any partial trailing frame
// from one call to the next. All scratch memory is allocated up front.
//
// A FrameResampler is not safe for concurrent use.
type FrameResampler struct {
	ip *audio.Interpolator

	channels   int
	bitDepth   int
	frameBytes int
	maxOut     int

	carry []byte    // bytes of an incomplete frame, len < frameBytes
	in    []float32 // decoded input chunk
	mid   []float32 // interpolated, still interleaved
	mono  []float32
	out   []byte
}

// NewFrameResampler sizes its scratch from maxFrameBytes. maxOutputSamples
// bounds each returned block; 0 picks the largest block a maxFrameBytes frame
// can produce.
func NewFrameResampler(sourceRate, targetRate, channels, bitDepth, maxFrameBytes, maxOutputSamples int) (*FrameResampler, error) {
	width := utils.BytesPerSample(bitDepth)
	if width == 0 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrInvalidConfig, bitDepth)
	}
	ip, err := audio.NewInterpolator(sourceRate, targetRate, channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	frameBytes := channels * width
	maxFrames := max(maxFrameBytes/frameBytes, 1)
	if maxOutputSamples <= 0 {
		maxOutputSamples = ip.MaxOutput(maxFrames)
	}

	return &FrameResampler{
		ip:         ip,
		channels:   channels,
		bitDepth:   bitDepth,
		frameBytes: frameBytes,
		maxOut:     maxOutputSamples,
		carry:      make([]byte, 0, frameBytes),
		in:         make([]float32, maxFrames*channels),
		mid:        make([]float32, maxOutputSamples*channels),
		mono:       make([]float32, maxOutputSamples),
		out:        make([]byte, maxOutputSamples*2),
	}, nil
}

// MaxOutputSamples is the bound on the length of one returned block.
func (r *FrameResampler) MaxOutputSamples() int { return r.maxOut }

// Truncated counts output samples dropped so far because a block hit the
// bound.
func (r *FrameResampler) Truncated() uint64 { return r.ip.Truncated() }

// Resample converts frame and returns the resulting block. The block aliases
// internal memory and is valid until the next call. Frames larger than the
// nominal maximum are processed in pieces, so only the output is bounded.
func (r *FrameResampler) Resample(frame []byte) []byte {
	written := 0 // interleaved values in r.mid

	if len(r.carry) > 0 {
		need := r.frameBytes - len(r.carry)
		if len(frame) < need {
			r.carry = append(r.carry, frame...)
			return r.out[:0]
		}
		r.carry = append(r.carry, frame[:need]...)
		frame = frame[need:]
		written += r.push(r.carry, written)
		r.carry = r.carry[:0]
	}

	whole := len(frame) - len(frame)%r.frameBytes
	chunk := (len(r.in) / r.channels) * r.frameBytes
	for pos := 0; pos < whole; pos += chunk {
		end := min(pos+chunk, whole)
		written += r.push(frame[pos:end], written)
	}
	r.carry = append(r.carry, frame[whole:]...)

	frames := audio.Downmix(r.mono, r.mid[:written], r.channels)
	n := utils.EncodePCM(r.out, r.mono[:frames], 16)
	return r.out[:n]
}

// push decodes whole frames from raw and interpolates them into r.mid at
// offset, returning the number of values added.
func (r *FrameResampler) push(raw []byte, offset int) int {
	n := utils.DecodePCM(r.in, raw, r.bitDepth)
	// sizes are multiples of the channel count by construction
	m, _ := r.ip.Process(r.mid[offset:], r.in[:n])
	return m
}

// Reset drops carried phase and partial input, as if freshly created.
func (r *FrameResampler) Reset() {
	r.ip.Reset()
	r.carry = r.carry[:0]
}
