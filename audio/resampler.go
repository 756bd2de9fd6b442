// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// Resampler streams from src to target sample rate using cubic interpolation.
// Works on interleaved samples; preserves channel count.
// Includes basic anti-aliasing filtering when downsampling.
//
// It pulls blocks from src and feeds them through an Interpolator, so the
// output is identical to pushing the same samples through Process and Flush.
type Resampler struct {
	src      Source
	dstRate  int
	channels int

	ip  *Interpolator
	err error // construction error, reported by ReadSamples

	// Buffer for reading from source
	srcBuf []float32

	// Interpolated samples not yet handed to the caller
	out    []float32
	outPos int

	eof     bool
	flushed bool
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ip, err := NewInterpolator(src.SampleRate(), dstRate, channels)

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		channels: channels,
		ip:       ip,
		err:      err,
	}
	if err != nil {
		return r
	}

	frames := 4096 / channels
	if frames == 0 {
		frames = 1
	}
	r.srcBuf = make([]float32, frames*channels)
	r.out = make([]float32, 0, ip.MaxOutput(frames)*channels)

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of r.channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	written := 0
	for written < len(dst) {
		if r.outPos < len(r.out) {
			n := copy(dst[written:], r.out[r.outPos:])
			r.outPos += n
			written += n
			continue
		}

		if r.flushed {
			return written, io.EOF
		}

		if err := r.refill(); err != nil {
			return written, err
		}
	}

	return written, nil
}

// refill produces the next batch of output into r.out.
func (r *Resampler) refill() error {
	r.out = r.out[:cap(r.out)]
	r.outPos = 0

	if r.eof {
		n, err := r.ip.Flush(r.out)
		r.out = r.out[:n]
		r.flushed = true
		return err
	}

	n, err := r.src.ReadSamples(r.srcBuf)
	if errors.Is(err, io.EOF) {
		r.eof = true
	} else if err != nil {
		r.out = r.out[:0]
		return fmt.Errorf("%w", err)
	}

	// drop a trailing partial frame from a misbehaving source
	n -= n % r.channels

	m, perr := r.ip.Process(r.out, r.srcBuf[:n])
	r.out = r.out[:m]
	return perr
}
