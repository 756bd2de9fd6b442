// SPDX-License-Identifier: EPL-2.0

package audio

// Interpolator converts interleaved frames from one sample rate to another
// using Catmull-Rom cubic interpolation. It is a push-style stream transform:
// every call to Process continues exactly where the previous call stopped, so
// block boundaries leave no audible seam as long as frames are fed in arrival
// order. Skipped or reordered input cannot be repaired afterwards.
//
// The read position is tracked as an exact rational (an integer count of
// 1/den frames), which keeps the output length for a given input sequence a
// pure function of that sequence.
//
// An Interpolator is not safe for concurrent use.
type Interpolator struct {
	srcRate  int
	dstRate  int
	channels int

	// step and den express srcRate/dstRate in lowest terms.
	step int64
	den  int64

	// hist holds the interleaved frames still needed for interpolation.
	// hist[0] is the frame before the one at the integer part of phase.
	hist   []float32
	phase  int64 // read position in units of 1/den frames, relative to hist[0]
	primed bool

	// one-pole low-pass applied to incoming frames when downsampling
	useFilter   bool
	filterAlpha float32
	filterState []float32

	truncated uint64
}

// NewInterpolator creates an Interpolator for interleaved audio with the given
// channel count. Rates and channels must be positive.
func NewInterpolator(srcRate, dstRate, channels int) (*Interpolator, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}

	g := gcd(srcRate, dstRate)
	ip := &Interpolator{
		srcRate:     srcRate,
		dstRate:     dstRate,
		channels:    channels,
		step:        int64(srcRate / g),
		den:         int64(dstRate / g),
		hist:        make([]float32, 0, 8*channels),
		filterState: make([]float32, channels),
	}

	// Simple one-pole low-pass filter when downsampling.
	// For production grade anti-aliasing a proper FIR filter is needed.
	if srcRate > dstRate {
		ip.useFilter = true
		ip.filterAlpha = 0.5
	}

	return ip, nil
}

func (ip *Interpolator) SourceRate() int { return ip.srcRate }
func (ip *Interpolator) TargetRate() int { return ip.dstRate }
func (ip *Interpolator) Channels() int   { return ip.channels }

// Truncated reports how many output frames were dropped so far because the
// destination passed to Process was full.
func (ip *Interpolator) Truncated() uint64 { return ip.truncated }

// MaxOutput returns the largest number of output frames a single Process call
// can yield for inFrames input frames.
func (ip *Interpolator) MaxOutput(inFrames int) int {
	// +2 covers the frames held back for lookahead by the previous call
	return int((int64(inFrames+2)*ip.den)/ip.step) + 1
}

// Process consumes the interleaved frames in src and writes as many output
// frames as the accumulated input allows into dst. It returns the number of
// float32 values written (not frames). Output frames that do not fit in dst
// are dropped; the read position still advances past them so timing is kept.
func (ip *Interpolator) Process(dst, src []float32) (int, error) {
	ch := ip.channels
	if len(dst)%ch != 0 {
		return 0, ErrInvalidDstSize
	}
	if len(src)%ch != 0 {
		return 0, ErrInvalidSrcSize
	}
	if len(src) == 0 {
		return 0, nil
	}

	if !ip.primed {
		// No frame precedes the first one; duplicate it so the cubic has a
		// left neighbour, and start the filter from it to avoid a warm-up ramp.
		ip.hist = append(ip.hist, src[:ch]...)
		copy(ip.filterState, src[:ch])
		ip.phase = ip.den
		ip.primed = true
	}

	ip.appendFrames(src)

	return ip.drain(dst), nil
}

// Flush emits the output frames that are still held back waiting for
// lookahead, as if the stream ended with its last frame repeated. Call it once
// after the final Process; the Interpolator is reset afterwards.
func (ip *Interpolator) Flush(dst []float32) (int, error) {
	ch := ip.channels
	if len(dst)%ch != 0 {
		return 0, ErrInvalidDstSize
	}
	if !ip.primed || len(ip.hist) < ch {
		ip.Reset()
		return 0, nil
	}

	last := len(ip.hist) - ch
	for range 2 {
		ip.hist = append(ip.hist, ip.hist[last:last+ch]...)
	}

	n := ip.drain(dst)
	ip.Reset()
	return n, nil
}

// Reset forgets all stream state. The next Process call starts a new stream.
func (ip *Interpolator) Reset() {
	ip.hist = ip.hist[:0]
	ip.phase = 0
	ip.primed = false
	clear(ip.filterState)
}

func (ip *Interpolator) appendFrames(src []float32) {
	ch := ip.channels
	if !ip.useFilter {
		ip.hist = append(ip.hist, src...)
		return
	}

	start := len(ip.hist)
	ip.hist = append(ip.hist, src...)
	a := ip.filterAlpha
	for i := start; i < len(ip.hist); i += ch {
		for c := range ch {
			// y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			y := a*ip.hist[i+c] + (1-a)*ip.filterState[c]
			ip.hist[i+c] = y
			ip.filterState[c] = y
		}
	}
}

// drain writes every output frame whose four neighbours are available and
// then discards history that no later output can reference.
func (ip *Interpolator) drain(dst []float32) int {
	ch := ip.channels
	total := int64(len(ip.hist) / ch)
	maxFrames := len(dst) / ch
	written := 0

	for {
		i := ip.phase / ip.den
		if i+2 >= total {
			break
		}

		if written < maxFrames {
			x := float32(ip.phase%ip.den) / float32(ip.den)
			h := ip.hist
			base := int(i) * ch
			out := dst[written*ch : written*ch+ch]
			for c := range ch {
				out[c] = catmullRom(h[base-ch+c], h[base+c], h[base+ch+c], h[base+2*ch+c], x)
			}
			written++
		} else {
			ip.truncated++
		}

		ip.phase += ip.step
	}

	// keep the frame before the next read position
	drop := ip.phase/ip.den - 1
	if drop > total {
		drop = total
	}
	if drop > 0 {
		n := copy(ip.hist, ip.hist[int(drop)*ch:])
		ip.hist = ip.hist[:n]
		ip.phase -= drop * ip.den
	}

	return written * ch
}

// catmullRom interpolates between y1 and y2; x is the fractional position
// (0 <= x <= 1) and y0, y3 are the outer neighbours.
func catmullRom(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
