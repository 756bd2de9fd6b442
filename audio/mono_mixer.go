// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Downmix averages every frame of the interleaved src into one sample of dst.
// It converts min(len(src)/channels, len(dst)) frames and returns that count.
func Downmix(dst, src []float32, channels int) int {
	if channels <= 0 {
		return 0
	}

	frames := len(src) / channels
	if frames > len(dst) {
		frames = len(dst)
	}

	// Unrolled loop for common cases
	switch channels {
	case 1:
		copy(dst, src[:frames])
	case 2: // Stereo (most common)
		for f := range frames {
			idx := f << 1 // f * 2
			dst[f] = (src[idx] + src[idx+1]) * 0.5
		}
	case 4: // Quad
		for f := range frames {
			idx := f << 2 // f * 4
			sum := src[idx] + src[idx+1] + src[idx+2] + src[idx+3]
			dst[f] = sum * 0.25
		}
	default: // Generic path
		invChannels := float32(1.0) / float32(channels)
		for f := range frames {
			sum := float32(0)
			baseIdx := f * channels
			for c := range channels {
				sum += src[baseIdx+c]
			}
			dst[f] = sum * invChannels
		}
	}

	return frames
}

// MonoMixer converts multi-channel audio to mono by averaging.
type MonoMixer struct {
	src Source
	tmp []float32
}

func NewMonoMixer(src Source) *MonoMixer {
	return &MonoMixer{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (m *MonoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *MonoMixer) Channels() int   { return 1 }
func (m *MonoMixer) BufSize() int    { return m.src.BufSize() }
func (m *MonoMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (m *MonoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if m.src.Channels() == 1 {
		// Pass-through: read mono directly
		return m.src.ReadSamples(dst)
	}

	channels := m.src.Channels()
	samplesNeeded := len(dst) * channels
	m.tmp = growScratch(m.tmp, samplesNeeded)

	n, err := m.src.ReadSamples(m.tmp[:samplesNeeded])
	if n == 0 {
		return 0, err
	}

	return Downmix(dst, m.tmp[:n], channels), err
}

// growScratch returns buf resliced to n, reallocating with headroom only when
// its capacity is too small. It never shrinks to avoid thrashing.
func growScratch(buf []float32, n int) []float32 {
	if cap(buf) < n {
		newCap := n
		if newCap < 8192 {
			newCap = 8192 // Reasonable minimum
		}
		return make([]float32, n, newCap)
	}
	return buf[:n]
}
