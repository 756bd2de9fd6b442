// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMapper adapts a Source to a fixed channel count.
//
// Mapping to mono averages all channels. Otherwise output channel c takes
// input channel c modulo the input channel count, which duplicates mono to
// every output and drops surplus input channels.
type ChannelMapper struct {
	src      Source
	channels int
	tmp      []float32
}

func NewChannelMapper(src Source, channels int) (*ChannelMapper, error) {
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}
	return &ChannelMapper{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}, nil
}

func (m *ChannelMapper) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMapper) Channels() int   { return m.channels }
func (m *ChannelMapper) BufSize() int    { return m.src.BufSize() }
func (m *ChannelMapper) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (m *ChannelMapper) ReadSamples(dst []float32) (int, error) {
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	in := m.src.Channels()
	if in == m.channels {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / m.channels
	if frames == 0 {
		return 0, nil
	}
	m.tmp = growScratch(m.tmp, frames*in)

	n, err := m.src.ReadSamples(m.tmp[:frames*in])
	if n == 0 {
		return 0, err
	}
	got := n / in

	if m.channels == 1 {
		return Downmix(dst, m.tmp[:got*in], in), err
	}

	for f := range got {
		for c := range m.channels {
			dst[f*m.channels+c] = m.tmp[f*in+c%in]
		}
	}

	return got * m.channels, err
}
