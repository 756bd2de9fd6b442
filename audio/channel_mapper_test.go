// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"testing"

	"github.com/ik5/wakefront/internal/audiotest"
)

func TestNewChannelMapper_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewChannelMapper(audiotest.NewSilentSource(8000, 1, 1), 0)
	if !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("NewChannelMapper() error = %v, want ErrInvalidChannels", err)
	}
}

func TestChannelMapper(t *testing.T) {
	t.Parallel()

	perChannel := func(sample, channel int) float32 { return float32(channel+1) / 10 }

	tests := []struct {
		name    string
		in, out int
		want    []float32 // first frame
	}{
		{"passthrough", 2, 2, []float32{0.1, 0.2}},
		{"mono to stereo", 1, 2, []float32{0.1, 0.1}},
		{"stereo to mono", 2, 1, []float32{0.15}},
		{"quad to stereo", 4, 2, []float32{0.1, 0.2}},
		{"stereo to quad", 2, 4, []float32{0.1, 0.2, 0.1, 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := NewChannelMapper(audiotest.NewMockSource(8000, tt.in, 3, perChannel), tt.out)
			if err != nil {
				t.Fatal(err)
			}
			if m.Channels() != tt.out {
				t.Errorf("Channels() = %d, want %d", m.Channels(), tt.out)
			}

			got, err := audiotest.Collect(m, tt.out*2)
			if err != nil {
				t.Fatalf("ReadSamples() error = %v", err)
			}
			if len(got) != 3*tt.out {
				t.Fatalf("read %d samples, want %d", len(got), 3*tt.out)
			}
			for i, w := range tt.want {
				if d := got[i] - w; d > 1e-6 || d < -1e-6 {
					t.Errorf("sample %d = %v, want %v", i, got[i], w)
				}
			}
		})
	}
}

func TestChannelMapper_InvalidDstSize(t *testing.T) {
	t.Parallel()

	m, _ := NewChannelMapper(audiotest.NewSilentSource(8000, 1, 10), 2)
	if _, err := m.ReadSamples(make([]float32, 3)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples() error = %v, want ErrInvalidDstSize", err)
	}
}

func TestChannelMapper_EOF(t *testing.T) {
	t.Parallel()

	m, _ := NewChannelMapper(audiotest.NewSilentSource(8000, 1, 0), 2)
	n, err := m.ReadSamples(make([]float32, 4))
	if n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() = (%d, %v), want (0, io.EOF)", n, err)
	}
}
