// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

// mockAiffReader simulates the aiff.Decoder for testing
type mockAiffReader struct {
	sampleRate   int
	channels     int
	samples      []int
	offset       int
	returnErrors bool
}

func (m *mockAiffReader) Format() *goaudio.Format {
	return &goaudio.Format{
		SampleRate:  m.sampleRate,
		NumChannels: m.channels,
	}
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.returnErrors {
		return 0, io.ErrUnexpectedEOF
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

// encodeAIFF builds a real AIFF file with go-audio's encoder.
func encodeAIFF(t *testing.T, sampleRate, bitDepth, channels int, samples []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "in.aiff")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := aiff.NewEncoder(f, sampleRate, bitDepth, channels)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		Data:   samples,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("This is not AIFF data")))
	if !errors.Is(err, ErrNotAiffFile) {
		t.Errorf("Decode() error = %v, want ErrNotAiffFile", err)
	}
}

func TestDecoder_EncodedFile(t *testing.T) {
	t.Parallel()

	data := encodeAIFF(t, 22050, 16, 2, []int{0, 16384, -16384, -32768})

	// wrapped so the decoder has to buffer the input itself
	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 22050 || src.Channels() != 2 {
		t.Errorf("format = %d Hz x %d, want 22050 Hz x 2", src.SampleRate(), src.Channels())
	}

	buf := make([]float32, 16)
	n, err := src.ReadSamples(buf)
	if err != io.EOF {
		t.Errorf("ReadSamples() error = %v, want io.EOF", err)
	}
	want := []float32{0, 0.5, -0.5, -1}
	if n != len(want) {
		t.Fatalf("ReadSamples() n = %d, want %d", n, len(want))
	}
	for i, w := range want {
		if buf[i] != w {
			t.Errorf("buf[%d] = %v, want %v", i, buf[i], w)
		}
	}
}

func TestSource_BitDepthNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bitDepth int
		value    int
	}{
		{8, 64},
		{16, 16384},
		{24, 4194304},
		{32, 1073741824},
	}

	for _, tt := range tests {
		src := &source{
			dec:      &mockAiffReader{sampleRate: 8000, channels: 1, samples: []int{tt.value}},
			channels: 1,
			bitDepth: tt.bitDepth,
		}
		buf := make([]float32, 1)
		n, _ := src.ReadSamples(buf)
		if n != 1 || buf[0] != 0.5 {
			t.Errorf("%d-bit: got (%d, %v), want (1, 0.5)", tt.bitDepth, n, buf[0])
		}
	}
}

func TestSource_ReadSamples_EOF(t *testing.T) {
	t.Parallel()

	src := &source{
		dec:      &mockAiffReader{sampleRate: 8000, channels: 1, samples: []int{1, 2, 3}},
		channels: 1,
		bitDepth: 16,
	}

	buf := make([]float32, 2)
	if n, err := src.ReadSamples(buf); n != 2 || err != nil {
		t.Errorf("first read = (%d, %v), want (2, nil)", n, err)
	}
	if n, err := src.ReadSamples(buf); n != 1 || err != io.EOF {
		t.Errorf("second read = (%d, %v), want (1, io.EOF)", n, err)
	}
	if n, err := src.ReadSamples(buf); n != 0 || err != io.EOF {
		t.Errorf("third read = (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	src := &source{
		dec:      &mockAiffReader{returnErrors: true, channels: 1},
		channels: 1,
		bitDepth: 16,
	}
	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want io.ErrUnexpectedEOF", err)
	}
}
