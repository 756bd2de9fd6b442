// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	goaudio "github.com/go-audio/audio"
)

// Helper function to create a minimal WAV file around raw sample data
func createWAVFile(sampleRate, channels, bitsPerSample int, formatTag uint16, data []byte, extraChunks ...string) []byte {
	buf := new(bytes.Buffer)

	numChannels := uint16(channels)
	bits := uint16(bitsPerSample)
	byteRate := uint32(sampleRate) * uint32(numChannels) * uint32(bits/8)
	blockAlign := numChannels * (bits / 8)

	body := new(bytes.Buffer)
	body.WriteString("WAVE")

	// fmt chunk
	body.WriteString("fmt ")
	binary.Write(body, binary.LittleEndian, uint32(16))
	binary.Write(body, binary.LittleEndian, formatTag)
	binary.Write(body, binary.LittleEndian, numChannels)
	binary.Write(body, binary.LittleEndian, uint32(sampleRate))
	binary.Write(body, binary.LittleEndian, byteRate)
	binary.Write(body, binary.LittleEndian, blockAlign)
	binary.Write(body, binary.LittleEndian, bits)

	for _, id := range extraChunks {
		body.WriteString(id)
		binary.Write(body, binary.LittleEndian, uint32(4))
		body.WriteString("junk")
	}

	// data chunk
	body.WriteString("data")
	binary.Write(body, binary.LittleEndian, uint32(len(data)))
	body.Write(data)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(body.Len()))
	buf.Write(body.Bytes())

	return buf.Bytes()
}

func pcm16(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func TestDecoder_ValidWAVFile(t *testing.T) {
	t.Parallel()

	wavData := createWAVFile(8000, 1, 16, 1, pcm16(0, 16384, -16384, -32768))

	src, err := Decoder{}.Decode(bytes.NewReader(wavData))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", src.SampleRate())
	}
	if src.Channels() != 1 {
		t.Errorf("Channels() = %d, want 1", src.Channels())
	}

	buf := make([]float32, 10)
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

	n, err = src.ReadSamples(buf)
	if n != 0 || err != io.EOF {
		t.Errorf("after EOF ReadSamples() = (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestDecoder_StereoWAVFile(t *testing.T) {
	t.Parallel()

	wavData := createWAVFile(48000, 2, 16, 1, pcm16(100, -100, 200, -200))
	src, err := Decoder{}.Decode(bytes.NewReader(wavData))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", src.Channels())
	}
}

func TestDecoder_24Bit(t *testing.T) {
	t.Parallel()

	// 0.5 and -0.5 at full 24-bit scale
	data := []byte{0x00, 0x00, 0x40, 0x00, 0x00, 0xc0}
	src, err := Decoder{}.Decode(bytes.NewReader(createWAVFile(16000, 1, 24, 1, data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	buf := make([]float32, 4)
	n, _ := src.ReadSamples(buf)
	if n != 2 {
		t.Fatalf("ReadSamples() n = %d, want 2", n)
	}
	if buf[0] != 0.5 || buf[1] != -0.5 {
		t.Errorf("samples = %v, want [0.5 -0.5]", buf[:n])
	}
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not RIFF", []byte("This is definitely not a WAV file at all, no sir"), ErrNotWavFile},
		{"empty", nil, ErrNotWavFile},
		{"8-bit", createWAVFile(8000, 1, 8, 1, make([]byte, 16)), ErrUnsupportedBitDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecoder_RejectsFloat(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader(createWAVFile(8000, 1, 32, 3, make([]byte, 16))))
	if err == nil {
		t.Error("Decode() of IEEE float WAV succeeded, want error")
	}
}

func TestDecoder_WithUnknownChunks(t *testing.T) {
	t.Parallel()

	wavData := createWAVFile(16000, 1, 16, 1, pcm16(1000, 2000, 3000), "LIST")
	src, err := Decoder{}.Decode(bytes.NewReader(wavData))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	buf := make([]float32, 8)
	n, _ := src.ReadSamples(buf)
	if n != 3 {
		t.Fatalf("ReadSamples() n = %d, want 3", n)
	}
	if math.Abs(float64(buf[2])-3000.0/32768.0) > 1e-6 {
		t.Errorf("buf[2] = %v, want %v", buf[2], 3000.0/32768.0)
	}
}

func TestDecoder_NonSeekableReader(t *testing.T) {
	t.Parallel()

	wavData := createWAVFile(16000, 1, 16, 1, pcm16(1, 2, 3, 4))
	// io.MultiReader hides the Seek method
	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(wavData)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 16000 {
		t.Errorf("SampleRate() = %d, want 16000", src.SampleRate())
	}
}

type failingPCM struct{}

func (failingPCM) PCMBuffer(*goaudio.IntBuffer) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestSource_ReadError(t *testing.T) {
	t.Parallel()

	src := &wavSource{
		dec:      failingPCM{},
		channels: 1,
		bitDepth: 16,
		intBuf:   &goaudio.IntBuffer{},
	}

	_, err := src.ReadSamples(make([]float32, 4))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestSource_ReadSamples_EmptyBuffer(t *testing.T) {
	t.Parallel()

	src, err := Decoder{}.Decode(bytes.NewReader(createWAVFile(8000, 1, 16, 1, pcm16(1, 2))))
	if err != nil {
		t.Fatal(err)
	}
	n, err := src.ReadSamples(nil)
	if n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = (%d, %v), want (0, nil)", n, err)
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	wavData := createWAVFile(48000, 2, 16, 1, make([]byte, 48000*4))
	buf := make([]float32, 4096)

	b.ReportAllocs()
	for b.Loop() {
		src, _ := Decoder{}.Decode(bytes.NewReader(wavData))
		for {
			_, err := src.ReadSamples(buf)
			if err != nil {
				break
			}
		}
	}
}
