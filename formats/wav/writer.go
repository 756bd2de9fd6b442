// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ik5/wakefront/utils"
)

// Writer streams integer PCM into a WAV file. The RIFF and data sizes are
// patched when Close is called, which is why the target must be seekable.
type Writer struct {
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	bitDepth int
	frames   int
}

// NewWriter starts a WAV file on ws. bitDepth must be 16, 24 or 32.
func NewWriter(ws io.WriteSeeker, sampleRate, bitDepth, channels int) (*Writer, error) {
	if utils.BytesPerSample(bitDepth) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, ErrUnsupportedWavLayout
	}

	return &Writer{
		enc:      wav.NewEncoder(ws, sampleRate, bitDepth, channels, 1),
		bitDepth: bitDepth,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
			Data:           make([]int, 0, 4096),
		},
	}, nil
}

// Frames is the number of frames written so far.
func (w *Writer) Frames() int { return w.frames }

// WritePCM16 appends 16-bit little-endian samples. The writer must have been
// created with a 16-bit depth.
func (w *Writer) WritePCM16(pcm []byte) error {
	if w.bitDepth != 16 {
		return fmt.Errorf("%w: writer is %d-bit", ErrUnsupportedBitDepth, w.bitDepth)
	}
	n := len(pcm) / 2
	w.buf.Data = grow(w.buf.Data, n)
	utils.BytesToInts(w.buf.Data, pcm)
	return w.flush()
}

// WriteSamples appends float32 samples in [-1, 1], scaled to the writer's
// bit depth.
func (w *Writer) WriteSamples(samples []float32) error {
	w.buf.Data = grow(w.buf.Data, len(samples))
	scale := float64(utils.FullScale(w.bitDepth)) - 1
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		w.buf.Data[i] = int(float64(s) * scale)
	}
	return w.flush()
}

// Close finalizes the headers. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.frames == 0 {
		// the encoder emits its header on the first write
		if err := w.enc.Write(&goaudio.IntBuffer{Format: w.buf.Format}); err != nil {
			return fmt.Errorf("wav: writing header: %w", err)
		}
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("wav: finalizing: %w", err)
	}
	return nil
}

func (w *Writer) flush() error {
	if len(w.buf.Data) == 0 {
		return nil
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("wav: writing samples: %w", err)
	}
	w.frames += len(w.buf.Data) / w.buf.Format.NumChannels
	return nil
}

func grow(buf []int, n int) []int {
	if cap(buf) < n {
		return make([]int, n)
	}
	return buf[:n]
}

// WriteWAV16 writes a complete mono 16-bit PCM WAV at sampleRate.
func WriteWAV16(ws io.WriteSeeker, sampleRate int, samples []int16) error {
	w, err := NewWriter(ws, sampleRate, 16, 1)
	if err != nil {
		return err
	}

	pcm := make([]byte, 2*len(samples))
	utils.Int16ToBytes(pcm, samples)
	if err := w.WritePCM16(pcm); err != nil {
		return err
	}
	return w.Close()
}
