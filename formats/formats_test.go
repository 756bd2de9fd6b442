// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ik5/wakefront/formats/wav"
)

func writeWAV(t *testing.T, name string, samples []int16) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := wav.WriteWAV16(f, 16000, samples); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	want := []string{"aif", "aiff", "mp3", "oga", "ogg", "wav", "wave"}
	if got := NewRegistry().Formats(); !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, "Prompt.WAV", []int16{0, 16384, -16384})

	src, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if src.SampleRate() != 16000 || src.Channels() != 1 {
		t.Errorf("format = %d Hz x %d, want 16000 Hz x 1", src.SampleRate(), src.Channels())
	}

	buf := make([]float32, 8)
	n, err := src.ReadSamples(buf)
	if n != 3 || err != io.EOF {
		t.Errorf("ReadSamples() = (%d, %v), want (3, io.EOF)", n, err)
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.wav")
	if err := os.WriteFile(bogus, []byte("not audio"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(filepath.Join(dir, "x.flac"), nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("flac error = %v, want ErrUnknownFormat", err)
	}
	if _, err := Open(filepath.Join(dir, "missing.wav"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
	if _, err := Open(bogus, nil); !errors.Is(err, wav.ErrNotWavFile) {
		t.Errorf("bogus file error = %v, want wav.ErrNotWavFile", err)
	}
}
