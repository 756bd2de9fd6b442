// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ik5/wakefront/formats/wav"
)

// Example_roundTrip writes a short 16-bit WAV file and reads it back.
func Example_roundTrip() {
	dir, err := os.MkdirTemp("", "wav-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	f, err := os.Create(filepath.Join(dir, "tone.wav"))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer f.Close()

	if err := wav.WriteWAV16(f, 16000, []int16{0, 8192, 16384, 8192, 0}); err != nil {
		fmt.Printf("Write error: %v\n", err)
		return
	}
	_, _ = f.Seek(0, io.SeekStart)

	source, err := wav.Decoder{}.Decode(f)
	if err != nil {
		fmt.Printf("Decode error: %v\n", err)
		return
	}

	buf := make([]float32, 10)
	n, _ := source.ReadSamples(buf)

	fmt.Printf("Sample rate: %d Hz\n", source.SampleRate())
	fmt.Printf("Channels: %d\n", source.Channels())
	fmt.Printf("Samples: %.2f\n", buf[:n])
	// Output:
	// Sample rate: 16000 Hz
	// Channels: 1
	// Samples: [0.00 0.25 0.50 0.25 0.00]
}
