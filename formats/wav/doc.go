// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE files of integer PCM.
//
// Both directions go through github.com/go-audio/wav. The Decoder accepts
// 16, 24 and 32-bit PCM in any channel layout and yields an audio.Source of
// float32 samples in [-1.0, 1.0]. The Writer streams samples into a file and
// finalizes the header on Close:
//
//	f, _ := os.Create("utterance.wav")
//	w, err := wav.NewWriter(f, 16000, 16, 1)
//	err = w.WritePCM16(block)
//	err = w.Close()
//
// The Writer needs an io.WriteSeeker since sizes are patched at the end.
package wav
