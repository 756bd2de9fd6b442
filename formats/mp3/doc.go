// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1 Layer 3 audio with github.com/hajimehoshi/go-mp3.
//
// The decoder always yields interleaved stereo, even for mono files, at the
// file's sample rate. Samples are float32 in [-1.0, 1.0].
package mp3
