// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF (Audio Interchange File Format) files.
//
// It wraps github.com/go-audio/aiff and yields an audio.Source of float32
// samples in [-1.0, 1.0]. Sample widths of 8, 16, 24 and 32 bits are
// normalized by their full scale. Inputs that are not seekable are read into
// memory first, since the underlying decoder walks chunks with Seek.
package aiff
