// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

// BytesPerSample returns the width in bytes of one little-endian PCM sample
// with the given bit depth, or 0 when the depth is not supported.
func BytesPerSample(bitDepth int) int {
	switch bitDepth {
	case 16:
		return 2
	case 24:
		return 3
	case 32:
		return 4
	}
	return 0
}

// Float32ToInt16 clamps x to [-1, 1] and scales it to a 16-bit sample.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

// DecodePCM converts little-endian signed PCM from src into float32 samples
// in [-1, 1]. It returns the number of samples written, which is bounded by
// len(dst). A trailing partial sample in src is ignored.
func DecodePCM(dst []float32, src []byte, bitDepth int) int {
	width := BytesPerSample(bitDepth)
	if width == 0 {
		return 0
	}
	n := min(len(src)/width, len(dst))

	switch bitDepth {
	case 16:
		for i := range n {
			v := int16(binary.LittleEndian.Uint16(src[2*i:]))
			dst[i] = float32(v) / 32768.0
		}
	case 24:
		for i := range n {
			b := src[3*i : 3*i+3]
			// shift into the top of an int32 so the sign bit lands in place
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			dst[i] = float32(v) / 8388608.0
		}
	case 32:
		for i := range n {
			v := int32(binary.LittleEndian.Uint32(src[4*i:]))
			dst[i] = float32(float64(v) / 2147483648.0)
		}
	}

	return n
}

// EncodePCM writes src as little-endian signed PCM with the given bit depth
// into dst and returns the number of bytes written. Samples are clamped to
// [-1, 1]; conversion stops when dst has no room for another whole sample.
func EncodePCM(dst []byte, src []float32, bitDepth int) int {
	width := BytesPerSample(bitDepth)
	if width == 0 {
		return 0
	}
	n := min(len(dst)/width, len(src))

	switch bitDepth {
	case 16:
		for i := range n {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(Float32ToInt16(src[i])))
		}
	case 24:
		for i := range n {
			v := int32(clamp(src[i]) * 8388607.0)
			dst[3*i] = byte(v)
			dst[3*i+1] = byte(v >> 8)
			dst[3*i+2] = byte(v >> 16)
		}
	case 32:
		for i := range n {
			v := int32(float64(clamp(src[i])) * 2147483647.0)
			binary.LittleEndian.PutUint32(dst[4*i:], uint32(v))
		}
	}

	return n * width
}

// Int16ToBytes writes samples as 16-bit little-endian PCM into dst, which must
// hold at least 2*len(samples) bytes.
func Int16ToBytes(dst []byte, samples []int16) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(s))
	}
}

// BytesToInts decodes 16-bit little-endian PCM into dst as plain ints, the
// representation go-audio buffers use. It returns the number of samples.
func BytesToInts(dst []int, src []byte) int {
	n := min(len(src)/2, len(dst))
	for i := range n {
		dst[i] = int(int16(binary.LittleEndian.Uint16(src[2*i:])))
	}
	return n
}

func clamp(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// FullScale returns the magnitude of the most negative signed sample at the
// given bit depth (128 for 8-bit, 32768 for 16-bit), or 0 when unsupported.
func FullScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 16:
		return 32768.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	}
	return 0
}

// IntsToFloat32 normalizes go-audio style int samples of the given bit depth
// into dst and returns the number converted.
func IntsToFloat32(dst []float32, src []int, bitDepth int) int {
	scale := FullScale(bitDepth)
	if scale == 0 {
		return 0
	}
	n := min(len(src), len(dst))
	for i := range n {
		dst[i] = float32(float64(src[i]) / float64(scale))
	}
	return n
}
