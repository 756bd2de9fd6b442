// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{name: "zero", input: 0.0, want: 0},
		{name: "max positive", input: 1.0, want: math.MaxInt16},
		{name: "max negative", input: -1.0, want: math.MinInt16},
		{name: "half positive", input: 0.5, want: 16383},
		{name: "half negative", input: -0.5, want: -16383},
		{name: "small positive", input: 0.001, want: 32},
		{name: "clamp over max", input: 1.5, want: math.MaxInt16},
		{name: "clamp way under min", input: -100.0, want: math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Float32ToInt16(tt.input)
			// Allow for rounding differences of ±1
			diff := math.Abs(float64(int32(got) - int32(tt.want)))
			if diff > 1 {
				t.Errorf("Float32ToInt16(%v) = %v, want %v (diff %v)", tt.input, got, tt.want, diff)
			}
		})
	}
}

func TestFloat32ToInt16Monotonic(t *testing.T) {
	t.Parallel()

	prev := Float32ToInt16(-1.0)
	for f := -0.99; f <= 1.0; f += 0.01 {
		curr := Float32ToInt16(float32(f))
		if curr < prev {
			t.Errorf("Float32ToInt16 not monotonic: f=%v gives %v, previous %v", f, curr, prev)
		}
		prev = curr
	}
}

func TestBytesPerSample(t *testing.T) {
	t.Parallel()

	tests := map[int]int{8: 0, 16: 2, 24: 3, 32: 4, 64: 0}
	for depth, want := range tests {
		if got := BytesPerSample(depth); got != want {
			t.Errorf("BytesPerSample(%d) = %d, want %d", depth, got, want)
		}
	}
}

func TestDecodePCM16(t *testing.T) {
	t.Parallel()

	src := make([]byte, 8)
	binary.LittleEndian.PutUint16(src[0:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(src[2:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(src[4:], 0x8000) // -32768
	binary.LittleEndian.PutUint16(src[6:], uint16(int16(32767)))

	dst := make([]float32, 4)
	n := DecodePCM(dst, src, 16)
	if n != 4 {
		t.Fatalf("DecodePCM() n = %d, want 4", n)
	}

	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestDecodePCM24SignExtension(t *testing.T) {
	t.Parallel()

	// -1 as 24-bit two's complement, then +0.5 of full scale
	src := []byte{0xff, 0xff, 0xff, 0x00, 0x00, 0x40}
	dst := make([]float32, 2)

	if n := DecodePCM(dst, src, 24); n != 2 {
		t.Fatalf("DecodePCM() n = %d, want 2", n)
	}
	if dst[0] >= 0 || dst[0] < -0.001 {
		t.Errorf("dst[0] = %v, want small negative", dst[0])
	}
	if dst[1] != 0.5 {
		t.Errorf("dst[1] = %v, want 0.5", dst[1])
	}
}

func TestDecodePCMIgnoresPartialSample(t *testing.T) {
	t.Parallel()

	dst := make([]float32, 4)
	if n := DecodePCM(dst, []byte{1, 2, 3}, 16); n != 1 {
		t.Errorf("DecodePCM() n = %d, want 1", n)
	}
	if n := DecodePCM(dst, []byte{1, 2, 3}, 12); n != 0 {
		t.Errorf("DecodePCM() with unsupported depth n = %d, want 0", n)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	src := []float32{0, 0.25, -0.25, 0.9, -0.9}

	for _, depth := range []int{16, 24, 32} {
		buf := make([]byte, len(src)*BytesPerSample(depth))
		if n := EncodePCM(buf, src, depth); n != len(buf) {
			t.Fatalf("depth %d: EncodePCM() = %d, want %d", depth, n, len(buf))
		}

		out := make([]float32, len(src))
		DecodePCM(out, buf, depth)

		for i := range src {
			if diff := math.Abs(float64(out[i] - src[i])); diff > 1.0/16384 {
				t.Errorf("depth %d: sample %d = %v, want ≈%v", depth, i, out[i], src[i])
			}
		}
	}
}

func TestEncodePCMStopsAtCapacity(t *testing.T) {
	t.Parallel()

	dst := make([]byte, 5)
	n := EncodePCM(dst, []float32{0.1, 0.2, 0.3}, 16)
	if n != 4 {
		t.Errorf("EncodePCM() = %d, want 4", n)
	}
}

func TestBytesToInts(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 6)
	Int16ToBytes(raw, []int16{-2, 0, 300})

	dst := make([]int, 3)
	if n := BytesToInts(dst, raw); n != 3 {
		t.Fatalf("BytesToInts() = %d, want 3", n)
	}
	if dst[0] != -2 || dst[1] != 0 || dst[2] != 300 {
		t.Errorf("BytesToInts() = %v, want [-2 0 300]", dst)
	}
}

func TestEncodePCM16_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	src := make([]float32, 1024)
	dst := make([]byte, 2048)

	allocs := testing.AllocsPerRun(100, func() {
		EncodePCM(dst, src, 16)
	})
	if allocs > 0 {
		t.Errorf("EncodePCM allocated %v times, want 0", allocs)
	}
}

func BenchmarkDecodePCM16(b *testing.B) {
	src := make([]byte, 4096)
	dst := make([]float32, 2048)

	b.ReportAllocs()
	for b.Loop() {
		DecodePCM(dst, src, 16)
	}
}

func TestIntsToFloat32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bitDepth int
		in       int
		want     float32
	}{
		{8, -128, -1},
		{16, 16384, 0.5},
		{16, -32768, -1},
		{24, -4194304, -0.5},
		{32, 1073741824, 0.5},
	}

	for _, tt := range tests {
		dst := make([]float32, 1)
		if n := IntsToFloat32(dst, []int{tt.in}, tt.bitDepth); n != 1 {
			t.Fatalf("IntsToFloat32(%d-bit) n = %d, want 1", tt.bitDepth, n)
		}
		if dst[0] != tt.want {
			t.Errorf("IntsToFloat32(%d, %d-bit) = %v, want %v", tt.in, tt.bitDepth, dst[0], tt.want)
		}
	}

	if n := IntsToFloat32(make([]float32, 1), []int{1}, 12); n != 0 {
		t.Errorf("unsupported depth n = %d, want 0", n)
	}
}
