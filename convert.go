// SPDX-License-Identifier: EPL-2.0

package wakefront

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/wakefront/audio"
	"github.com/ik5/wakefront/capture"
	"github.com/ik5/wakefront/formats/wav"
	"github.com/ik5/wakefront/utils"
)

// ConvertStats summarizes one conversion.
type ConvertStats struct {
	Frames    int    // raw frames of MaxFrameBytes or less
	RawBytes  int    // bytes of raw device PCM
	Bytes     int    // bytes of 16-bit mono output
	Truncated uint64 // output samples dropped by the block bound
}

// Convert replays src the way the device would hear it. src is conformed to
// the raw layout the codec delivers (cfg.SourceRate, cfg.Channels,
// cfg.BitDepth), cut into frames of cfg.MaxFrameBytes and resampled frame by
// frame exactly as the capture controller does. Every non-empty block is
// passed to emit, which must not retain it.
//
// The trailing look-ahead samples the interpolator holds back are not
// flushed, matching what a live device delivers.
func Convert(src audio.Source, cfg capture.Config, emit func(block []byte) error) (ConvertStats, error) {
	var stats ConvertStats

	if err := cfg.Validate(); err != nil {
		return stats, err
	}

	rs, err := capture.NewFrameResampler(cfg.SourceRate, cfg.TargetRate, cfg.Channels,
		cfg.BitDepth, cfg.MaxFrameBytes, cfg.MaxOutputSamples)
	if err != nil {
		return stats, err
	}

	device, err := audio.NewChannelMapper(audio.NewResampler(src, cfg.SourceRate), cfg.Channels)
	if err != nil {
		return stats, fmt.Errorf("conforming source: %w", err)
	}

	width := utils.BytesPerSample(cfg.BitDepth)
	frameSamples := cfg.MaxFrameBytes / (width * cfg.Channels) * cfg.Channels
	samples := make([]float32, frameSamples)
	raw := make([]byte, frameSamples*width)

	for {
		n, rerr := readFull(device, samples)
		if n > 0 {
			m := utils.EncodePCM(raw, samples[:n], cfg.BitDepth)
			stats.Frames++
			stats.RawBytes += m

			block := rs.Resample(raw[:m])
			if len(block) > 0 {
				stats.Bytes += len(block)
				if err := emit(block); err != nil {
					return stats, err
				}
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return stats, fmt.Errorf("reading source: %w", rerr)
		}
	}

	stats.Truncated = rs.Truncated()
	return stats, nil
}

// ConvertToWAV runs Convert and writes the blocks as a 16-bit mono WAV file
// at cfg.TargetRate.
func ConvertToWAV(src audio.Source, cfg capture.Config, ws io.WriteSeeker) (ConvertStats, error) {
	w, err := wav.NewWriter(ws, cfg.TargetRate, 16, 1)
	if err != nil {
		return ConvertStats{}, err
	}

	stats, err := Convert(src, cfg, w.WritePCM16)
	if err != nil {
		return stats, err
	}
	return stats, w.Close()
}

func readFull(src audio.Source, dst []float32) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := src.ReadSamples(dst[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrNoProgress
		}
	}
	return total, nil
}
