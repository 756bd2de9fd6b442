// SPDX-License-Identifier: EPL-2.0

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/ik5/wakefront/capture"
)

func statsFields(s capture.Stats) logrus.Fields {
	return logrus.Fields{
		"blocks":         s.Blocks,
		"streamed_bytes": s.StreamedBytes,
		"flushes":        s.Flushes,
		"flushed_bytes":  s.FlushedBytes,
		"dropped_blocks": s.DroppedBlocks,
		"truncated":      s.TruncatedSamples,
		"sink_errors":    s.SinkErrors,
		"triggers":       s.Triggers,
	}
}
