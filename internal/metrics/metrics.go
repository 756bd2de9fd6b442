// SPDX-License-Identifier: EPL-2.0

// Package metrics exposes capture events as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ik5/wakefront/capture"
)

const namespace = "wakefront"

// Metrics implements capture.Observer.
type Metrics struct {
	// Block path
	BlocksProcessed  prometheus.Counter
	RawBytes         prometheus.Counter
	ResampledBytes   prometheus.Counter
	StreamedBytes    prometheus.Counter
	BufferedBytes    prometheus.Counter
	TruncatedSamples prometheus.Counter

	// Wake buffer
	Flushes       prometheus.Counter
	FlushedBytes  prometheus.Counter
	FlushSize     prometheus.Histogram
	OverflowDrops prometheus.Counter
	Fill          prometheus.Gauge
	Mode          prometheus.Gauge

	// Control and collaborators
	Triggers     prometheus.Counter
	SinkErrors   *prometheus.CounterVec
	SourceErrors *prometheus.CounterVec
}

var _ capture.Observer = (*Metrics)(nil)

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		BlocksProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_processed_total",
			Help:      "Total number of raw frames delivered by the audio source",
		}),
		RawBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raw_bytes_total",
			Help:      "Total raw PCM bytes received from the audio source",
		}),
		ResampledBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resampled_bytes_total",
			Help:      "Total mono 16-bit bytes produced by the resampler",
		}),
		StreamedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streamed_bytes_total",
			Help:      "Total bytes accepted by the recognizer stream entry",
		}),
		BufferedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffered_bytes_total",
			Help:      "Total bytes stored in the wake buffer",
		}),
		TruncatedSamples: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncated_samples_total",
			Help:      "Total output samples dropped because a block exceeded its bound",
		}),

		Flushes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Total number of wake buffer flushes",
		}),
		FlushedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_bytes_total",
			Help:      "Total bytes delivered as recorded utterances",
		}),
		FlushSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_size_bytes",
			Help:      "Size of flushed utterances",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 10), // 1KB to 512KB
		}),
		OverflowDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overflow_drops_total",
			Help:      "Total number of overflowing blocks discarded after a flush",
		}),
		Fill: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wake_buffer_fill_bytes",
			Help:      "Current wake buffer fill level",
		}),
		Mode: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffering",
			Help:      "1 while the controller buffers an utterance, 0 while streaming",
		}),

		Triggers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Total number of recognition triggers",
		}),
		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Total recognition sink failures",
		}, []string{"op"}),
		SourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Total audio source control failures",
		}, []string{"op"}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) BlockProcessed(raw, out int) {
	m.BlocksProcessed.Inc()
	m.RawBytes.Add(float64(raw))
	m.ResampledBytes.Add(float64(out))
}

func (m *Metrics) Streamed(n int) { m.StreamedBytes.Add(float64(n)) }

func (m *Metrics) Buffered(n, fill int) {
	m.BufferedBytes.Add(float64(n))
	m.Fill.Set(float64(fill))
}

func (m *Metrics) Flushed(n int) {
	m.Flushes.Inc()
	m.FlushedBytes.Add(float64(n))
	m.FlushSize.Observe(float64(n))
	m.Fill.Set(0)
}

func (m *Metrics) OverflowDropped(int) { m.OverflowDrops.Inc() }

func (m *Metrics) Truncated(n uint64) { m.TruncatedSamples.Add(float64(n)) }

func (m *Metrics) SinkError(op string) { m.SinkErrors.WithLabelValues(op).Inc() }

func (m *Metrics) SourceError(op string) { m.SourceErrors.WithLabelValues(op).Inc() }

func (m *Metrics) Triggered() {
	m.Triggers.Inc()
	m.Fill.Set(0)
}

func (m *Metrics) ModeChanged(mode capture.Mode) {
	if mode == capture.ModeBuffering {
		m.Mode.Set(1)
		return
	}
	m.Mode.Set(0)
}
