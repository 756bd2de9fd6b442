// SPDX-License-Identifier: EPL-2.0

package capture

// BlockHandler receives one raw frame of interleaved little-endian PCM. The
// slice is only valid for the duration of the call.
type BlockHandler func(frame []byte)

// StreamSource is the audio input that drives capture. It must deliver
// frames to the registered handler in capture order, one call at a time.
type StreamSource interface {
	Configure(p Params) error
	Start() error
	Stop() error
	RegisterCallback(h BlockHandler)
}

// RunningReporter is implemented by sources that can stop on their own, for
// example at the end of their input.
type RunningReporter interface {
	Running() bool
}

// RecognitionSink consumes captured audio: mono 16-bit little-endian PCM at
// the target rate. Slices passed to it are only valid during the call.
type RecognitionSink interface {
	// RecordStream accepts live samples while streaming.
	RecordStream(samples []byte) (int, error)
	// Recognize announces that a recorded utterance follows.
	Recognize(tag Tag) error
	// RecordBlock delivers the wake buffer contents as one utterance.
	RecordBlock(buf []byte) (int, error)
}

// Observer is notified of capture events, typically to export metrics.
// Calls come from the block goroutine and from control calls, and must not
// block.
type Observer interface {
	BlockProcessed(rawBytes, outBytes int)
	Streamed(n int)
	Buffered(n, fill int)
	Flushed(n int)
	OverflowDropped(n int)
	Truncated(samples uint64)
	SinkError(op string)
	SourceError(op string)
	Triggered()
	ModeChanged(m Mode)
}

type nopObserver struct{}

func (nopObserver) BlockProcessed(int, int) {}
func (nopObserver) Streamed(int)            {}
func (nopObserver) Buffered(int, int)       {}
func (nopObserver) Flushed(int)             {}
func (nopObserver) OverflowDropped(int)     {}
func (nopObserver) Truncated(uint64)        {}
func (nopObserver) SinkError(string)        {}
func (nopObserver) SourceError(string)      {}
func (nopObserver) Triggered()              {}
func (nopObserver) ModeChanged(Mode)        {}
