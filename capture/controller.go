// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats is a snapshot of the controller's counters.
type Stats struct {
	Blocks           uint64
	RawBytes         uint64
	StreamedBytes    uint64
	BufferedBytes    uint64
	Flushes          uint64
	FlushedBytes     uint64
	DroppedBlocks    uint64
	DroppedBytes     uint64
	TruncatedSamples uint64
	SinkErrors       uint64
	Triggers         uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) { c.log = l }
}

// WithObserver registers an Observer for capture events.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.obs = o
		}
	}
}

// Controller routes resampled audio from a StreamSource to a
// RecognitionSink. While streaming every block goes straight to the sink;
// after Trigger blocks are collected in the wake buffer until the next one
// would not fit, at which point the buffer is flushed as one utterance and
// streaming resumes.
type Controller struct {
	cfg  Config
	src  StreamSource
	sink RecognitionSink
	log  logrus.FieldLogger
	obs  Observer

	ctl  sync.Mutex // serializes control operations
	proc sync.Mutex // serializes the block path

	mu        sync.Mutex // guards the fields below
	inited    bool
	running   bool
	mode      Mode
	wake      *WakeBuffer
	rs        *FrameResampler
	stats     Stats
	truncSeen uint64
}

// New validates cfg and binds the collaborators. Nothing is allocated or
// started until Init.
func New(cfg Config, src StreamSource, sink RecognitionSink, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil || sink == nil {
		return nil, fmt.Errorf("%w: stream source and recognition sink are required", ErrInvalidConfig)
	}

	c := &Controller{
		cfg:  cfg,
		src:  src,
		sink: sink,
		log:  logrus.StandardLogger(),
		obs:  nopObserver{},
		mode: ModeStreaming,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "capture")

	return c, nil
}

// Config returns the configuration the controller was built with.
func (c *Controller) Config() Config { return c.cfg }

// Init allocates the wake buffer and resampler, configures the source,
// registers the block handler and runs the optional warm-up cycle. Calling
// Init again after it succeeded does nothing.
func (c *Controller) Init(ctx context.Context) error {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	if c.isInited() {
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	rs, err := NewFrameResampler(c.cfg.SourceRate, c.cfg.TargetRate, c.cfg.Channels,
		c.cfg.BitDepth, c.cfg.MaxFrameBytes, c.cfg.MaxOutputSamples)
	if err != nil {
		return err
	}

	c.proc.Lock()
	c.mu.Lock()
	c.rs = rs
	c.wake = NewWakeBuffer(c.cfg.WakeBufferBytes)
	c.mode = ModeStreaming
	c.mu.Unlock()
	c.proc.Unlock()

	if err := c.src.Configure(c.cfg.Params()); err != nil {
		c.obs.SourceError("configure")
		return fmt.Errorf("configuring source: %w", errors.Join(ErrHardware, err))
	}
	c.src.RegisterCallback(c.handleBlock)

	if c.cfg.WarmUp > 0 {
		if err := c.warmUp(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.inited = true
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"source_rate": c.cfg.SourceRate,
		"target_rate": c.cfg.TargetRate,
		"channels":    c.cfg.Channels,
		"bit_depth":   c.cfg.BitDepth,
		"wake_bytes":  c.cfg.WakeBufferBytes,
		"max_samples": rs.MaxOutputSamples(),
		"overflow":    c.cfg.Overflow,
	}).Info("capture initialized")

	return nil
}

// warmUp cycles the source once so the codec settles before real use.
func (c *Controller) warmUp(ctx context.Context) error {
	c.log.WithField("duration", c.cfg.WarmUp).Debug("warming up audio source")

	if err := c.src.Start(); err != nil {
		c.obs.SourceError("start")
		return fmt.Errorf("warm-up start: %w", errors.Join(ErrHardware, err))
	}

	t := time.NewTimer(c.cfg.WarmUp)
	defer t.Stop()

	var waitErr error
	select {
	case <-t.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if err := c.src.Stop(); err != nil {
		c.obs.SourceError("stop")
		return errors.Join(waitErr, fmt.Errorf("warm-up stop: %w", errors.Join(ErrHardware, err)))
	}
	return waitErr
}

// Start asks the source to run. It does nothing when the source is already
// running.
func (c *Controller) Start() error {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	if !c.isInited() {
		return ErrNotInitialized
	}
	return c.startLocked()
}

func (c *Controller) startLocked() error {
	if c.Running() {
		c.log.Debug("audio source already running")
		return nil
	}

	if err := c.src.Start(); err != nil {
		c.obs.SourceError("start")
		c.log.WithError(err).Error("failed to start audio source")
		return fmt.Errorf("starting source: %w", errors.Join(ErrHardware, err))
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.log.Info("audio source started")
	return nil
}

// Stop asks the source to halt. The source is asked even when the
// controller believes it is already stopped.
func (c *Controller) Stop() error {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	if !c.isInited() {
		return ErrNotInitialized
	}

	if err := c.src.Stop(); err != nil {
		c.obs.SourceError("stop")
		c.log.WithError(err).Error("failed to stop audio source")
		return fmt.Errorf("stopping source: %w", errors.Join(ErrHardware, err))
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.log.Info("audio source stopped")
	return nil
}

// Trigger arms buffering mode with an empty wake buffer and starts the
// source if it is not running. Triggering again before a flush only empties
// the buffer. A start failure is logged and does not undo the transition.
func (c *Controller) Trigger() error {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	if !c.isInited() {
		return ErrNotInitialized
	}

	c.mu.Lock()
	prev := c.mode
	c.mode = ModeBuffering
	c.wake.Reset()
	c.stats.Triggers++
	c.mu.Unlock()

	c.obs.Triggered()
	if prev != ModeBuffering {
		c.obs.ModeChanged(ModeBuffering)
	}
	c.log.WithField("tag", c.cfg.Tag).Info("recognition triggered")

	if err := c.startLocked(); err != nil {
		c.log.WithError(err).Warn("trigger could not start audio source, buffering stays armed")
	}
	return nil
}

// Reset is reserved. After Init it succeeds without any effect.
func (c *Controller) Reset() error {
	if !c.isInited() {
		return ErrNotInitialized
	}
	return nil
}

// Mode reports the current routing mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Fill reports how many bytes the wake buffer holds.
func (c *Controller) Fill() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wake == nil {
		return 0
	}
	return c.wake.Len()
}

// Running reports whether the controller last started the source
// successfully and has not stopped it since. A source implementing
// RunningReporter is asked as well, so one that ended on its own reads as
// stopped.
func (c *Controller) Running() bool {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	if r, ok := c.src.(RunningReporter); ok && running {
		return r.Running()
	}
	return running
}

// Stats returns a snapshot of the counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Controller) isInited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inited
}

// handleBlock is the per-frame callback registered with the source.
func (c *Controller) handleBlock(frame []byte) {
	c.proc.Lock()
	defer c.proc.Unlock()

	if c.rs == nil {
		return
	}

	block := c.rs.Resample(frame)
	c.obs.BlockProcessed(len(frame), len(block))
	c.noteTruncation()

	c.mu.Lock()
	c.stats.Blocks++
	c.stats.RawBytes += uint64(len(frame))

	if len(block) == 0 {
		c.mu.Unlock()
		return
	}

	if c.mode == ModeStreaming {
		c.stats.StreamedBytes += uint64(len(block))
		c.mu.Unlock()

		c.recordStream(block)
		return
	}

	if c.wake.Append(block) {
		c.stats.BufferedBytes += uint64(len(block))
		fill := c.wake.Len()
		c.mu.Unlock()

		c.obs.Buffered(len(block), fill)
		return
	}

	// Overflow. The stored bytes are only ever written on this goroutine,
	// which still holds proc, so they stay intact after mu is released.
	utterance := c.wake.Bytes()
	c.wake.Reset()
	c.mode = ModeStreaming
	c.stats.Flushes++
	c.stats.FlushedBytes += uint64(len(utterance))
	forward := c.cfg.Overflow == OverflowForward
	if forward {
		c.stats.StreamedBytes += uint64(len(block))
	} else {
		c.stats.DroppedBlocks++
		c.stats.DroppedBytes += uint64(len(block))
	}
	c.mu.Unlock()

	c.obs.ModeChanged(ModeStreaming)
	c.flush(utterance)

	if forward {
		c.recordStream(block)
		return
	}
	c.obs.OverflowDropped(len(block))
	c.log.WithField("bytes", len(block)).Debug("wake buffer full, overflowing block dropped")
}

func (c *Controller) flush(utterance []byte) {
	if err := c.sink.Recognize(c.cfg.Tag); err != nil {
		c.sinkError("recognize", err)
	}
	if _, err := c.sink.RecordBlock(utterance); err != nil {
		c.sinkError("record_block", err)
	}

	c.obs.Flushed(len(utterance))
	c.log.WithFields(logrus.Fields{
		"bytes": len(utterance),
		"tag":   c.cfg.Tag,
	}).Info("wake buffer flushed")
}

func (c *Controller) recordStream(block []byte) {
	if _, err := c.sink.RecordStream(block); err != nil {
		c.sinkError("record_stream", err)
		return
	}
	c.obs.Streamed(len(block))
}

func (c *Controller) sinkError(op string, err error) {
	c.mu.Lock()
	c.stats.SinkErrors++
	c.mu.Unlock()

	c.obs.SinkError(op)
	c.log.WithError(err).WithField("op", op).Error("recognition sink failed")
}

// noteTruncation logs the first truncation at warn level and later ones at
// debug level. Called with proc held.
func (c *Controller) noteTruncation() {
	total := c.rs.Truncated()
	if total == c.truncSeen {
		return
	}
	delta := total - c.truncSeen
	first := c.truncSeen == 0
	c.truncSeen = total

	c.mu.Lock()
	c.stats.TruncatedSamples = total
	c.mu.Unlock()

	c.obs.Truncated(delta)
	entry := c.log.WithFields(logrus.Fields{"samples": delta, "total": total})
	if first {
		entry.Warn("resampled block exceeded its bound, samples truncated")
		return
	}
	entry.Debug("resampled block truncated")
}
