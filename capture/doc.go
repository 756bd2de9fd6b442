// SPDX-License-Identifier: EPL-2.0

// Package capture is the audio front-end of a voice-triggered device.
//
// A StreamSource delivers raw interleaved PCM frames to the Controller, which
// resamples each one to a mono 16-bit block at the recognizer's rate and
// routes it by mode:
//
//   - ModeStreaming: the block goes to RecognitionSink.RecordStream.
//   - ModeBuffering: the block is appended to the wake buffer. When the next
//     block would not fit, the sink gets Recognize followed by RecordBlock
//     with the stored bytes, the buffer is emptied and streaming resumes.
//     The overflowing block is dropped unless the OverflowForward policy is
//     configured.
//
// Trigger switches to ModeBuffering. A typical setup:
//
//	ctl, err := capture.New(capture.DefaultConfig(), src, sink,
//		capture.WithLogger(log))
//	if err := ctl.Init(ctx); err != nil {
//	    return err
//	}
//	if err := ctl.Start(); err != nil {
//	    return err
//	}
//	// later, on a button press or wake word
//	ctl.Trigger()
//
// Control calls may come from any goroutine. Frames must arrive in capture
// order since the resampler carries phase between them.
package capture
