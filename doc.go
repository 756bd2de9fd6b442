// SPDX-License-Identifier: EPL-2.0

// Package wakefront is the audio front-end of a voice-triggered device.
//
// Raw PCM from a codec (or a pipe, or a file standing in for one) is
// resampled to the recognizer rate, downmixed to mono and routed by a
// capture.Controller: streamed to the recognizer block by block, or, after a
// trigger, collected in a wake buffer and delivered as one utterance.
//
// # Building a device
//
// Build assembles the stream source, the recognition sink, the controller
// and its metrics from a device profile:
//
//	cfg, _ := config.Load("device.yaml")
//	dev, _ := wakefront.Build(ctx, cfg)
//	defer dev.Close()
//
//	_ = dev.Controller.Init(ctx)
//	_ = dev.Controller.Start()
//	_ = dev.Controller.Trigger()
//
// # Offline conversion
//
// Convert pushes any decoded file through the same conversion the device
// applies to live audio, which makes the recognizer input reproducible:
//
//	src, _ := formats.Open("hello.mp3", nil)
//	f, _ := os.Create("hello-16k.wav")
//	stats, _ := wakefront.ConvertToWAV(src, capture.DefaultConfig(), f)
//
// # Packages
//
//   - audio: interpolation, resampling, downmixing and the decoder registry
//   - formats: WAV, AIFF, MP3 and Ogg Vorbis decoders
//   - capture: the controller, the wake buffer and the frame resampler
//   - source/pipe, source/file: stream sources
//   - sink/wavsink, sink/wssink: recognition sinks
package wakefront
