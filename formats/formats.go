// SPDX-License-Identifier: EPL-2.0

// Package formats wires the file decoders into an audio.Registry and opens
// audio files by extension.
package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/wakefront/audio"
	"github.com/ik5/wakefront/formats/aiff"
	"github.com/ik5/wakefront/formats/mp3"
	"github.com/ik5/wakefront/formats/vorbis"
	"github.com/ik5/wakefront/formats/wav"
)

var ErrUnknownFormat = errors.New("no decoder registered for format")

// NewRegistry returns a registry holding every decoder in this module,
// keyed by the usual file extensions.
func NewRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("wave", wav.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	return r
}

// fileSource closes the backing file together with the decoded source.
type fileSource struct {
	audio.Source
	f *os.File
}

func (s *fileSource) Close() error {
	return errors.Join(s.Source.Close(), s.f.Close())
}

// Duration forwards to the decoder when it knows the stream length.
func (s *fileSource) Duration() time.Duration {
	if d, ok := s.Source.(interface{ Duration() time.Duration }); ok {
		return d.Duration()
	}
	return 0
}

// Open decodes the file at path with the decoder registered in reg for its
// extension. A nil reg uses NewRegistry. Closing the returned Source closes
// the file.
func Open(path string, reg *audio.Registry) (audio.Source, error) {
	if reg == nil {
		reg = NewRegistry()
	}

	ext := filepath.Ext(path)
	dec, ok := reg.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return &fileSource{Source: src, f: f}, nil
}
