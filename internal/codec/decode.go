// SPDX-License-Identifier: MIT
/*
Package codec turns encoded clips into signals and back.

Decoding accepts RIFF/WAVE (integer PCM and IEEE float) and Ogg Vorbis and
always yields a fully materialized signal.Signal. Encoding always produces a
canonical 16-bit PCM WAV with the 44-byte header and nothing else.
*/
package codec

import (
	"bytes"
	"fmt"
	"io"

	"denoiser/internal/signal"
)

// Format identifies a container detected from the leading bytes of a clip.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatOgg
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return signal.ContainerWAV
	case FormatOgg:
		return signal.ContainerOgg
	default:
		return "unknown"
	}
}

// Sniff reports the container of data by its magic bytes.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return FormatOgg
	default:
		return FormatUnknown
	}
}

// Decode parses an encoded clip. Every failure wraps signal.ErrDecode; an
// unrecognized container additionally wraps signal.ErrUnsupportedFormat.
// data is not retained.
func Decode(data []byte) (*signal.Signal, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", signal.ErrDecode)
	}

	var (
		sig *signal.Signal
		err error
	)
	switch Sniff(data) {
	case FormatWAV:
		sig, err = decodeWAV(bytes.NewReader(data))
	case FormatOgg:
		sig, err = decodeOgg(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %w", signal.ErrDecode, signal.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", signal.ErrDecode, err)
	}
	if sig.FrameCount() == 0 {
		return nil, fmt.Errorf("%w: no audio frames", signal.ErrDecode)
	}
	return sig, nil
}

// DecodeReader reads r to the end and decodes the result.
func DecodeReader(r io.Reader) (*signal.Signal, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading input: %w", signal.ErrDecode, err)
	}
	return Decode(data)
}
