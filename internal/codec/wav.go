// SPDX-License-Identifier: MIT
package codec

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"denoiser/internal/signal"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

func decodeWAV(r io.ReadSeeker) (*signal.Signal, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("invalid wav header: %w", err)
		}
		return nil, errors.New("invalid wav header")
	}

	switch dec.WavAudioFormat {
	case wavFormatPCM:
		switch dec.BitDepth {
		case 8, 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: %d-bit pcm", signal.ErrUnsupportedFormat, dec.BitDepth)
		}
	case wavFormatFloat:
		if dec.BitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", signal.ErrUnsupportedFormat, dec.BitDepth)
		}
	default:
		return nil, fmt.Errorf("%w: wav format tag %d", signal.ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	channelCount := int(dec.NumChans)
	if channelCount == 0 || dec.SampleRate == 0 {
		return nil, errors.New("malformed fmt chunk")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading pcm data: %w", err)
	}

	// FullPCMBuffer stops quietly at EOF, so a short payload only shows up
	// against the declared chunk size.
	bytesPerSample := int(dec.BitDepth) / 8
	if declared := dec.PCMSize; declared > 0 && len(buf.Data)*bytesPerSample < declared {
		return nil, fmt.Errorf("truncated data chunk: %d of %d bytes", len(buf.Data)*bytesPerSample, declared)
	}

	return planarFromIntBuffer(buf, int(dec.SampleRate), channelCount, int(dec.BitDepth), dec.WavAudioFormat == wavFormatFloat)
}

func planarFromIntBuffer(buf *audio.IntBuffer, sampleRate, channelCount, bitDepth int, isFloat bool) (*signal.Signal, error) {
	frames := len(buf.Data) / channelCount
	channels := make([][]float64, channelCount)
	for c := range channels {
		channels[c] = make([]float64, frames)
	}

	normalize := sampleNormalizer(bitDepth, isFloat)
	for f := 0; f < frames; f++ {
		base := f * channelCount
		for c := 0; c < channelCount; c++ {
			channels[c][f] = normalize(buf.Data[base+c])
		}
	}
	return signal.New(sampleRate, channels)
}

// sampleNormalizer returns the inverse of the encoder's asymmetric scaling for
// the given depth: negatives divide by 2^(b-1), positives by 2^(b-1)-1.
// 8-bit WAV is unsigned with a 128 midpoint.
func sampleNormalizer(bitDepth int, isFloat bool) func(int) float64 {
	if isFloat {
		return func(v int) float64 {
			return float64(math.Float32frombits(uint32(v)))
		}
	}
	if bitDepth == 8 {
		return func(v int) float64 {
			return float64(v-128) / 128
		}
	}

	neg := math.Ldexp(1, bitDepth-1)
	pos := neg - 1
	return func(v int) float64 {
		if v < 0 {
			return float64(v) / neg
		}
		return float64(v) / pos
	}
}
