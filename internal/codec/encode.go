// SPDX-License-Identifier: MIT
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"denoiser/internal/signal"
)

// Canonical PCM WAV layout written by Encode.
const (
	HeaderSize     = 44
	BitsPerSample  = 16
	bytesPerSample = BitsPerSample / 8
	formatPCM      = 1
	fmtChunkSize   = 16
)

/*
Canonical WAV header (little-endian), 44 bytes:

	offset  size  field
	0       4     "RIFF"
	4       4     36 + data length
	8       4     "WAVE"
	12      4     "fmt "
	16      4     16
	20      2     1 (PCM)
	22      2     channel count
	24      4     sample rate
	28      4     byte rate = rate * channels * 2
	32      2     block align = channels * 2
	34      2     16
	36      4     "data"
	40      4     data length
	44      ...   interleaved int16 frames
*/

// Encode serializes the signal as a canonical 16-bit PCM WAV clip.
func Encode(sig *signal.Signal) (*signal.Clip, error) {
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", signal.ErrEncode, err)
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize + sig.FrameCount()*sig.ChannelCount()*bytesPerSample)
	if err := EncodeTo(&buf, sig); err != nil {
		return nil, err
	}
	return &signal.Clip{Data: buf.Bytes(), Container: signal.ContainerWAV}, nil
}

// EncodeTo streams the same bytes Encode produces into w.
func EncodeTo(w io.Writer, sig *signal.Signal) error {
	if err := sig.Validate(); err != nil {
		return fmt.Errorf("%w: %w", signal.ErrEncode, err)
	}

	channelCount := sig.ChannelCount()
	frames := sig.FrameCount()
	dataLen := frames * channelCount * bytesPerSample
	if uint64(dataLen)+HeaderSize-8 > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes of audio do not fit a WAV container", signal.ErrEncode, dataLen)
	}

	if _, err := w.Write(wavHeader(sig.SampleRate, channelCount, dataLen)); err != nil {
		return fmt.Errorf("%w: writing header: %w", signal.ErrEncode, err)
	}

	// Frames are written in blocks to keep the scratch buffer bounded.
	const blockFrames = 4096
	block := make([]byte, blockFrames*channelCount*bytesPerSample)
	for start := 0; start < frames; start += blockFrames {
		end := min(start+blockFrames, frames)
		n := 0
		for f := start; f < end; f++ {
			for c := 0; c < channelCount; c++ {
				binary.LittleEndian.PutUint16(block[n:], uint16(Quantize(sig.Channels[c][f])))
				n += bytesPerSample
			}
		}
		if _, err := w.Write(block[:n]); err != nil {
			return fmt.Errorf("%w: writing samples: %w", signal.ErrEncode, err)
		}
	}
	return nil
}

// Quantize converts one float sample to 16-bit PCM: clamp to [-1, 1], scale
// negatives by 32768 and the rest by 32767, round to nearest.
func Quantize(x float64) int16 {
	if math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	if x < 0 {
		return int16(math.Round(x * 32768))
	}
	return int16(math.Round(x * 32767))
}

func wavHeader(sampleRate, channelCount, dataLen int) []byte {
	h := make([]byte, HeaderSize)
	le := binary.LittleEndian

	copy(h[0:4], "RIFF")
	le.PutUint32(h[4:8], uint32(36+dataLen))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	le.PutUint32(h[16:20], fmtChunkSize)
	le.PutUint16(h[20:22], formatPCM)
	le.PutUint16(h[22:24], uint16(channelCount))
	le.PutUint32(h[24:28], uint32(sampleRate))
	le.PutUint32(h[28:32], uint32(sampleRate*channelCount*bytesPerSample))
	le.PutUint16(h[32:34], uint16(channelCount*bytesPerSample))
	le.PutUint16(h[34:36], BitsPerSample)
	copy(h[36:40], "data")
	le.PutUint32(h[40:44], uint32(dataLen))
	return h
}
