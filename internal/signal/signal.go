// SPDX-License-Identifier: MIT
/*
Package signal holds the in-memory audio representation shared by every stage
of the pipeline:
- Signal: planar float64 samples, one slice per channel, with a sample rate
- Clip: an encoded byte buffer plus its container label
- the error kinds returned across the decode/analyze/render/encode boundary

A Signal is treated as immutable once produced. Stages that transform audio
read one Signal and return a new one; nothing writes into a Signal it did not
allocate itself.
*/
package signal

import (
	"fmt"
)

// Signal is a decoded, fully materialized multichannel buffer.
type Signal struct {
	SampleRate int
	Channels   [][]float64
}

// New validates the shape of the given buffers and wraps them in a Signal.
// The channel slices are not copied.
func New(sampleRate int, channels [][]float64) (*Signal, error) {
	s := &Signal{SampleRate: sampleRate, Channels: channels}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Silence returns an all-zero signal of the requested shape.
func Silence(sampleRate, channelCount, frames int) *Signal {
	channels := make([][]float64, channelCount)
	for i := range channels {
		channels[i] = make([]float64, frames)
	}
	return &Signal{SampleRate: sampleRate, Channels: channels}
}

// Validate checks that the sample rate is positive, there is at least one
// channel and every channel has the same length.
func (s *Signal) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil signal", ErrInvalidSignal)
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidSignal, s.SampleRate)
	}
	if len(s.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidSignal)
	}
	frames := len(s.Channels[0])
	for i, ch := range s.Channels[1:] {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d",
				ErrInvalidSignal, i+1, len(ch), frames)
		}
	}
	return nil
}

func (s *Signal) ChannelCount() int {
	return len(s.Channels)
}

func (s *Signal) FrameCount() int {
	if len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0])
}

// Duration returns the length of the signal in seconds.
func (s *Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(s.FrameCount()) / float64(s.SampleRate)
}

// Clone returns a deep copy.
func (s *Signal) Clone() *Signal {
	channels := make([][]float64, len(s.Channels))
	for i, ch := range s.Channels {
		channels[i] = make([]float64, len(ch))
		copy(channels[i], ch)
	}
	return &Signal{SampleRate: s.SampleRate, Channels: channels}
}

// FromInterleaved splits frame-major samples into a planar Signal. A trailing
// partial frame is dropped.
func FromInterleaved(sampleRate, channelCount int, data []float32) (*Signal, error) {
	if channelCount <= 0 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidSignal, channelCount)
	}
	frames := len(data) / channelCount
	channels := make([][]float64, channelCount)
	for c := range channels {
		channels[c] = make([]float64, frames)
	}
	for f := 0; f < frames; f++ {
		base := f * channelCount
		for c := 0; c < channelCount; c++ {
			channels[c][f] = float64(data[base+c])
		}
	}
	return New(sampleRate, channels)
}

// Interleaved returns the samples frame-major as float32, the layout used by
// the capture and playback devices.
func (s *Signal) Interleaved() []float32 {
	channelCount := s.ChannelCount()
	frames := s.FrameCount()
	out := make([]float32, frames*channelCount)
	for f := 0; f < frames; f++ {
		base := f * channelCount
		for c := 0; c < channelCount; c++ {
			out[base+c] = float32(s.Channels[c][f])
		}
	}
	return out
}

// Concat joins signals along the time axis. All parts must share sample rate
// and channel count.
func Concat(parts ...*Signal) (*Signal, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrInvalidSignal)
	}
	first := parts[0]
	if err := first.Validate(); err != nil {
		return nil, err
	}
	total := 0
	for i, p := range parts {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		if p.SampleRate != first.SampleRate || p.ChannelCount() != first.ChannelCount() {
			return nil, fmt.Errorf("%w: part %d is %d Hz/%d ch, expected %d Hz/%d ch", ErrInvalidSignal,
				i, p.SampleRate, p.ChannelCount(), first.SampleRate, first.ChannelCount())
		}
		total += p.FrameCount()
	}

	channels := make([][]float64, first.ChannelCount())
	for c := range channels {
		channels[c] = make([]float64, 0, total)
		for _, p := range parts {
			channels[c] = append(channels[c], p.Channels[c]...)
		}
	}
	return &Signal{SampleRate: first.SampleRate, Channels: channels}, nil
}
