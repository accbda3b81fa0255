// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"sync"

	"denoiser/internal/log"
	"denoiser/internal/signal"

	"github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
)

// DefaultFramesPerBuffer is used when PortAudioInput.FramesPerBuffer is zero.
const DefaultFramesPerBuffer = 1024

// PortAudioInput captures from one PortAudio input device.
type PortAudioInput struct {
	DeviceID        int
	LowLatency      bool
	FramesPerBuffer int
}

// Open starts an input stream and calls deliver with a private copy of every
// interleaved float32 buffer PortAudio hands over. The returned closer stops
// the stream; deliver is never called after Close returns.
func (in *PortAudioInput) Open(sampleRate, channels int, deliver func([]float32)) (io.Closer, error) {
	device, err := InputDevice(in.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signal.ErrDeviceUnavailable, err)
	}
	if device.MaxInputChannels < channels {
		return nil, fmt.Errorf("%w: device %s has %d input channels, need %d",
			signal.ErrDeviceUnavailable, device.Name, device.MaxInputChannels, channels)
	}

	frames := in.FramesPerBuffer
	if frames <= 0 {
		frames = DefaultFramesPerBuffer
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  inputLatency(device, in.LowLatency),
		},
		FramesPerBuffer: frames,
		SampleRate:      float64(sampleRate),
	}

	s := &inputStream{deliver: deliver}
	stream, err := paOpenStream(params, s.process)
	if err != nil {
		return nil, fmt.Errorf("%w: opening input stream on %s: %v", signal.ErrDeviceUnavailable, device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: starting input stream on %s: %v", signal.ErrDeviceUnavailable, device.Name, err)
	}
	s.stream = stream

	log.Infof("Capturing from %s (%d Hz, %d ch, %d frames/buffer)", device.Name, sampleRate, channels, frames)
	return s, nil
}

type inputStream struct {
	mu      sync.Mutex
	stream  paStream
	deliver func([]float32)
	closing bool
	closed  bool
}

// process runs on the PortAudio callback thread.
func (s *inputStream) process(in []float32) {
	chunk := make([]float32, len(in))
	copy(chunk, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.deliver(chunk)
}

func (s *inputStream) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	// Stop waits for pending callbacks, which still deliver.
	var result *multierror.Error
	if err := s.stream.Stop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("stopping input stream: %w", err))
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.stream.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing input stream: %w", err))
	}
	return result.ErrorOrNil()
}
