// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"denoiser/internal/log"
	"denoiser/internal/signal"

	"github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
)

// PortAudioOutput plays interleaved float32 frames on one output device.
type PortAudioOutput struct {
	DeviceID        int
	LowLatency      bool
	FramesPerBuffer int
}

// Play blocks until every frame has been handed to the device or ctx is done.
// progress, when non-nil, receives each slice of frames as it is queued. The
// stream is always stopped and closed before Play returns.
func (o *PortAudioOutput) Play(ctx context.Context, sampleRate, channels int, frames []float32, progress func([]float32)) (err error) {
	if channels <= 0 || len(frames)%channels != 0 {
		return fmt.Errorf("%w: %d samples do not divide into %d channels", signal.ErrInvalidSignal, len(frames), channels)
	}

	device, err := OutputDevice(o.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: %v", signal.ErrDeviceUnavailable, err)
	}

	perBuffer := o.FramesPerBuffer
	if perBuffer <= 0 {
		perBuffer = DefaultFramesPerBuffer
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  outputLatency(device, o.LowLatency),
		},
		FramesPerBuffer: perBuffer,
		SampleRate:      float64(sampleRate),
	}

	p := &player{frames: frames, progress: progress, done: make(chan struct{})}
	stream, err := paOpenStream(params, p.fill)
	if err != nil {
		return fmt.Errorf("%w: opening output stream on %s: %v", signal.ErrDeviceUnavailable, device.Name, err)
	}
	defer func() {
		var result *multierror.Error
		if err != nil {
			result = multierror.Append(result, err)
		}
		if stopErr := stream.Stop(); stopErr != nil {
			result = multierror.Append(result, fmt.Errorf("stopping output stream: %w", stopErr))
		}
		if closeErr := stream.Close(); closeErr != nil {
			result = multierror.Append(result, fmt.Errorf("closing output stream: %w", closeErr))
		}
		err = result.ErrorOrNil()
	}()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("%w: starting output stream on %s: %v", signal.ErrDeviceUnavailable, device.Name, err)
	}
	log.Debugf("Playing %d frames on %s (%d Hz, %d ch)", len(frames)/channels, device.Name, sampleRate, channels)

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Debugf("Playback on %s cancelled", device.Name)
		}
		return ctx.Err()
	}
}

type player struct {
	mu       sync.Mutex
	frames   []float32
	pos      int
	progress func([]float32)
	done     chan struct{}
	finished bool
}

// fill runs on the PortAudio callback thread. It zero-pads the final buffer
// and signals done once the clip has been fully queued.
func (p *player) fill(out []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(out, p.frames[p.pos:])
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if n > 0 && p.progress != nil {
		p.progress(p.frames[p.pos : p.pos+n])
	}
	p.pos += n

	if p.pos >= len(p.frames) && !p.finished {
		p.finished = true
		close(p.done)
	}
}
