// SPDX-License-Identifier: MIT

// Package pulse captures from a PulseAudio (or PipeWire-Pulse) server
// without going through PortAudio.
package pulse

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"denoiser/internal/log"
	"denoiser/internal/signal"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// Input records from the server's default source.
type Input struct {
	// ClientName is shown by the server's mixer.
	ClientName string
}

var newClient = func(name string) (*pulse.Client, error) {
	if name == "" {
		return pulse.NewClient()
	}
	return pulse.NewClient(pulse.ClientApplicationName(name))
}

// Open connects to the server and starts a float32 record stream. deliver
// receives interleaved frames in the order the server sends them.
func (in *Input) Open(sampleRate, channels int, deliver func([]float32)) (io.Closer, error) {
	chanMap, err := channelMap(channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signal.ErrDeviceUnavailable, err)
	}

	client, err := newClient(in.ClientName)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open a client to Pulse: %v", signal.ErrDeviceUnavailable, err)
	}

	w := &recordWriter{channels: channels, deliver: deliver}
	stream, err := client.NewRecord(
		w,
		pulse.RecordSampleRate(sampleRate),
		pulse.RecordChannels(chanMap),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: unable to initialize a record stream: %v", signal.ErrDeviceUnavailable, err)
	}

	stream.Start()
	if err := stream.Error(); err != nil {
		stream.Close()
		client.Close()
		return nil, fmt.Errorf("%w: record stream failed to start: %v", signal.ErrDeviceUnavailable, err)
	}

	log.Infof("Capturing from PulseAudio default source (%d Hz, %d ch)", sampleRate, channels)
	return &recordStream{client: client, stream: stream, writer: w}, nil
}

func channelMap(channels int) (proto.ChannelMap, error) {
	switch channels {
	case 1:
		return proto.ChannelMap{proto.ChannelMono}, nil
	case 2:
		return proto.ChannelMap{proto.ChannelLeft, proto.ChannelRight}, nil
	default:
		return nil, fmt.Errorf("do not know how to configure %d channels", channels)
	}
}

// recordWriter receives raw little-endian float32 bytes from the stream. The
// server may split a sample across writes, so a partial tail is carried over.
type recordWriter struct {
	mu       sync.Mutex
	channels int
	deliver  func([]float32)
	pending  []byte
	stopped  bool
}

var _ pulse.Writer = (*recordWriter)(nil)

func (w *recordWriter) Format() byte {
	return proto.FormatFloat32LE
}

func (w *recordWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return len(p), nil
	}

	data := p
	if len(w.pending) > 0 {
		data = append(w.pending, p...)
		w.pending = nil
	}

	frameBytes := 4 * w.channels
	usable := len(data) - len(data)%frameBytes
	if usable > 0 {
		chunk := make([]float32, usable/4)
		for i := range chunk {
			chunk[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		w.deliver(chunk)
	}
	if usable < len(data) {
		w.pending = append([]byte(nil), data[usable:]...)
	}
	return len(p), nil
}

func (w *recordWriter) stop() {
	w.mu.Lock()
	w.stopped = true
	w.pending = nil
	w.mu.Unlock()
}

// Subsets of *pulse.RecordStream and *pulse.Client used on close.
type (
	stopCloser interface {
		Stop()
		Close()
	}
	closer interface {
		Close()
	}
)

type recordStream struct {
	once   sync.Once
	client closer
	stream stopCloser
	writer *recordWriter
}

func (s *recordStream) Close() (err error) {
	s.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("closing pulse record stream: %v", r)
			}
		}()
		// Data the server sends until Stop returns is still delivered.
		s.stream.Stop()
		s.writer.stop()
		s.stream.Close()
		s.client.Close()
	})
	return err
}
