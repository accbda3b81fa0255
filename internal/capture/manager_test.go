// SPDX-License-Identifier: MIT
package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"denoiser/internal/codec"
	"denoiser/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	mu       sync.Mutex
	opens    int
	closes   int
	deliver  func([]float32)
	openErr  error
	closeErr error
	// onClose runs inside Close, before the device reports itself closed.
	onClose func()
}

func (d *fakeDevice) Open(sampleRate, channels int, deliver func([]float32)) (io.Closer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opens++
	d.deliver = deliver
	return closerFunc(func() error {
		if d.onClose != nil {
			d.onClose()
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closes++
		return d.closeErr
	}), nil
}

// push delivers a chunk the way a device callback would.
func (d *fakeDevice) push(chunk ...float32) {
	d.mu.Lock()
	deliver := d.deliver
	d.mu.Unlock()
	deliver(chunk)
}

func (d *fakeDevice) counts() (opens, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.closes
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newManager(t *testing.T, dev Device, opts Options) *Manager {
	t.Helper()
	m, err := NewManager(dev, opts)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func decode(t *testing.T, clip *signal.Clip) *signal.Signal {
	t.Helper()
	require.NotNil(t, clip)
	sig, err := codec.Decode(clip.Data)
	require.NoError(t, err)
	return sig
}

func TestStartStopConcatenatesInOrder(t *testing.T) {
	dev := &fakeDevice{}
	m := newManager(t, dev, Options{SampleRate: 8000, Channels: 2, TickInterval: time.Hour})

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, Recording, m.State())
	require.NotNil(t, m.Session())

	dev.push(0.5, -0.5)             // A
	dev.push(0.25, -0.25, 0.1, 0.2) // B
	dev.push(-1, 1)                 // C
	assert.Equal(t, 4, m.Session().Frames())

	clip, err := m.Stop()
	require.NoError(t, err)
	assert.Equal(t, Idle, m.State())
	assert.Nil(t, m.Session())
	assert.Equal(t, signal.ContainerWAV, clip.Container)
	assert.Same(t, clip, m.LastClip())

	sig := decode(t, clip)
	assert.Equal(t, 8000, sig.SampleRate)
	require.Equal(t, 2, sig.ChannelCount())
	require.Equal(t, 4, sig.FrameCount())

	left := []float64{0.5, 0.25, 0.1, -1}
	right := []float64{-0.5, -0.25, 0.2, 1}
	for i := range left {
		assert.InDelta(t, left[i], sig.Channels[0][i], 1.0/32768)
		assert.InDelta(t, right[i], sig.Channels[1][i], 1.0/32768)
	}

	opens, closes := dev.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
}

func TestStartIsIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	m := newManager(t, dev, Options{TickInterval: time.Hour})

	require.NoError(t, m.Start(context.Background()))
	first := m.Session()
	require.NoError(t, m.Start(context.Background()))
	assert.Same(t, first, m.Session())

	opens, _ := dev.counts()
	assert.Equal(t, 1, opens, "device must not be acquired twice")
}

func TestStopWhileIdle(t *testing.T) {
	m := newManager(t, &fakeDevice{}, Options{})
	clip, err := m.Stop()
	assert.NoError(t, err)
	assert.Nil(t, clip)
	assert.Equal(t, 0, m.Elapsed())
}

func TestEmptySessionIsValid(t *testing.T) {
	dev := &fakeDevice{}
	m := newManager(t, dev, Options{SampleRate: 44100, TickInterval: time.Hour})

	require.NoError(t, m.Start(context.Background()))
	clip, err := m.Stop()
	require.NoError(t, err)
	assert.Equal(t, codec.HeaderSize, clip.Len())
}

func TestStartDeviceUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"Plain error", errors.New("permission denied")},
		{"Already wrapped", signal.ErrDeviceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(t, &fakeDevice{openErr: tt.err}, Options{})
			err := m.Start(context.Background())
			assert.ErrorIs(t, err, signal.ErrDeviceUnavailable)
			assert.Equal(t, Idle, m.State())
		})
	}
}

func TestStartCancelledContext(t *testing.T) {
	dev := &fakeDevice{}
	m := newManager(t, dev, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Start(ctx), context.Canceled)
	opens, _ := dev.counts()
	assert.Zero(t, opens)
}

func TestReleaseErrorKeepsClip(t *testing.T) {
	dev := &fakeDevice{closeErr: errors.New("stream stuck")}
	m := newManager(t, dev, Options{TickInterval: time.Hour})

	require.NoError(t, m.Start(context.Background()))
	dev.push(0.5, 0.5)

	clip, err := m.Stop()
	require.Error(t, err)
	assert.ErrorIs(t, err, signal.ErrDeviceUnavailable)
	assert.Contains(t, err.Error(), "stream stuck")
	require.NotNil(t, clip, "partial data must survive a failed release")
	assert.Equal(t, 2, decode(t, clip).FrameCount())
	assert.Equal(t, Idle, m.State())

	_, closes := dev.counts()
	assert.Equal(t, 1, closes)
}

func TestChunksAfterStopIgnored(t *testing.T) {
	dev := &fakeDevice{}
	var seen int
	m := newManager(t, dev, Options{
		TickInterval: time.Hour,
		OnChunk:      func(c []float32) { seen += len(c) },
	})

	require.NoError(t, m.Start(context.Background()))
	dev.push(0.1, 0.2)
	clip, err := m.Stop()
	require.NoError(t, err)

	dev.push(0.3, 0.4)
	assert.Equal(t, 2, seen)
	assert.Equal(t, 2, decode(t, clip).FrameCount())

	// A new session does not inherit late chunks either.
	require.NoError(t, m.Start(context.Background()))
	dev.push(0.9)
	clip, err = m.Stop()
	require.NoError(t, err)
	assert.Equal(t, 1, decode(t, clip).FrameCount())
}

func TestChunkFlushedDuringCloseIsKept(t *testing.T) {
	dev := &fakeDevice{}
	dev.onClose = func() { dev.push(0.5, 0.5) }
	m := newManager(t, dev, Options{SampleRate: 8000, Channels: 1, TickInterval: time.Hour})

	require.NoError(t, m.Start(context.Background()))
	dev.push(0.25, 0.25)
	clip, err := m.Stop()
	require.NoError(t, err)

	sig := decode(t, clip)
	require.Equal(t, 4, sig.FrameCount())
	assert.InDelta(t, 0.5, sig.Channels[0][3], 1.0/32768)

	// Once Close has returned, the session is sealed.
	dev.onClose = nil
	dev.push(0.9)
	assert.Equal(t, 4, decode(t, m.LastClip()).FrameCount())
}

func TestStaleAutoStopLeavesNewSession(t *testing.T) {
	dev := &fakeDevice{}
	m := newManager(t, dev, Options{TickInterval: time.Hour})

	require.NoError(t, m.Start(context.Background()))
	first := m.Session()
	_, err := m.Stop()
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	second := m.Session()
	require.NotSame(t, first, second)

	clip, err := m.stopSession(first)
	assert.Nil(t, clip)
	assert.NoError(t, err)
	assert.Equal(t, Recording, m.State())
	assert.Same(t, second, m.Session())

	m.autoStop(first)
	assert.Equal(t, Recording, m.State())
}

func TestTicksIncrementElapsed(t *testing.T) {
	dev := &fakeDevice{}
	ticks := make(chan int, 16)
	m := newManager(t, dev, Options{
		TickInterval: 5 * time.Millisecond,
		OnTick: func(n int) {
			select {
			case ticks <- n:
			default:
			}
		},
	})

	require.NoError(t, m.Start(context.Background()))
	for want := 1; want <= 3; want++ {
		select {
		case got := <-ticks:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d never arrived", want)
		}
	}
	assert.GreaterOrEqual(t, m.Elapsed(), 3)

	_, err := m.Stop()
	require.NoError(t, err)
	assert.Equal(t, 0, m.Elapsed())
}

func TestMaxDurationStops(t *testing.T) {
	dev := &fakeDevice{}
	stopped := make(chan *signal.Clip, 1)
	m := newManager(t, dev, Options{
		TickInterval: 5 * time.Millisecond,
		MaxDuration:  10 * time.Millisecond,
		OnStop: func(clip *signal.Clip, err error) {
			assert.NoError(t, err)
			stopped <- clip
		},
	})

	require.NoError(t, m.Start(context.Background()))
	dev.push(0.5, 0.5, 0.5)

	select {
	case clip := <-stopped:
		assert.Equal(t, 3, decode(t, clip).FrameCount())
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop at max duration")
	}
	assert.Equal(t, Idle, m.State())
	_, closes := dev.counts()
	assert.Equal(t, 1, closes)
}

func TestContextCancelStops(t *testing.T) {
	dev := &fakeDevice{}
	stopped := make(chan *signal.Clip, 1)
	m := newManager(t, dev, Options{
		TickInterval: time.Hour,
		OnStop:       func(clip *signal.Clip, _ error) { stopped <- clip },
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	dev.push(0.25)
	cancel()

	select {
	case clip := <-stopped:
		assert.Equal(t, 1, decode(t, clip).FrameCount())
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop on cancel")
	}
	assert.Equal(t, Idle, m.State())
}

func TestCloseReleasesDevice(t *testing.T) {
	dev := &fakeDevice{}
	m, err := NewManager(dev, Options{TickInterval: time.Hour})
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	dev.push(0.1)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, closes := dev.counts()
	assert.Equal(t, 1, closes)
	assert.NotNil(t, m.LastClip())
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, Options{})
	assert.Error(t, err)
	_, err = NewManager(&fakeDevice{}, Options{SampleRate: -1})
	assert.Error(t, err)
	_, err = NewManager(&fakeDevice{}, Options{MaxDuration: -time.Second})
	assert.Error(t, err)

	m, err := NewManager(&fakeDevice{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleRate, m.opts.SampleRate)
	assert.Equal(t, DefaultChannels, m.opts.Channels)
	assert.Equal(t, DefaultTickInterval, m.opts.TickInterval)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "State(7)", State(7).String())
}
