// SPDX-License-Identifier: MIT
/*
Package playback drives the level meter and spectrum display. It auditions a
clip through an Output and, during capture or playback, keeps exactly one
analyzer tap attached to the active source.

	Idle --BeginCapture--> Capturing --EndCapture--> Idle
	Idle --Play----------> Playing   --end of clip / Stop--> Idle

Attaching a tap always releases the previous one first. A tap that cannot be
attached only disables visualization; capture and playback continue.
*/
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"denoiser/internal/analysis"
	"denoiser/internal/audio"
	"denoiser/internal/log"
	"denoiser/internal/signal"
	"denoiser/internal/transport"
	"denoiser/pkg/bitint"
)

// State of a Controller.
type State int32

const (
	Idle State = iota
	Capturing
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	ErrBusy   = errors.New("playback controller is busy")
	ErrClosed = errors.New("playback controller is closed")
)

// Output plays interleaved float32 frames, calling progress as they are
// consumed, and returns at the end of the clip or when ctx is done.
type Output interface {
	Play(ctx context.Context, sampleRate, channels int, frames []float32, progress func([]float32)) error
}

const (
	DefaultFFTSize  = 2048
	DefaultInterval = 33 * time.Millisecond
)

// Options configure the visualization side of a Controller. The callbacks run
// on the tap goroutine and must not call methods that change state.
type Options struct {
	FFTSize   int
	Window    analysis.WindowFunc
	Interval  time.Duration
	Smoothing float64

	// Gate, when set, keeps quiet input from moving the spectrum.
	Gate *audio.Gate
	// Transport receives every Frame. Optional.
	Transport transport.Transport
	// OnFrame receives every Frame on the tap goroutine. Optional.
	OnFrame func(Frame)
}

// Controller owns the output and the single visualization tap.
type Controller struct {
	output Output
	opts   Options

	mu         sync.Mutex // Serializes state changes.
	state      atomic.Int32
	tap        atomic.Pointer[tap]
	nextID     uint64
	cancelPlay context.CancelFunc
	playDone   chan struct{}
	closed     bool
}

// NewController validates opts. output may be nil when the controller is only
// used to visualize capture.
func NewController(output Output, opts Options) (*Controller, error) {
	if opts.FFTSize == 0 {
		opts.FFTSize = DefaultFFTSize
	}
	if !bitint.IsPowerOfTwo(opts.FFTSize) {
		return nil, fmt.Errorf("playback: fft size must be a power of 2, got %d", opts.FFTSize)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Controller{output: output, opts: opts}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Attach connects the tap to src, releasing whatever tap was attached before.
func (c *Controller) Attach(src Source) (*TapHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.attachLocked(src)
}

func (c *Controller) attachLocked(src Source) (*TapHandle, error) {
	c.releaseLocked()

	c.nextID++
	t, err := newTap(c.nextID, src, c.opts)
	if err != nil {
		return nil, err
	}
	t.start(c.opts.Interval, c.emit)
	c.tap.Store(t)
	return &TapHandle{id: t.id, Source: src}, nil
}

// Release detaches the tap owned by h. It is idempotent, and a handle whose
// tap was already replaced is ignored.
func (c *Controller) Release(h *TapHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseHandleLocked(h)
}

func (c *Controller) releaseLocked() {
	if t := c.tap.Swap(nil); t != nil {
		t.stop()
	}
}

func (c *Controller) emit(f Frame) {
	if c.opts.Transport != nil {
		if err := c.opts.Transport.Send(f); err != nil {
			log.Debugf("Playback: Error sending frame: %v", err)
		}
	}
	if c.opts.OnFrame != nil {
		c.opts.OnFrame(f)
	}
}

// feedFor returns a feeder bound to one tap, so samples from a finished
// source never reach its successor.
func (c *Controller) feedFor(h *TapHandle) func([]float32) {
	return func(chunk []float32) {
		if h == nil {
			return
		}
		if t := c.tap.Load(); t != nil && t.id == h.id {
			t.push(chunk)
		}
	}
}

// BeginCapture switches to Capturing and attaches a capture tap. Feed then
// pushes live chunks into it.
func (c *Controller) BeginCapture(sampleRate, channels int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if s := c.State(); s != Idle {
		return fmt.Errorf("%w: cannot capture while %s", ErrBusy, s)
	}

	if _, err := c.attachLocked(Source{Kind: SourceCapture, SampleRate: sampleRate, Channels: channels}); err != nil {
		log.Warnf("Playback: Visualization disabled for capture: %v", err)
	}
	c.state.Store(int32(Capturing))
	return nil
}

// Feed pushes interleaved capture frames to the capture tap. It is a no-op
// unless capturing.
func (c *Controller) Feed(chunk []float32) {
	if c.State() != Capturing {
		return
	}
	if t := c.tap.Load(); t != nil && t.source.Kind == SourceCapture {
		t.push(chunk)
	}
}

// EndCapture releases the capture tap and returns to Idle.
func (c *Controller) EndCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != Capturing {
		return
	}
	c.releaseLocked()
	c.state.Store(int32(Idle))
}

// Play auditions sig through the output. It returns once playback has
// started; done is called with nil at the natural end of the clip, or with the
// error that ended it. The tap is released before done runs.
func (c *Controller) Play(ctx context.Context, which SourceKind, sig *signal.Signal, done func(error)) error {
	if err := sig.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.output == nil {
		return errors.New("playback: no output configured")
	}
	if s := c.State(); s != Idle {
		return fmt.Errorf("%w: cannot play while %s", ErrBusy, s)
	}

	handle, err := c.attachLocked(Source{Kind: which, SampleRate: sig.SampleRate, Channels: sig.ChannelCount()})
	if err != nil {
		log.Warnf("Playback: Visualization disabled for %s clip: %v", which, err)
	}

	playCtx, cancel := context.WithCancel(ctx)
	playDone := make(chan struct{})
	c.cancelPlay = cancel
	c.playDone = playDone
	c.state.Store(int32(Playing))

	frames := sig.Interleaved()
	log.Infof("Playback: Playing %s clip (%.2fs)", which, sig.Duration())

	go func() {
		defer close(playDone)
		err := c.output.Play(playCtx, sig.SampleRate, sig.ChannelCount(), frames, c.feedFor(handle))
		cancel()

		c.mu.Lock()
		c.releaseHandleLocked(handle)
		c.state.Store(int32(Idle))
		c.cancelPlay = nil
		c.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Playback: %s clip ended with error: %v", which, err)
		}
		if done != nil {
			done(err)
		}
	}()
	return nil
}

func (c *Controller) releaseHandleLocked(h *TapHandle) {
	if h == nil {
		return
	}
	if t := c.tap.Load(); t != nil && t.id == h.id {
		c.releaseLocked()
	}
}

// Stop aborts playback or ends capture, waiting until the output has let go.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, playDone := c.cancelPlay, c.playDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-playDone
	}
	c.EndCapture()
}

// Wait blocks until the current playback, if any, has finished.
func (c *Controller) Wait() {
	c.mu.Lock()
	playDone := c.playDone
	c.mu.Unlock()
	if playDone != nil {
		<-playDone
	}
}

// Close stops everything and releases the tap. It is safe to call repeatedly.
func (c *Controller) Close() error {
	c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	c.closed = true
	return nil
}

// BinCount returns the number of spectrum bins every tap produces.
func (c *Controller) BinCount() int {
	return c.opts.FFTSize/2 + 1
}

// MagnitudesInto copies the active tap's spectrum into dst. With no tap
// attached the spectrum is silent.
func (c *Controller) MagnitudesInto(dst []float64) error {
	if len(dst) != c.BinCount() {
		return fmt.Errorf("destination has %d bins, want %d", len(dst), c.BinCount())
	}
	t := c.tap.Load()
	if t == nil {
		clear(dst)
		return nil
	}
	return t.fft.GetMagnitudesInto(dst)
}

// Magnitudes returns a copy of the active tap's spectrum.
func (c *Controller) Magnitudes() []float64 {
	out := make([]float64, c.BinCount())
	_ = c.MagnitudesInto(out)
	return out
}

// Level returns the RMS level of the active tap, or 0 when none is attached.
func (c *Controller) Level() float64 {
	if t := c.tap.Load(); t != nil {
		return t.Level()
	}
	return 0
}

// Attached reports the source of the active tap.
func (c *Controller) Attached() (Source, bool) {
	if t := c.tap.Load(); t != nil {
		return t.source, true
	}
	return Source{}, false
}
