// SPDX-License-Identifier: MIT
package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"denoiser/internal/analysis"
	"denoiser/internal/audio"
	"denoiser/internal/log"
)

// SourceKind identifies what a tap listens to.
type SourceKind int

const (
	SourceCapture SourceKind = iota
	SourceOriginal
	SourceProcessed
)

func (k SourceKind) String() string {
	switch k {
	case SourceCapture:
		return "capture"
	case SourceOriginal:
		return "original"
	case SourceProcessed:
		return "processed"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Source describes the audio a tap is attached to.
type Source struct {
	Kind       SourceKind
	SampleRate int
	Channels   int
}

// ErrUnsupportedSource is returned by Attach for a source that cannot be
// visualized. Capture and playback carry on without a tap.
var ErrUnsupportedSource = errors.New("unsupported visualization source")

func (s Source) validate() error {
	if s.Kind < SourceCapture || s.Kind > SourceProcessed {
		return fmt.Errorf("%w: unknown kind %d", ErrUnsupportedSource, int(s.Kind))
	}
	if s.SampleRate <= 0 || s.Channels <= 0 {
		return fmt.Errorf("%w: %s at %d Hz, %d channels", ErrUnsupportedSource, s.Kind, s.SampleRate, s.Channels)
	}
	return nil
}

// TapHandle is proof of ownership of the controller's tap. Releasing a handle
// whose tap has already been replaced does nothing.
type TapHandle struct {
	id     uint64
	Source Source
}

// Frame is one visualization update.
type Frame struct {
	Type       string               `json:"type"`
	Source     string               `json:"source"`
	Level      float64              `json:"level"`
	LevelDB    float64              `json:"levelDb"`
	Magnitudes []float64            `json:"magnitudes"`
	Bands      []analysis.BandLevel `json:"bands"`
}

// tap keeps the most recent fftSize mono samples of its source and analyzes
// them on every tick.
type tap struct {
	id     uint64
	source Source

	mu   sync.Mutex
	ring []float32
	pos  int

	block []float32 // chronological copy of ring, tick goroutine only
	mono  []float64
	fft   *analysis.FFTProcessor
	bands *analysis.BandEnergyProcessor
	gate  *audio.Gate
	level atomic.Uint64 // float64 bits

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newTap(id uint64, src Source, opts Options) (*tap, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}

	fft, err := analysis.NewFFTProcessor(opts.FFTSize, float64(src.SampleRate), opts.Window)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	fft.SetSmoothing(opts.Smoothing)

	bands, err := analysis.NewBandEnergyProcessor(nil, fft, analysis.ToneBands)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	return &tap{
		id:     id,
		source: src,
		ring:   make([]float32, opts.FFTSize),
		block:  make([]float32, opts.FFTSize),
		mono:   make([]float64, opts.FFTSize),
		fft:    fft,
		bands:  bands,
		gate:   opts.Gate,
	}, nil
}

// push mono-mixes interleaved frames into the ring.
func (t *tap) push(chunk []float32) {
	ch := t.source.Channels
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i+ch <= len(chunk); i += ch {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += chunk[i+c]
		}
		t.ring[t.pos] = sum / float32(ch)
		t.pos = (t.pos + 1) % len(t.ring)
	}
}

// snapshot copies the ring oldest-first into block. Missing history reads as
// silence.
func (t *tap) snapshot() {
	t.mu.Lock()
	n := copy(t.block, t.ring[t.pos:])
	copy(t.block[n:], t.ring[:t.pos])
	t.mu.Unlock()
}

// analyze runs one visualization step and returns the resulting frame.
func (t *tap) analyze() Frame {
	t.snapshot()

	for i, s := range t.block {
		t.mono[i] = float64(s)
	}
	level := analysis.RMS(t.mono)
	t.level.Store(math.Float64bits(level))

	if t.gate == nil || t.gate.Open(t.block) {
		t.fft.Process(t.mono)
	} else {
		t.fft.Process(nil) // decay toward silence
	}

	return Frame{
		Type:       "spectrum",
		Source:     t.source.Kind.String(),
		Level:      level,
		LevelDB:    analysis.ToDBFS(level),
		Magnitudes: t.fft.GetMagnitudes(),
		Bands:      t.bands.Process(),
	}
}

func (t *tap) Level() float64 {
	return math.Float64frombits(t.level.Load())
}

// start runs analyze every interval and hands each frame to emit.
func (t *tap) start(interval time.Duration, emit func(Frame)) {
	t.ticker = time.NewTicker(interval)
	t.doneChan = make(chan struct{})
	ticker, doneChan := t.ticker, t.doneChan

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ticker.C:
				emit(t.analyze())
			case <-doneChan:
				return
			}
		}
	}()
	log.Debugf("Playback: Tap %d attached to %s (%d Hz, %d ch)", t.id, t.source.Kind, t.source.SampleRate, t.source.Channels)
}

func (t *tap) stop() {
	t.stopOnce.Do(func() {
		if t.doneChan != nil {
			close(t.doneChan)
			t.ticker.Stop()
		}
	})
	t.wg.Wait()
	t.fft.Close()
	log.Debugf("Playback: Tap %d released", t.id)
}
