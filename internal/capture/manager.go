// SPDX-License-Identifier: MIT
/*
Package capture owns a live input session: it opens one device, collects the
chunks it delivers in arrival order, counts elapsed seconds, and on Stop turns
everything collected so far into a WAV clip.

	Idle --Start--> Recording --Stop/MaxDuration/ctx--> Idle

The device is released on every path out of Recording, including failed
assembly. A partial session is valid output.
*/
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"denoiser/internal/codec"
	"denoiser/internal/log"
	"denoiser/internal/signal"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// State of a Manager.
type State int32

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Device is a live input. Open starts delivering interleaved float32 frames to
// deliver until the returned closer is closed. Chunks delivered before Close
// returns are part of the session.
type Device interface {
	Open(sampleRate, channels int, deliver func([]float32)) (io.Closer, error)
}

const (
	DefaultSampleRate   = 44100
	DefaultChannels     = 1
	DefaultTickInterval = time.Second
)

// Options configure a Manager. Callbacks run on the manager's and the device's
// goroutines and must not call Start, Stop, Close or LastClip synchronously:
// Stop holds the manager lock while it waits for the ticker goroutine and for
// the device to close.
type Options struct {
	SampleRate int
	Channels   int

	// MaxDuration stops the session automatically. Zero means no limit.
	MaxDuration time.Duration
	// TickInterval is the length of one elapsed unit.
	TickInterval time.Duration

	// OnTick receives the elapsed counter after each increment.
	OnTick func(elapsed int)
	// OnChunk sees every accepted chunk, in order.
	OnChunk func(chunk []float32)
	// OnStop receives the clip of a session that ended without a Stop call
	// (max duration reached or the Start context was cancelled).
	OnStop func(clip *signal.Clip, err error)
}

// Session is one Start..Stop span.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	elapsed atomic.Int64

	mu     sync.Mutex
	chunks [][]float32
	frames int
	sealed bool
}

// Elapsed returns the number of ticks since the session started.
func (s *Session) Elapsed() int {
	return int(s.elapsed.Load())
}

// Frames returns the number of frames collected so far.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// append reports false when the session no longer accepts chunks.
func (s *Session) append(chunk []float32, channels int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return false
	}
	s.chunks = append(s.chunks, chunk)
	s.frames += len(chunk) / channels
	return true
}

// seal stops accepting chunks and hands back what was collected.
func (s *Session) seal() [][]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
	chunks := s.chunks
	s.chunks = nil
	return chunks
}

// Manager runs at most one capture session at a time.
type Manager struct {
	device Device
	opts   Options

	mu       sync.Mutex // Serializes Start and Stop.
	state    atomic.Int32
	session  atomic.Pointer[Session]
	closer   io.Closer
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	lastClip *signal.Clip
}

// NewManager validates opts and fills in defaults.
func NewManager(device Device, opts Options) (*Manager, error) {
	if device == nil {
		return nil, errors.New("capture: device cannot be nil")
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.Channels == 0 {
		opts.Channels = DefaultChannels
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.SampleRate < 0 || opts.Channels < 0 {
		return nil, fmt.Errorf("capture: invalid format %d Hz, %d channels", opts.SampleRate, opts.Channels)
	}
	if opts.MaxDuration < 0 {
		return nil, fmt.Errorf("capture: negative max duration %s", opts.MaxDuration)
	}
	return &Manager{device: device, opts: opts}, nil
}

// State returns the current state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Elapsed returns the tick counter of the active session, or 0 when idle.
// It is safe to call from the callbacks in Options.
func (m *Manager) Elapsed() int {
	if s := m.session.Load(); s != nil {
		return s.Elapsed()
	}
	return 0
}

// Session returns the active session, or nil when idle.
func (m *Manager) Session() *Session {
	return m.session.Load()
}

// LastClip returns the clip produced by the most recent successful Stop.
func (m *Manager) LastClip() *signal.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastClip
}

// Start opens the device and begins a session. Starting while recording is a
// no-op. Cancelling ctx ends the session as if MaxDuration had been reached.
func (m *Manager) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == Recording {
		log.Debugf("Capture: Start called while recording, ignoring")
		return nil
	}

	session := &Session{ID: uuid.New(), StartedAt: time.Now()}
	closer, err := m.device.Open(m.opts.SampleRate, m.opts.Channels, func(chunk []float32) {
		m.deliver(session, chunk)
	})
	if err != nil {
		if errors.Is(err, signal.ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", signal.ErrDeviceUnavailable, err)
	}

	m.session.Store(session)
	m.closer = closer
	m.doneChan = make(chan struct{})
	m.stopOnce = sync.Once{}
	m.state.Store(int32(Recording))

	ticker := time.NewTicker(m.opts.TickInterval)
	doneChan := m.doneChan

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer ticker.Stop()
		m.run(ctx, session, ticker, doneChan)
	}()

	log.Infof("Capture: Session %s started (%d Hz, %d ch)", session.ID, m.opts.SampleRate, m.opts.Channels)
	return nil
}

func (m *Manager) run(ctx context.Context, session *Session, ticker *time.Ticker, doneChan chan struct{}) {
	for {
		select {
		case <-ticker.C:
			elapsed := int(session.elapsed.Add(1))
			if m.opts.OnTick != nil {
				m.opts.OnTick(elapsed)
			}
			if m.opts.MaxDuration > 0 && time.Duration(elapsed)*m.opts.TickInterval >= m.opts.MaxDuration {
				log.Infof("Capture: Session %s reached max duration %s", session.ID, m.opts.MaxDuration)
				go m.autoStop(session)
				return
			}
		case <-ctx.Done():
			log.Debugf("Capture: Session %s context done: %v", session.ID, ctx.Err())
			go m.autoStop(session)
			return
		case <-doneChan:
			return
		}
	}
}

// autoStop runs on its own goroutine because Stop waits for the ticker loop.
func (m *Manager) autoStop(session *Session) {
	clip, err := m.stopSession(session)
	if m.opts.OnStop != nil && (clip != nil || err != nil) {
		m.opts.OnStop(clip, err)
	}
}

func (m *Manager) deliver(session *Session, chunk []float32) {
	if len(chunk) == 0 {
		return
	}
	if !session.append(chunk, m.opts.Channels) {
		log.Debugf("Capture: Dropping %d samples delivered after stop", len(chunk))
		return
	}
	if m.opts.OnChunk != nil {
		m.opts.OnChunk(chunk)
	}
}

// Stop ends the session, releases the device and returns the assembled clip.
// Stopping while idle returns (nil, nil). When only the release fails, the
// clip is returned together with the error.
func (m *Manager) Stop() (*signal.Clip, error) {
	return m.stopSession(nil)
}

// stopSession stops the current session, or only want when it is non-nil.
// A session that already ended is left alone and yields (nil, nil).
func (m *Manager) stopSession(want *Session) (clip *signal.Clip, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != Recording {
		return nil, nil
	}
	session := m.session.Load()
	if want != nil && session != want {
		return nil, nil
	}

	closer := m.closer
	m.state.Store(int32(Idle))
	m.session.Store(nil)
	m.closer = nil

	m.stopOnce.Do(func() {
		close(m.doneChan)
	})

	var result *multierror.Error
	defer func() {
		err = result.ErrorOrNil()
		if clip != nil {
			m.lastClip = clip
		}
		log.Infof("Capture: Session %s stopped after %d ticks", session.ID, session.Elapsed())
	}()

	func() {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil {
				result = multierror.Append(result, fmt.Errorf("%w: releasing device: %v", signal.ErrDeviceUnavailable, closeErr))
			}
		}()
		m.wg.Wait()
	}()

	// Whatever the device flushed while closing still belongs to the session.
	chunks := session.seal()

	clip, assembleErr := assemble(m.opts.SampleRate, m.opts.Channels, chunks)
	if assembleErr != nil {
		result = multierror.Append(result, assembleErr)
		return nil, nil
	}
	return clip, nil
}

// Close stops an active session. The clip stays available through LastClip.
func (m *Manager) Close() error {
	_, err := m.Stop()
	return err
}

// assemble concatenates chunks in arrival order and encodes them as WAV.
func assemble(sampleRate, channels int, chunks [][]float32) (*signal.Clip, error) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	data := make([]float32, 0, total)
	for _, c := range chunks {
		data = append(data, c...)
	}

	sig, err := signal.FromInterleaved(sampleRate, channels, data)
	if err != nil {
		return nil, fmt.Errorf("%w: assembling capture: %v", signal.ErrEncode, err)
	}
	return codec.Encode(sig)
}

var _ io.Closer = (*Manager)(nil)
