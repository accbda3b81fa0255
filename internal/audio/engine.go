// SPDX-License-Identifier: MIT
/*
Package audio binds the pipeline to the host audio system through PortAudio:
- Scoped engine acquisition (Acquire / Release)
- Device enumeration and selection
- An input device that delivers interleaved float32 chunks to the capture manager
- An output stream that plays a rendered clip and reports progress to the visualizer
- A peak gate and a streaming WAV recorder used on the capture path

PortAudio is process-global. Every caller that touches devices must hold an
*Engine for the duration of that work and release it on every exit path.
*/
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"denoiser/internal/log"

	"github.com/gordonklaus/portaudio"
)

var (
	paLibInitialize = portaudio.Initialize
	paLibTerminate  = portaudio.Terminate
)

// active counts handles that have not been released yet.
var active atomic.Int32

// Engine is a handle on an initialized PortAudio library.
type Engine struct {
	releaseOnce sync.Once
	releaseErr  error
}

// Acquire initializes PortAudio and returns a handle that must be released.
// Handles nest: PortAudio reference-counts Initialize/Terminate pairs.
func Acquire() (*Engine, error) {
	if err := paLibInitialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	n := active.Add(1)
	log.Debugf("Audio engine acquired (%d active)", n)
	return &Engine{}, nil
}

// Release terminates PortAudio for this handle. Only the first call has an
// effect; later calls return the first result.
func (e *Engine) Release() error {
	if e == nil {
		return nil
	}
	e.releaseOnce.Do(func() {
		n := active.Add(-1)
		if err := paLibTerminate(); err != nil {
			e.releaseErr = fmt.Errorf("failed to terminate PortAudio: %w", err)
			return
		}
		log.Debugf("Audio engine released (%d active)", n)
	})
	return e.releaseErr
}

// Close implements io.Closer.
func (e *Engine) Close() error {
	return e.Release()
}

// Active reports how many engine handles are currently held.
func Active() int {
	return int(active.Load())
}
