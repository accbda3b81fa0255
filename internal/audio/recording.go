// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"denoiser/internal/codec"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hashicorp/go-multierror"
)

// Recorder streams interleaved float32 chunks straight to a 16-bit WAV file,
// so a capture survives on disk even if the process dies before Stop.
type Recorder struct {
	mu          sync.Mutex
	isRecording atomic.Bool
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	channels    int
	frames      int
}

// Start creates filename and begins accepting chunks.
func (r *Recorder) Start(filename string, sampleRate, channels int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRecording.Load() {
		return fmt.Errorf("already recording")
	}
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid recording format: %d Hz, %d channels", sampleRate, channels)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, sampleRate, codec.BitsPerSample, channels, 1)
	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: codec.BitsPerSample,
		Data:           make([]int, DefaultFramesPerBuffer*channels),
	}
	r.channels = channels
	r.frames = 0

	r.isRecording.Store(true)
	return nil
}

// Write appends one chunk. It is a no-op when the recorder is stopped.
func (r *Recorder) Write(chunk []float32) error {
	if !r.isRecording.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	if cap(r.sampleBuf.Data) < len(chunk) {
		r.sampleBuf.Data = make([]int, len(chunk))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(chunk)]
	for i, s := range chunk {
		r.sampleBuf.Data[i] = int(codec.Quantize(float64(s)))
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("writing to WAV file: %w", err)
	}
	r.frames += len(chunk) / r.channels
	return nil
}

// Recording reports whether Start has been called without a matching Stop.
func (r *Recorder) Recording() bool {
	return r.isRecording.Load()
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Stop finalizes the WAV header and closes the file. Stopping a stopped
// recorder is a no-op.
func (r *Recorder) Stop() error {
	if !r.isRecording.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.isRecording.Store(false)

	var result *multierror.Error
	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		r.wavEncoder = nil
	}
	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		r.outputFile = nil
	}
	return result.ErrorOrNil()
}
