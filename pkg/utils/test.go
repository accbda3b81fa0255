// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// MockTransport records every message it is asked to send. It is safe for
// concurrent use.
type MockTransport struct {
	mu       sync.Mutex
	messages []any
	closed   bool
}

// Send stores the message for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, data)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Messages returns a snapshot of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.messages))
	copy(out, m.messages)
	return out
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GenerateSine returns frames samples of a sine at frequency Hz.
func GenerateSine(frequency float64, sampleRate, frames int, amplitude float64) []float64 {
	buffer := make([]float64, frames)
	for i := range buffer {
		t := float64(i) / float64(sampleRate)
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics, peaking
// below 0.9.
func GenerateComplexWave(sampleRate, frames int) []float64 {
	buffer := make([]float64, frames)
	for i := range buffer {
		t := float64(i) / float64(sampleRate)
		buffer[i] = 0.9 * (math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2)
	}
	return buffer
}

// GenerateSquare returns a square wave alternating between +amplitude and
// -amplitude.
func GenerateSquare(frequency float64, sampleRate, frames int, amplitude float64) []float64 {
	buffer := make([]float64, frames)
	period := float64(sampleRate) / frequency
	for i := range buffer {
		if math.Mod(float64(i), period) < period/2 {
			buffer[i] = amplitude
		} else {
			buffer[i] = -amplitude
		}
	}
	return buffer
}

// Interleave converts planar channels into the float32 frame-major layout used
// by capture devices.
func Interleave(channels ...[]float64) []float32 {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	out := make([]float32, frames*len(channels))
	for f := 0; f < frames; f++ {
		for c, ch := range channels {
			out[f*len(channels)+c] = float32(ch[f])
		}
	}
	return out
}

func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
