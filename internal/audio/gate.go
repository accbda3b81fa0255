// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

const signMask = 1 << 31

// Gate decides whether a buffer is loud enough to be worth analyzing. It is
// read on audio callback threads and configured from elsewhere, so all state
// is atomic.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint32 // float32 bits, 0.0-1.0 of full scale
}

// NewGate returns an enabled gate with the given threshold.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	g.Enable()
	return g
}

func (g *Gate) Enable() {
	g.enabled.Store(true)
}

func (g *Gate) Disable() {
	g.enabled.Store(false)
}

func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// SetThreshold adjusts the gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 || math.IsNaN(threshold) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(math.Float32bits(float32(threshold)))
}

// Threshold returns the current threshold in the range 0.0-1.0.
func (g *Gate) Threshold() float64 {
	return float64(math.Float32frombits(g.threshold.Load()))
}

// Open reports whether buf passes the gate. A disabled gate is always open.
func (g *Gate) Open(buf []float32) bool {
	if !g.enabled.Load() {
		return true
	}
	return Peak(buf) > math.Float32frombits(g.threshold.Load())
}

// Peak returns the largest absolute sample in buf. It does not allocate.
func Peak(buf []float32) float32 {
	var peak float32
	for _, s := range buf {
		// Clearing the sign bit is abs without a branch.
		a := math.Float32frombits(math.Float32bits(s) &^ signMask)
		if a > peak {
			peak = a
		}
	}
	return peak
}
