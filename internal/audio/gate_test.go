// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"testing"
)

var (
	quietBuffer = makeBuffer(1024, 0.001)
	loudBuffer  = makeBuffer(1024, 0.9)
)

func makeBuffer(n int, amplitude float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = amplitude * float32(math.Sin(2*math.Pi*float64(i)/64))
	}
	return buf
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.3f", f)
}

func TestGateEnable(t *testing.T) {
	gate := NewGate(0.1)
	if !gate.Enabled() {
		t.Error("Gate should be enabled initially")
	}

	gate.Disable()
	if gate.Enabled() {
		t.Error("Gate should be disabled after Disable()")
	}

	gate.Enable()
	gate.Enable() // Multiple calls should be idempotent
	if !gate.Enabled() {
		t.Error("Gate should remain enabled after multiple Enable()")
	}

	gate.Disable()
	gate.Disable()
	if gate.Enabled() {
		t.Error("Gate should remain disabled after multiple Disable()")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
		{math.NaN(), 0.0},
	}

	gate := NewGate(0)
	for _, tt := range tests {
		t.Run(formatFloat(tt.input), func(t *testing.T) {
			gate.SetThreshold(tt.input)
			if got := gate.Threshold(); math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("Threshold() = %.6f, want %.6f", got, tt.expected)
			}
		})
	}
}

func TestGateDetection(t *testing.T) {
	tests := []struct {
		desc          string
		buffer        []float32
		gateEnabled   bool
		threshold     float64
		shouldTrigger bool
	}{
		{"Gate disabled/Quiet signal", quietBuffer, false, 0.1, true},
		{"Gate disabled/Loud signal", loudBuffer, false, 0.1, true},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, true, 0.0001, true},
		{"Gate enabled/Quiet signal/Mid threshold", quietBuffer, true, 0.1, false},
		{"Gate enabled/Loud signal/Mid threshold", loudBuffer, true, 0.1, true},
		{"Gate enabled/Loud signal/High threshold", loudBuffer, true, 0.999, false},
		{"Gate enabled/Empty buffer", nil, true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			gate := NewGate(tt.threshold)
			if !tt.gateEnabled {
				gate.Disable()
			}
			if got := gate.Open(tt.buffer); got != tt.shouldTrigger {
				t.Errorf("Open() = %v, want %v (peak=%f)", got, tt.shouldTrigger, Peak(tt.buffer))
			}
		})
	}
}

func TestPeak(t *testing.T) {
	if got := Peak([]float32{0.25, -0.75, 0.5}); got != 0.75 {
		t.Errorf("Peak() = %v, want 0.75", got)
	}
	if got := Peak(nil); got != 0 {
		t.Errorf("Peak(nil) = %v, want 0", got)
	}

	allocs := testing.AllocsPerRun(100, func() {
		_ = Peak(loudBuffer)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Peak, got %.1f", allocs)
	}
}

func BenchmarkGateOpen(b *testing.B) {
	gate := NewGate(0.5)
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		_ = gate.Open(loudBuffer)
	}
}
