// SPDX-License-Identifier: MIT
/*
Package analysis describes signals: the summary shown before and after
processing, and the live spectrum behind the visualization.

The noise level reported by Analyze is a heuristic, not a calibrated noise
floor. It is derived from the RMS of the first channel as

	noise% = clamp(round((1 - rms) * 100), 0, 100)

so quiet material always reads as noisy and a full-scale square wave reads as
clean. Treat it as a loudness hint for the UI, nothing more.
*/
package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"denoiser/internal/signal"
)

// SilenceFloorDB is reported instead of -Inf for digital silence.
const SilenceFloorDB = -120.0

// Result summarizes one signal.
type Result struct {
	DurationSeconds   float64   `json:"durationSeconds"`
	SampleRate        int       `json:"sampleRate"`
	ChannelCount      int       `json:"channelCount"`
	NoiseLevelPercent int       `json:"noiseLevelPercent"`
	RMS               float64   `json:"rms"`
	PeakDBFS          []float64 `json:"peakDbfs"`
}

func (r Result) String() string {
	return fmt.Sprintf("%.2fs, %d Hz, %d ch, noise %d%%, rms %.4f",
		r.DurationSeconds, r.SampleRate, r.ChannelCount, r.NoiseLevelPercent, r.RMS)
}

// Analyze computes the summary of sig. A nil or empty signal reports zero
// duration and 100% noise.
func Analyze(sig *signal.Signal) Result {
	if sig == nil || len(sig.Channels) == 0 {
		return Result{NoiseLevelPercent: 100}
	}

	rms := RMS(sig.Channels[0])
	peaks := make([]float64, sig.ChannelCount())
	for c, ch := range sig.Channels {
		peaks[c] = ToDBFS(Peak(ch))
	}

	return Result{
		DurationSeconds:   sig.Duration(),
		SampleRate:        sig.SampleRate,
		ChannelCount:      sig.ChannelCount(),
		NoiseLevelPercent: NoiseLevelPercent(rms),
		RMS:               rms,
		PeakDBFS:          peaks,
	}
}

// RMS returns sqrt(mean(x^2)), or 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}

// Peak returns the largest absolute sample value.
func Peak(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(x)), math.Abs(floats.Min(x)))
}

// NoiseLevelPercent maps an RMS level to the 0..100 noise heuristic.
func NoiseLevelPercent(rms float64) int {
	if math.IsNaN(rms) {
		return 100
	}
	pct := math.Round((1 - rms) * 100)
	return int(math.Max(0, math.Min(100, pct)))
}

// ToDBFS converts a linear amplitude to dBFS, floored at SilenceFloorDB.
func ToDBFS(v float64) float64 {
	if v <= 0 {
		return SilenceFloorDB
	}
	return math.Max(SilenceFloorDB, 20*math.Log10(v))
}
