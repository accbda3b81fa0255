// SPDX-License-Identifier: MIT
package dsp

import "math"

// compressor is a feed-forward, hard-knee peak compressor. Detection is linked
// across channels: the loudest channel at each frame sets one gain for all.
type compressor struct {
	thresholdDB float64
	slope       float64 // 1 - 1/ratio
	attackCoef  float64
	releaseCoef float64
}

func newCompressor(p CompressorSettings, sampleRate int) *compressor {
	return &compressor{
		thresholdDB: p.ThresholdDB,
		slope:       1 - 1/p.Ratio,
		attackCoef:  smoothingCoef(p.AttackMs, sampleRate),
		releaseCoef: smoothingCoef(p.ReleaseMs, sampleRate),
	}
}

// smoothingCoef converts a time constant in milliseconds into the per-sample
// one-pole coefficient exp(-1/(t*fs)). Zero time means no smoothing.
func smoothingCoef(ms float64, sampleRate int) float64 {
	if ms <= 0 {
		return 0
	}
	return math.Exp(-1 / (ms / 1000 * float64(sampleRate)))
}

// gainReduction returns the static curve output in dB (<= 0) for a detector
// level in dB.
func (c *compressor) gainReduction(levelDB float64) float64 {
	over := levelDB - c.thresholdDB
	if over <= 0 {
		return 0
	}
	return -over * c.slope
}

// process writes the compressed channels into dst. dst and src may alias.
func (c *compressor) process(dst, src [][]float64) {
	if len(src) == 0 {
		return
	}
	if c.slope == 0 {
		for ch := range src {
			copy(dst[ch], src[ch])
		}
		return
	}

	env := 0.0
	frames := len(src[0])
	for f := 0; f < frames; f++ {
		peak := 0.0
		for ch := range src {
			peak = math.Max(peak, math.Abs(src[ch][f]))
		}

		target := 0.0
		if peak > 0 {
			target = c.gainReduction(LinearToDB(peak))
		}

		coef := c.releaseCoef
		if target < env {
			coef = c.attackCoef
		}
		env = coef*env + (1-coef)*target

		gain := DBToLinear(env)
		for ch := range src {
			dst[ch][f] = src[ch][f] * gain
		}
	}
}
