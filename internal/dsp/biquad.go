// SPDX-License-Identifier: MIT
package dsp

import "math"

// maxCornerRatio caps a filter corner relative to the sample rate so the
// design stays below Nyquist.
const maxCornerRatio = 0.49

// Biquad filter coefficients, normalized by a0.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// Biquad filter state.
type biquadState struct {
	z1, z2 float64
}

// process runs one sample through the filter in transposed direct form II.
func (s *biquadState) process(b *biquad, in float64) float64 {
	out := b.b0*in + s.z1
	s.z1 = b.b1*in - b.a1*out + s.z2
	s.z2 = b.b2*in - b.a2*out
	return out
}

// filter runs the whole channel through a fresh state and writes into dst.
// dst and src may alias.
func (b *biquad) filter(dst, src []float64) {
	var st biquadState
	for i, x := range src {
		dst[i] = st.process(b, x)
	}
}

func normalize(b0, b1, b2, a0, a1, a2 float64) biquad {
	return biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// cornerTerms returns cos(w0) and sin(w0) for the clamped corner.
func cornerTerms(freqHz float64, sampleRate int) (cosW, sinW float64) {
	fs := float64(sampleRate)
	f0 := math.Min(math.Max(freqHz, 1), fs*maxCornerRatio)
	w0 := 2 * math.Pi * f0 / fs
	return math.Cos(w0), math.Sin(w0)
}

func lowPassBiquad(freqHz, q float64, sampleRate int) biquad {
	cosW, sinW := cornerTerms(freqHz, sampleRate)
	alpha := sinW / (2 * q)
	return normalize(
		(1-cosW)/2, 1-cosW, (1-cosW)/2,
		1+alpha, -2*cosW, 1-alpha,
	)
}

func highPassBiquad(freqHz, q float64, sampleRate int) biquad {
	cosW, sinW := cornerTerms(freqHz, sampleRate)
	alpha := sinW / (2 * q)
	return normalize(
		(1+cosW)/2, -(1 + cosW), (1+cosW)/2,
		1+alpha, -2*cosW, 1-alpha,
	)
}

func peakingBiquad(freqHz, q, gainDB float64, sampleRate int) biquad {
	cosW, sinW := cornerTerms(freqHz, sampleRate)
	alpha := sinW / (2 * q)
	a := math.Pow(10, gainDB/40)
	return normalize(
		1+alpha*a, -2*cosW, 1-alpha*a,
		1+alpha/a, -2*cosW, 1-alpha/a,
	)
}

// Shelves use slope S = 1, which makes alpha = sin(w0)/2 * sqrt(2).
func shelfAlpha(sinW float64) float64 {
	return sinW / 2 * math.Sqrt2
}

func lowShelfBiquad(freqHz, gainDB float64, sampleRate int) biquad {
	cosW, sinW := cornerTerms(freqHz, sampleRate)
	a := math.Pow(10, gainDB/40)
	k := 2 * math.Sqrt(a) * shelfAlpha(sinW)
	return normalize(
		a*((a+1)-(a-1)*cosW+k),
		2*a*((a-1)-(a+1)*cosW),
		a*((a+1)-(a-1)*cosW-k),
		(a+1)+(a-1)*cosW+k,
		-2*((a-1)+(a+1)*cosW),
		(a+1)+(a-1)*cosW-k,
	)
}

func highShelfBiquad(freqHz, gainDB float64, sampleRate int) biquad {
	cosW, sinW := cornerTerms(freqHz, sampleRate)
	a := math.Pow(10, gainDB/40)
	k := 2 * math.Sqrt(a) * shelfAlpha(sinW)
	return normalize(
		a*((a+1)+(a-1)*cosW+k),
		-2*a*((a-1)+(a+1)*cosW),
		a*((a+1)+(a-1)*cosW-k),
		(a+1)-(a-1)*cosW+k,
		2*((a-1)-(a+1)*cosW),
		(a+1)-(a-1)*cosW-k,
	)
}
