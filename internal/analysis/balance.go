// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"denoiser/internal/signal"
)

// SpectralBalance averages the tone-band levels of the mono mix of sig over
// consecutive fftSize blocks. A clip shorter than one block is analyzed as a
// single zero-padded block.
func SpectralBalance(sig *signal.Signal, fftSize int, windowType WindowFunc) ([]BandLevel, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	fftProc, err := NewFFTProcessor(fftSize, float64(sig.SampleRate), windowType)
	if err != nil {
		return nil, fmt.Errorf("creating fft processor: %w", err)
	}
	bands, err := NewBandEnergyProcessor(nil, fftProc, ToneBands)
	if err != nil {
		return nil, err
	}

	mono := MonoMix(sig)
	sums := make([]float64, len(ToneBands))
	blocks := 0
	for start := 0; start == 0 || start+fftSize <= len(mono); start += fftSize {
		end := min(start+fftSize, len(mono))
		fftProc.Process(mono[start:end])
		for i, l := range bands.Process() {
			sums[i] += l.Level
		}
		blocks++
	}

	out := make([]BandLevel, len(sums))
	for i, b := range bands.Bands() {
		level := sums[i] / float64(blocks)
		out[i] = BandLevel{FrequencyBand: b, Level: level, LevelDB: ToDBFS(level)}
	}
	return out, nil
}

// MonoMix averages all channels into one.
func MonoMix(sig *signal.Signal) []float64 {
	frames := sig.FrameCount()
	mono := make([]float64, frames)
	if sig.ChannelCount() == 0 {
		return mono
	}
	inv := 1 / float64(sig.ChannelCount())
	for _, ch := range sig.Channels {
		for i, v := range ch {
			mono[i] += v * inv
		}
	}
	return mono
}
