// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"

	"denoiser/internal/log"
	"denoiser/internal/transport"
)

// FrequencyBand is a named [LowHz, HighHz) range. HighHz of zero extends the
// band to Nyquist.
type FrequencyBand struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"lowHz"`
	HighHz float64 `json:"highHz"`
}

// ToneBands splits the spectrum at the shelf corners of the equalizer, so the
// reported levels line up with the bass, mid and treble controls.
var ToneBands = []FrequencyBand{
	{Name: "bass", LowHz: 0, HighHz: 320},
	{Name: "mid", LowHz: 320, HighHz: 3200},
	{Name: "treble", LowHz: 3200, HighHz: 0},
}

// BandLevel is the RMS magnitude of the FFT bins falling in one band.
type BandLevel struct {
	FrequencyBand
	Level   float64 `json:"level"`
	LevelDB float64 `json:"levelDb"`
}

// BandMessage is what BandEnergyProcessor publishes on its transport.
type BandMessage struct {
	Type  string      `json:"type"`
	Bands []BandLevel `json:"bands"`
}

// BandEnergyProcessor reduces the latest FFT frame of a provider to per-band
// levels.
type BandEnergyProcessor struct {
	transport   transport.Transport
	bands       []FrequencyBand
	fftProvider FFTResultProvider
	binBand     []int // band index per FFT bin, -1 when outside every band
	mags        []float64
	energy      []float64
	counts      []int
}

// NewBandEnergyProcessor maps every FFT bin of the provider to a band once.
// t may be nil when the caller only wants the return value of Process.
func NewBandEnergyProcessor(t transport.Transport, fftProvider FFTResultProvider, bands []FrequencyBand) (*BandEnergyProcessor, error) {
	if fftProvider == nil {
		return nil, errors.New("band energy processor requires an FFT result provider")
	}
	if len(bands) == 0 {
		bands = ToneBands
	}

	nyquist := fftProvider.GetSampleRate() / 2
	resolved := make([]FrequencyBand, len(bands))
	for i, b := range bands {
		if b.HighHz <= 0 || b.HighHz > nyquist {
			b.HighHz = nyquist
		}
		resolved[i] = b
	}

	binCount := fftProvider.GetFFTSize()/2 + 1
	binBand := make([]int, binCount)
	for i := range binBand {
		binBand[i] = -1
		freq := fftProvider.GetFrequencyForBin(i)
		for j, b := range resolved {
			// The last band is closed so the Nyquist bin is counted.
			if freq >= b.LowHz && (freq < b.HighHz || (j == len(resolved)-1 && freq <= b.HighHz)) {
				binBand[i] = j
				break
			}
		}
	}

	log.Debugf("Analysis: Initializing BandEnergyProcessor with %d bands.", len(resolved))
	return &BandEnergyProcessor{
		transport:   t,
		bands:       resolved,
		fftProvider: fftProvider,
		binBand:     binBand,
		mags:        make([]float64, binCount),
		energy:      make([]float64, len(resolved)),
		counts:      make([]int, len(resolved)),
	}, nil
}

// Bands returns the resolved band definitions.
func (p *BandEnergyProcessor) Bands() []FrequencyBand {
	out := make([]FrequencyBand, len(p.bands))
	copy(out, p.bands)
	return out
}

// Process reads the provider's latest magnitudes and returns one level per
// band. When a transport is set the levels are also published on it.
func (p *BandEnergyProcessor) Process() []BandLevel {
	if mp, ok := p.fftProvider.(interface{ GetMagnitudesInto([]float64) error }); ok {
		if err := mp.GetMagnitudesInto(p.mags); err != nil {
			copy(p.mags, p.fftProvider.GetMagnitudes())
		}
	} else {
		copy(p.mags, p.fftProvider.GetMagnitudes())
	}

	clear(p.energy)
	clear(p.counts)
	for i, m := range p.mags {
		if b := p.binBand[i]; b >= 0 {
			p.energy[b] += m * m
			p.counts[b]++
		}
	}

	levels := make([]BandLevel, len(p.bands))
	for i, b := range p.bands {
		level := 0.0
		if p.counts[i] > 0 {
			level = math.Sqrt(p.energy[i] / float64(p.counts[i]))
		}
		levels[i] = BandLevel{FrequencyBand: b, Level: level, LevelDB: ToDBFS(level)}
	}

	if p.transport != nil {
		if err := p.transport.Send(BandMessage{Type: "band_energy", Bands: levels}); err != nil {
			log.Warnf("BandEnergyProcessor: Error sending band energy data: %v", err)
		}
	}
	return levels
}
