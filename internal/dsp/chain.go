// SPDX-License-Identifier: MIT
/*
Package dsp builds and runs the offline enhancement chain.

BuildChain turns Settings into an ordered list of stages. The order is fixed:

	high-pass -> low-pass -> compressor -> low shelf -> peaking -> high shelf -> gain

Only the compressor is unconditional; every other stage is omitted when its
parameter says it is disabled. Render folds the chain over a copy of the
signal, so the input is never modified and identical inputs always produce
identical outputs.
*/
package dsp

import (
	"fmt"
	"strings"
)

// Fixed stage parameters.
const (
	FilterQ         = 0.7
	LowShelfHz      = 320.0
	PeakingHz       = 1000.0
	HighShelfHz     = 3200.0
	LowPassDisabled = MaxLowPassHz
)

// Kind identifies a stage in the chain.
type Kind int

const (
	KindHighPass Kind = iota + 1
	KindLowPass
	KindCompressor
	KindLowShelf
	KindPeaking
	KindHighShelf
	KindGain
)

func (k Kind) String() string {
	switch k {
	case KindHighPass:
		return "highpass"
	case KindLowPass:
		return "lowpass"
	case KindCompressor:
		return "compressor"
	case KindLowShelf:
		return "lowshelf"
	case KindPeaking:
		return "peaking"
	case KindHighShelf:
		return "highshelf"
	case KindGain:
		return "gain"
	default:
		return "unknown"
	}
}

// Stage describes one step of the chain. Which fields are meaningful depends
// on Kind: filters use FreqHz (and Q for pass and peaking filters), EQ and
// gain stages use GainDB, the compressor uses Compressor.
type Stage struct {
	Kind       Kind
	FreqHz     float64
	Q          float64
	GainDB     float64
	Compressor CompressorSettings
}

func (s Stage) String() string {
	switch s.Kind {
	case KindHighPass, KindLowPass:
		return fmt.Sprintf("%s(%.0f Hz, Q=%.1f)", s.Kind, s.FreqHz, s.Q)
	case KindPeaking:
		return fmt.Sprintf("%s(%.0f Hz, Q=%.1f, %+.1f dB)", s.Kind, s.FreqHz, s.Q, s.GainDB)
	case KindLowShelf, KindHighShelf:
		return fmt.Sprintf("%s(%.0f Hz, %+.1f dB)", s.Kind, s.FreqHz, s.GainDB)
	case KindCompressor:
		c := s.Compressor
		return fmt.Sprintf("%s(%.1f dB, %.1f:1, %.0f/%.0f ms)", s.Kind, c.ThresholdDB, c.Ratio, c.AttackMs, c.ReleaseMs)
	case KindGain:
		return fmt.Sprintf("%s(%+.1f dB)", s.Kind, s.GainDB)
	default:
		return s.Kind.String()
	}
}

// Chain is an ordered stage list produced by BuildChain.
type Chain []Stage

func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, s := range c {
		parts[i] = s.String()
	}
	return strings.Join(parts, " -> ")
}

// Kinds returns the stage kinds in order.
func (c Chain) Kinds() []Kind {
	kinds := make([]Kind, len(c))
	for i, s := range c {
		kinds[i] = s.Kind
	}
	return kinds
}

// BuildChain normalizes settings and returns the stages to run, in order.
func BuildChain(settings Settings) Chain {
	s := settings.Normalize()
	chain := make(Chain, 0, 7)

	if s.HighPassHz > 0 {
		chain = append(chain, Stage{Kind: KindHighPass, FreqHz: s.HighPassHz, Q: FilterQ})
	}
	if s.LowPassHz < LowPassDisabled {
		chain = append(chain, Stage{Kind: KindLowPass, FreqHz: s.LowPassHz, Q: FilterQ})
	}

	chain = append(chain, Stage{Kind: KindCompressor, Compressor: s.Compressor})

	if eq := s.Equalizer; eq.BassDB != 0 {
		chain = append(chain, Stage{Kind: KindLowShelf, FreqHz: LowShelfHz, GainDB: eq.BassDB})
	}
	if eq := s.Equalizer; eq.MidDB != 0 {
		chain = append(chain, Stage{Kind: KindPeaking, FreqHz: PeakingHz, Q: FilterQ, GainDB: eq.MidDB})
	}
	if eq := s.Equalizer; eq.TrebleDB != 0 {
		chain = append(chain, Stage{Kind: KindHighShelf, FreqHz: HighShelfHz, GainDB: eq.TrebleDB})
	}
	if s.GainDB != 0 {
		chain = append(chain, Stage{Kind: KindGain, GainDB: s.GainDB})
	}
	return chain
}

// apply runs the stage over channels in place.
func (s Stage) apply(channels [][]float64, sampleRate int) {
	switch s.Kind {
	case KindCompressor:
		newCompressor(s.Compressor, sampleRate).process(channels, channels)
	case KindGain:
		g := DBToLinear(s.GainDB)
		for _, ch := range channels {
			for i := range ch {
				ch[i] *= g
			}
		}
	default:
		b := s.design(sampleRate)
		for _, ch := range channels {
			b.filter(ch, ch)
		}
	}
}

func (s Stage) design(sampleRate int) biquad {
	switch s.Kind {
	case KindHighPass:
		return highPassBiquad(s.FreqHz, s.Q, sampleRate)
	case KindLowPass:
		return lowPassBiquad(s.FreqHz, s.Q, sampleRate)
	case KindLowShelf:
		return lowShelfBiquad(s.FreqHz, s.GainDB, sampleRate)
	case KindPeaking:
		return peakingBiquad(s.FreqHz, s.Q, s.GainDB, sampleRate)
	case KindHighShelf:
		return highShelfBiquad(s.FreqHz, s.GainDB, sampleRate)
	default:
		return biquad{b0: 1}
	}
}
