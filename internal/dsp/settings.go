// SPDX-License-Identifier: MIT
package dsp

import "math"

// Parameter ranges. Values outside them are clamped by Normalize.
const (
	MinGainDB = -20.0
	MaxGainDB = 20.0

	MinHighPassHz = 20.0
	MaxHighPassHz = 500.0

	MinLowPassHz = 1000.0
	MaxLowPassHz = 20000.0

	MinThresholdDB = -40.0
	MaxThresholdDB = 0.0
	MinRatio       = 1.0
	MaxRatio       = 20.0
	MinAttackMs    = 0.0
	MaxAttackMs    = 100.0
	MinReleaseMs   = 10.0
	MaxReleaseMs   = 1000.0

	MinEQDB = -12.0
	MaxEQDB = 12.0

	MinNoiseReduction = 0.0
	MaxNoiseReduction = 100.0
)

// Settings is the full set of user-facing processing parameters.
type Settings struct {
	// NoiseReductionAmount is carried and reported but no stage consumes it.
	NoiseReductionAmount float64 `yaml:"noise_reduction" json:"noiseReductionAmount"`

	GainDB     float64 `yaml:"gain_db" json:"gainDb"`
	HighPassHz float64 `yaml:"high_pass_hz" json:"highPassHz"`
	LowPassHz  float64 `yaml:"low_pass_hz" json:"lowPassHz"`

	Compressor CompressorSettings `yaml:"compressor" json:"compressor"`
	Equalizer  EqualizerSettings  `yaml:"equalizer" json:"equalizer"`
}

type CompressorSettings struct {
	ThresholdDB float64 `yaml:"threshold_db" json:"thresholdDb"`
	Ratio       float64 `yaml:"ratio" json:"ratio"`
	AttackMs    float64 `yaml:"attack_ms" json:"attackMs"`
	ReleaseMs   float64 `yaml:"release_ms" json:"releaseMs"`
}

type EqualizerSettings struct {
	BassDB   float64 `yaml:"bass_db" json:"bassDb"`
	MidDB    float64 `yaml:"mid_db" json:"midDb"`
	TrebleDB float64 `yaml:"treble_db" json:"trebleDb"`
}

// DefaultSettings returns the reference voice preset.
func DefaultSettings() Settings {
	return Settings{
		NoiseReductionAmount: 50,
		GainDB:               0,
		HighPassHz:           80,
		LowPassHz:            MaxLowPassHz,
		Compressor: CompressorSettings{
			ThresholdDB: -24,
			Ratio:       4,
			AttackMs:    3,
			ReleaseMs:   250,
		},
	}
}

// IdentitySettings disables every optional stage and sets the compressor to a
// 0 dB threshold at 1:1, so rendering returns the input unchanged.
func IdentitySettings() Settings {
	return Settings{
		HighPassHz: 0,
		LowPassHz:  MaxLowPassHz,
		Compressor: CompressorSettings{
			ThresholdDB: 0,
			Ratio:       1,
			AttackMs:    0,
			ReleaseMs:   MinReleaseMs,
		},
	}
}

// Normalize returns a copy with every field clamped to its range. Non-finite
// values fall back to the default for that field. A positive high-pass corner
// below the minimum is raised to it; zero or negative disables the stage.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()

	out := s
	out.NoiseReductionAmount = clampOr(s.NoiseReductionAmount, MinNoiseReduction, MaxNoiseReduction, def.NoiseReductionAmount)
	out.GainDB = clampOr(s.GainDB, MinGainDB, MaxGainDB, def.GainDB)

	switch hp := s.HighPassHz; {
	case !isFinite(hp):
		out.HighPassHz = def.HighPassHz
	case hp <= 0:
		out.HighPassHz = 0
	default:
		out.HighPassHz = clamp(hp, MinHighPassHz, MaxHighPassHz)
	}
	out.LowPassHz = clampOr(s.LowPassHz, MinLowPassHz, MaxLowPassHz, def.LowPassHz)

	c := s.Compressor
	out.Compressor = CompressorSettings{
		ThresholdDB: clampOr(c.ThresholdDB, MinThresholdDB, MaxThresholdDB, def.Compressor.ThresholdDB),
		Ratio:       clampOr(c.Ratio, MinRatio, MaxRatio, def.Compressor.Ratio),
		AttackMs:    clampOr(c.AttackMs, MinAttackMs, MaxAttackMs, def.Compressor.AttackMs),
		ReleaseMs:   clampOr(c.ReleaseMs, MinReleaseMs, MaxReleaseMs, def.Compressor.ReleaseMs),
	}

	eq := s.Equalizer
	out.Equalizer = EqualizerSettings{
		BassDB:   clampOr(eq.BassDB, MinEQDB, MaxEQDB, 0),
		MidDB:    clampOr(eq.MidDB, MinEQDB, MaxEQDB, 0),
		TrebleDB: clampOr(eq.TrebleDB, MinEQDB, MaxEQDB, 0),
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampOr(v, lo, hi, fallback float64) float64 {
	if !isFinite(v) {
		return fallback
	}
	return clamp(v, lo, hi)
}

// DBToLinear converts decibels to a linear amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts a linear amplitude to decibels. Zero maps to -Inf.
func LinearToDB(v float64) float64 {
	return 20 * math.Log10(v)
}
