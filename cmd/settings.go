// SPDX-License-Identifier: MIT
package cmd

import (
	"denoiser/internal/dsp"

	"github.com/spf13/cobra"
)

type settingFlag struct {
	name  string
	usage string
	field func(*dsp.Settings) *float64
}

var settingFlags = []settingFlag{
	{"noise-reduction", "Noise reduction amount, 0-100 (reported only)", func(s *dsp.Settings) *float64 { return &s.NoiseReductionAmount }},
	{"gain", "Output gain in dB, -20 to 20", func(s *dsp.Settings) *float64 { return &s.GainDB }},
	{"highpass", "High-pass corner in Hz, 20-500 (0 disables)", func(s *dsp.Settings) *float64 { return &s.HighPassHz }},
	{"lowpass", "Low-pass corner in Hz, 1000-20000 (20000 disables)", func(s *dsp.Settings) *float64 { return &s.LowPassHz }},
	{"threshold", "Compressor threshold in dB, -40 to 0", func(s *dsp.Settings) *float64 { return &s.Compressor.ThresholdDB }},
	{"ratio", "Compressor ratio, 1-20", func(s *dsp.Settings) *float64 { return &s.Compressor.Ratio }},
	{"attack", "Compressor attack in ms, 0-100", func(s *dsp.Settings) *float64 { return &s.Compressor.AttackMs }},
	{"release", "Compressor release in ms, 10-1000", func(s *dsp.Settings) *float64 { return &s.Compressor.ReleaseMs }},
	{"bass", "Bass shelf at 320 Hz in dB, -12 to 12", func(s *dsp.Settings) *float64 { return &s.Equalizer.BassDB }},
	{"mid", "Mid peak at 1 kHz in dB, -12 to 12", func(s *dsp.Settings) *float64 { return &s.Equalizer.MidDB }},
	{"treble", "Treble shelf at 3.2 kHz in dB, -12 to 12", func(s *dsp.Settings) *float64 { return &s.Equalizer.TrebleDB }},
}

// bindSettingsFlags registers one flag per processing parameter. The returned
// settings only receive flag values; applySettingsFlags merges them.
func bindSettingsFlags(cmd *cobra.Command) *dsp.Settings {
	scratch := dsp.DefaultSettings()
	for _, f := range settingFlags {
		p := f.field(&scratch)
		cmd.Flags().Float64Var(p, f.name, *p, f.usage)
	}
	cmd.Flags().Bool("identity", false, "Start from pass-through settings instead of the configured ones")
	return &scratch
}

// applySettingsFlags overrides base with every flag the user set and returns
// the normalized result.
func applySettingsFlags(cmd *cobra.Command, flagged *dsp.Settings, base dsp.Settings) dsp.Settings {
	flags := cmd.Flags()
	if identity, _ := flags.GetBool("identity"); identity {
		base = dsp.IdentitySettings()
	}
	for _, f := range settingFlags {
		if flags.Changed(f.name) {
			*f.field(&base) = *f.field(flagged)
		}
	}
	return base.Normalize()
}
