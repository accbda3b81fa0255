// SPDX-License-Identifier: MIT
package dsp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denoiser/internal/signal"
	"denoiser/pkg/utils"
)

const testRate = 44100

func sine(t *testing.T, freq, amp float64, frames int) *signal.Signal {
	t.Helper()
	sig, err := signal.New(testRate, [][]float64{utils.GenerateSine(freq, testRate, frames, amp)})
	require.NoError(t, err)
	return sig
}

// steadyRMS skips the filter transient at the start of the buffer.
func steadyRMS(x []float64) float64 {
	x = x[len(x)/2:]
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func peakAbs(x []float64) float64 {
	p := 0.0
	for _, v := range x {
		p = math.Max(p, math.Abs(v))
	}
	return p
}

func TestBuildChainOrder(t *testing.T) {
	s := DefaultSettings()
	s.LowPassHz = 8000
	s.Equalizer = EqualizerSettings{BassDB: 3, MidDB: -2, TrebleDB: 4}
	s.GainDB = 6

	chain := BuildChain(s)
	assert.Equal(t, []Kind{
		KindHighPass, KindLowPass, KindCompressor,
		KindLowShelf, KindPeaking, KindHighShelf, KindGain,
	}, chain.Kinds())

	assert.Equal(t, 80.0, chain[0].FreqHz)
	assert.Equal(t, FilterQ, chain[0].Q)
	assert.Equal(t, 8000.0, chain[1].FreqHz)
	assert.Equal(t, LowShelfHz, chain[3].FreqHz)
	assert.Equal(t, PeakingHz, chain[4].FreqHz)
	assert.Equal(t, FilterQ, chain[4].Q)
	assert.Equal(t, HighShelfHz, chain[5].FreqHz)
	assert.Equal(t, 6.0, chain[6].GainDB)
}

func TestBuildChainSkipsDisabledStages(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     []Kind
	}{
		{"Identity", IdentitySettings(), []Kind{KindCompressor}},
		{"Defaults", DefaultSettings(), []Kind{KindHighPass, KindCompressor}},
		{
			"Treble and gain only",
			func() Settings {
				s := IdentitySettings()
				s.Equalizer.TrebleDB = -3
				s.GainDB = -1
				return s
			}(),
			[]Kind{KindCompressor, KindHighShelf, KindGain},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildChain(tt.settings).Kinds())
		})
	}
}

func TestNormalize(t *testing.T) {
	in := Settings{
		NoiseReductionAmount: 150,
		GainDB:               -40,
		HighPassHz:           5,
		LowPassHz:            math.NaN(),
		Compressor: CompressorSettings{
			ThresholdDB: 3,
			Ratio:       0.5,
			AttackMs:    -1,
			ReleaseMs:   math.Inf(1),
		},
		Equalizer: EqualizerSettings{BassDB: 20, MidDB: -20, TrebleDB: math.NaN()},
	}
	out := in.Normalize()
	assert.Equal(t, -40.0, in.GainDB, "Normalize must not modify its receiver")
	assert.True(t, math.IsNaN(in.LowPassHz), "Normalize must not modify its receiver")

	assert.Equal(t, 100.0, out.NoiseReductionAmount)
	assert.Equal(t, MinGainDB, out.GainDB)
	assert.Equal(t, MinHighPassHz, out.HighPassHz)
	assert.Equal(t, MaxLowPassHz, out.LowPassHz)
	assert.Equal(t, MaxThresholdDB, out.Compressor.ThresholdDB)
	assert.Equal(t, MinRatio, out.Compressor.Ratio)
	assert.Equal(t, MinAttackMs, out.Compressor.AttackMs)
	assert.Equal(t, DefaultSettings().Compressor.ReleaseMs, out.Compressor.ReleaseMs)
	assert.Equal(t, EqualizerSettings{BassDB: MaxEQDB, MidDB: MinEQDB, TrebleDB: 0}, out.Equalizer)

	neg := Settings{HighPassHz: -10}.Normalize()
	assert.Equal(t, 0.0, neg.HighPassHz)
}

func TestRenderIdentity(t *testing.T) {
	left := utils.GenerateComplexWave(testRate, 4096)
	right := utils.GenerateSine(3000, testRate, 4096, 1.3)
	sig, err := signal.New(testRate, [][]float64{left, right})
	require.NoError(t, err)

	out, err := Render(sig, IdentitySettings())
	require.NoError(t, err)
	assert.Equal(t, sig.Channels, out.Channels)
	assert.Equal(t, sig.SampleRate, out.SampleRate)
}

func TestRenderGainIsLinear(t *testing.T) {
	sig := sine(t, 440, 0.25, 2048)
	s := IdentitySettings()
	s.GainDB = 6

	out, err := Render(sig, s)
	require.NoError(t, err)

	factor := math.Pow(10, 6.0/20)
	for i, v := range sig.Channels[0] {
		assert.InDelta(t, v*factor, out.Channels[0][i], 1e-12)
	}
}

func TestRenderDoesNotClamp(t *testing.T) {
	sig := sine(t, 440, 0.9, 2048)
	s := IdentitySettings()
	s.GainDB = 20

	out, err := Render(sig, s)
	require.NoError(t, err)
	assert.Greater(t, peakAbs(out.Channels[0]), 1.0)
}

func TestRenderPreservesShapeAndInput(t *testing.T) {
	sig, err := signal.New(22050, [][]float64{
		utils.GenerateSine(100, 22050, 3000, 0.8),
		utils.GenerateSine(5000, 22050, 3000, 0.8),
	})
	require.NoError(t, err)
	before := sig.Clone()

	s := DefaultSettings()
	s.LowPassHz = 4000
	s.Equalizer = EqualizerSettings{BassDB: 6, MidDB: 3, TrebleDB: -6}
	s.GainDB = 2

	out, err := Render(sig, s)
	require.NoError(t, err)
	assert.Equal(t, before, sig, "input was modified")
	assert.Equal(t, sig.SampleRate, out.SampleRate)
	assert.Equal(t, sig.ChannelCount(), out.ChannelCount())
	assert.Equal(t, sig.FrameCount(), out.FrameCount())

	again, err := Render(sig, s)
	require.NoError(t, err)
	assert.Equal(t, out, again, "render is not deterministic")
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(signal.Silence(testRate, 1, 0), DefaultSettings())
	assert.ErrorIs(t, err, signal.ErrRender)

	_, err = Render(nil, DefaultSettings())
	assert.ErrorIs(t, err, signal.ErrRender)
}

func TestFilterResponse(t *testing.T) {
	const frames = testRate / 2
	tests := []struct {
		name     string
		freq     float64
		settings func() Settings
		minRatio float64
		maxRatio float64
	}{
		{
			"High-pass attenuates rumble", 30,
			func() Settings { s := IdentitySettings(); s.HighPassHz = 300; return s },
			0, 0.1,
		},
		{
			"High-pass passes voice", 2000,
			func() Settings { s := IdentitySettings(); s.HighPassHz = 80; return s },
			0.98, 1.02,
		},
		{
			"Low-pass attenuates hiss", 12000,
			func() Settings { s := IdentitySettings(); s.LowPassHz = 1000; return s },
			0, 0.05,
		},
		{
			"Low shelf boosts bass", 40,
			func() Settings { s := IdentitySettings(); s.Equalizer.BassDB = 6; return s },
			1.9, 2.05,
		},
		{
			"Peaking at center", 1000,
			func() Settings { s := IdentitySettings(); s.Equalizer.MidDB = 6; return s },
			1.95, 2.05,
		},
		{
			"High shelf cuts treble", 15000,
			func() Settings { s := IdentitySettings(); s.Equalizer.TrebleDB = -6; return s },
			0.48, 0.53,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := sine(t, tt.freq, 0.01, frames)
			out, err := Render(sig, tt.settings())
			require.NoError(t, err)

			ratio := steadyRMS(out.Channels[0]) / steadyRMS(sig.Channels[0])
			assert.GreaterOrEqual(t, ratio, tt.minRatio)
			assert.LessOrEqual(t, ratio, tt.maxRatio)
		})
	}
}

func TestCornerClampedBelowNyquist(t *testing.T) {
	sig := sine(t, 440, 0.1, 4096)
	b := lowPassBiquad(1e6, FilterQ, 8000)
	out := make([]float64, len(sig.Channels[0]))
	b.filter(out, sig.Channels[0])
	for _, v := range out {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestCompressor(t *testing.T) {
	t.Run("Below threshold is untouched", func(t *testing.T) {
		sig := sine(t, 440, 0.01, 4096)
		s := DefaultSettings()
		s.HighPassHz = 0

		out, err := Render(sig, s)
		require.NoError(t, err)
		assert.Equal(t, sig.Channels[0], out.Channels[0])
	})

	t.Run("Loud input is reduced toward threshold", func(t *testing.T) {
		sig := sine(t, 440, 0.9, testRate)
		s := IdentitySettings()
		s.Compressor = CompressorSettings{ThresholdDB: -24, Ratio: 4, AttackMs: 0, ReleaseMs: 250}

		out, err := Render(sig, s)
		require.NoError(t, err)

		// 0.9 is about -0.9 dBFS: 23.1 dB over, 5.8 dB after 4:1, so about -18.2 dBFS.
		peak := peakAbs(out.Channels[0][testRate/2:])
		assert.InDelta(t, DBToLinear(-18.2), peak, 0.01)
	})

	t.Run("Detection is linked across channels", func(t *testing.T) {
		loud := utils.GenerateSine(440, testRate, 8192, 0.9)
		quiet := utils.GenerateSine(440, testRate, 8192, 0.01)
		sig, err := signal.New(testRate, [][]float64{loud, quiet})
		require.NoError(t, err)

		s := IdentitySettings()
		s.Compressor = CompressorSettings{ThresholdDB: -24, Ratio: 4, AttackMs: 0, ReleaseMs: 100}
		out, err := Render(sig, s)
		require.NoError(t, err)
		assert.Less(t, peakAbs(out.Channels[1][4096:]), 0.005)
	})

	t.Run("Smoothing coefficients", func(t *testing.T) {
		assert.Equal(t, 0.0, smoothingCoef(0, testRate))
		assert.InDelta(t, math.Exp(-1/(0.003*testRate)), smoothingCoef(3, testRate), 1e-15)
	})
}

func TestRenderContext(t *testing.T) {
	sig := sine(t, 440, 0.5, 1024)

	out, err := RenderContext(context.Background(), sig, DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, sig.FrameCount(), out.FrameCount())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RenderContext(ctx, sig, DefaultSettings())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChainString(t *testing.T) {
	chain := BuildChain(DefaultSettings())
	assert.Equal(t, "highpass(80 Hz, Q=0.7) -> compressor(-24.0 dB, 4.0:1, 3/250 ms)", chain.String())
}
