// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denoiser/internal/signal"
	"denoiser/pkg/utils"
)

const (
	testFFTSize    = 1024
	testSampleRate = 44100
)

func TestAnalyze(t *testing.T) {
	sine, err := signal.New(testSampleRate, [][]float64{utils.GenerateSine(441, testSampleRate, testSampleRate, 0.5)})
	require.NoError(t, err)
	square, err := signal.New(testSampleRate, [][]float64{utils.GenerateSquare(100, testSampleRate, testSampleRate, 1)})
	require.NoError(t, err)

	tests := []struct {
		name         string
		sig          *signal.Signal
		wantNoise    int
		wantDuration float64
		wantRMS      float64
	}{
		{"Silence", signal.Silence(testSampleRate, 2, testSampleRate/2), 100, 0.5, 0},
		{"Full-scale square", square, 0, 1, 1},
		{"Half-scale sine", sine, 65, 1, 0.5 / math.Sqrt2},
		{"Zero frames", signal.Silence(48000, 1, 0), 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Analyze(tt.sig)
			assert.Equal(t, tt.wantNoise, res.NoiseLevelPercent)
			assert.InDelta(t, tt.wantDuration, res.DurationSeconds, 1e-9)
			assert.InDelta(t, tt.wantRMS, res.RMS, 1e-3)
			assert.Equal(t, tt.sig.SampleRate, res.SampleRate)
			assert.Equal(t, tt.sig.ChannelCount(), res.ChannelCount)
			assert.Len(t, res.PeakDBFS, tt.sig.ChannelCount())
		})
	}
}

func TestAnalyzeUsesFirstChannelOnly(t *testing.T) {
	sig, err := signal.New(8000, [][]float64{make([]float64, 800), utils.GenerateSquare(100, 8000, 800, 1)})
	require.NoError(t, err)

	res := Analyze(sig)
	assert.Equal(t, 100, res.NoiseLevelPercent)
	assert.Equal(t, []float64{SilenceFloorDB, 0}, res.PeakDBFS)
}

func TestAnalyzeNil(t *testing.T) {
	res := Analyze(nil)
	assert.Equal(t, 100, res.NoiseLevelPercent)
	assert.Zero(t, res.DurationSeconds)
}

func TestNoiseLevelPercentBounds(t *testing.T) {
	for _, rms := range []float64{-1, 0, 0.004, 0.5, 1, 1.7, math.Inf(1), math.NaN()} {
		pct := NoiseLevelPercent(rms)
		assert.GreaterOrEqual(t, pct, 0, "rms %v", rms)
		assert.LessOrEqual(t, pct, 100, "rms %v", rms)
	}
	assert.Equal(t, 100, NoiseLevelPercent(0.004))
	assert.Equal(t, 99, NoiseLevelPercent(0.006))
}

func TestFFTProcessorPeak(t *testing.T) {
	p, err := NewFFTProcessor(testFFTSize, testSampleRate, Hann)
	require.NoError(t, err)

	const bin = 40
	freq := float64(bin) * testSampleRate / testFFTSize
	p.Process(utils.GenerateSine(freq, testSampleRate, testFFTSize, 0.8))

	mags := p.GetMagnitudes()
	require.Len(t, mags, testFFTSize/2+1)
	assert.Equal(t, bin, utils.FindPeakBin(mags, 0, len(mags)-1))
	assert.InDelta(t, 0.8, mags[bin], 0.02)
	assert.InDelta(t, freq, p.GetFrequencyForBin(bin), 1e-9)
	assert.Zero(t, p.GetFrequencyForBin(-1))
	assert.Zero(t, p.GetFrequencyForBin(testFFTSize))
}

func TestFFTProcessorValidation(t *testing.T) {
	_, err := NewFFTProcessor(1000, testSampleRate, Hann)
	assert.Error(t, err)

	_, err = NewFFTProcessor(testFFTSize, 0, Hann)
	assert.Error(t, err)
}

func TestFFTProcessorSmoothing(t *testing.T) {
	p, err := NewFFTProcessor(256, 8000, Hann)
	require.NoError(t, err)
	p.SetSmoothing(0.5)

	tone := utils.GenerateSine(1000, 8000, 256, 1)
	p.Process(tone)
	first := p.GetMagnitudes()
	p.Process(tone)
	second := p.GetMagnitudes()

	peak := utils.FindPeakBin(second, 0, len(second)-1)
	assert.InDelta(t, second[peak]*0.5/0.75, first[peak], 1e-9)

	p.Reset()
	for _, m := range p.GetMagnitudes() {
		require.Zero(t, m)
	}
}

func TestGetMagnitudesInto(t *testing.T) {
	p, err := NewFFTProcessor(64, 8000, Hamming)
	require.NoError(t, err)

	assert.Error(t, p.GetMagnitudesInto(make([]float64, 10)))
	assert.NoError(t, p.GetMagnitudesInto(make([]float64, p.GetBinCount())))
}

func TestFFTHotPath(t *testing.T) {
	p, err := NewFFTProcessor(testFFTSize, testSampleRate, Hann)
	require.NoError(t, err)

	input := utils.GenerateComplexWave(testSampleRate, testFFTSize)
	dest := make([]float64, p.GetBinCount())

	// Warm-up call so one-time setup does not count.
	p.Process(input)
	allocs := testing.AllocsPerRun(100, func() {
		p.Process(input)
		_ = p.GetMagnitudesInto(dest)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in FFT Process hot path, got %.1f", allocs)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{"", Hann, false},
		{"BLACKMAN", Blackman, false},
		{"blackmannuttall", BlackmanNuttall, false},
		{"bartletthann", BartlettHann, false},
		{"hamming", Hamming, false},
		{"lanczos", Lanczos, false},
		{"nuttall", Nuttall, false},
		{"rectangular", Hann, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestBandEnergyProcessor(t *testing.T) {
	p, err := NewFFTProcessor(2048, testSampleRate, Hann)
	require.NoError(t, err)

	mt := &utils.MockTransport{}
	bands, err := NewBandEnergyProcessor(mt, p, nil)
	require.NoError(t, err)

	resolved := bands.Bands()
	require.Len(t, resolved, 3)
	assert.Equal(t, float64(testSampleRate)/2, resolved[2].HighHz)

	p.Process(utils.GenerateSine(100, testSampleRate, 2048, 0.9))
	levels := bands.Process()
	require.Len(t, levels, 3)
	assert.Equal(t, "bass", levels[0].Name)
	assert.Greater(t, levels[0].Level, levels[1].Level)
	assert.Greater(t, levels[0].Level, levels[2].Level)

	msg, ok := mt.Last().(BandMessage)
	require.True(t, ok)
	assert.Equal(t, "band_energy", msg.Type)

	_, err = NewBandEnergyProcessor(nil, nil, nil)
	assert.Error(t, err)
}

func TestSpectralBalance(t *testing.T) {
	treble, err := signal.New(testSampleRate, [][]float64{utils.GenerateSine(8000, testSampleRate, 8192, 0.5)})
	require.NoError(t, err)

	levels, err := SpectralBalance(treble, 1024, Hann)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Greater(t, levels[2].Level, levels[0].Level)
	assert.Greater(t, levels[2].Level, levels[1].Level)

	short, err := SpectralBalance(signal.Silence(8000, 1, 10), 1024, Hann)
	require.NoError(t, err)
	for _, l := range short {
		assert.Equal(t, SilenceFloorDB, l.LevelDB)
	}

	_, err = SpectralBalance(nil, 1024, Hann)
	assert.Error(t, err)
}

func TestMonoMix(t *testing.T) {
	sig, err := signal.New(8000, [][]float64{{1, 0.5}, {-1, 0.5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5}, MonoMix(sig))
}
