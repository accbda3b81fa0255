// SPDX-License-Identifier: MIT
package analysis

// SampleProcessor consumes blocks of mono float samples. Implementations are
// called from the visualization ticker and must not block.
type SampleProcessor interface {
	Process(samples []float64)
}

// ClosableProcessor combines SampleProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	SampleProcessor
	Close() error
}

// FFTResultProvider defines an interface for components that can provide FFT
// magnitude results. It decouples consumers such as BandEnergyProcessor from
// the concrete FFT implementation.
type FFTResultProvider interface {
	GetMagnitudes() []float64                // GetMagnitudes returns a thread-safe copy of the latest FFT magnitude spectrum.
	GetFrequencyForBin(binIndex int) float64 // GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
	GetFFTSize() int                         // GetFFTSize returns the size (number of points) of the FFT.
	GetSampleRate() float64                  // GetSampleRate returns the sample rate used for the FFT analysis.
}
