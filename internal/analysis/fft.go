// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"denoiser/internal/log"
	"denoiser/pkg/bitint"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "bartletthann"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	input     []float64    // Buffer for windowed input signal.
	fftOutput []complex128 // Buffer for FFT complex results.
	magnitude []float64    // Buffer for calculated magnitudes.
	window    []float64    // Pre-calculated window coefficients.
	mu        sync.RWMutex // Protects concurrent access to magnitude buffer.
}

// FFTProcessor computes a windowed magnitude spectrum of float samples. It is
// fed from the visualization ticker and read concurrently by renderers, so the
// magnitude buffer is guarded by a RWMutex. Magnitudes are scaled so that a
// full-scale sine centered on a bin reads close to 1.
type FFTProcessor struct {
	fftCalculator *fourier.FFT // Reusable FFT calculator instance.
	fftSize       int          // Number of points for the FFT (power of 2).
	sampleRate    float64      // Sample rate of the input audio (Hz).
	scale         float64      // 2 / sum(window).
	smoothing     float64      // Temporal smoothing between frames, 0..1.
	workspace     fftWorkspace // Pre-allocated buffers.
}

var _ ClosableProcessor = (*FFTProcessor)(nil)
var _ FFTResultProvider = (*FFTProcessor)(nil)

// NewFFTProcessor allocates every buffer up front so Process never allocates.
// fftSize must be a power of two.
func NewFFTProcessor(fftSize int, sampleRate float64, windowType WindowFunc) (*FFTProcessor, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	windowCoeffs := make([]float64, fftSize)
	applyWindow(windowCoeffs, windowType)

	sum := 0.0
	for _, w := range windowCoeffs {
		sum += w
	}
	scale := 0.0
	if sum > 0 {
		scale = 2 / sum
	}

	// FFT output size for real input is N/2 + 1 complex values.
	magnitudeSize := fftSize/2 + 1

	log.Debugf("Analysis: Initializing FFTProcessor (Size: %d, SampleRate: %.1f Hz, Window: %v)", fftSize, sampleRate, windowType)

	return &FFTProcessor{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		sampleRate:    sampleRate,
		scale:         scale,
		workspace: fftWorkspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    windowCoeffs,
		},
	}, nil
}

// SetSmoothing sets how much of the previous frame is kept in each new one,
// clamped to [0, 0.99]. Zero shows every frame as is.
func (p *FFTProcessor) SetSmoothing(s float64) {
	p.workspace.mu.Lock()
	defer p.workspace.mu.Unlock()
	p.smoothing = min(max(s, 0), 0.99)
}

// Process windows the first fftSize samples (zero-padding a short block),
// runs the FFT and updates the magnitude buffer.
func (p *FFTProcessor) Process(samples []float64) {
	p.workspace.mu.Lock()
	defer p.workspace.mu.Unlock()

	n := len(samples)
	for i := 0; i < p.fftSize; i++ {
		if i < n {
			p.workspace.input[i] = samples[i] * p.workspace.window[i]
		} else {
			p.workspace.input[i] = 0
		}
	}

	p.fftCalculator.Coefficients(p.workspace.fftOutput, p.workspace.input)

	s := p.smoothing
	for i, c := range p.workspace.fftOutput {
		mag := cmplx.Abs(c) * p.scale
		p.workspace.magnitude[i] = s*p.workspace.magnitude[i] + (1-s)*mag
	}
}

// Reset clears the magnitude history.
func (p *FFTProcessor) Reset() {
	p.workspace.mu.Lock()
	defer p.workspace.mu.Unlock()
	clear(p.workspace.magnitude)
}

// GetMagnitudes returns a thread-safe copy of the latest magnitudes. It
// allocates; GetMagnitudesInto does not.
func (p *FFTProcessor) GetMagnitudes() []float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	magCopy := make([]float64, len(p.workspace.magnitude))
	copy(magCopy, p.workspace.magnitude)
	return magCopy
}

// GetMagnitudesInto copies the latest magnitudes into dest, which must have
// length fftSize/2 + 1.
func (p *FFTProcessor) GetMagnitudesInto(dest []float64) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	if len(dest) != len(p.workspace.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dest), len(p.workspace.magnitude))
	}

	copy(dest, p.workspace.magnitude)
	return nil
}

// GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (p *FFTProcessor) GetFrequencyForBin(binIndex int) float64 {
	// Sizes are fixed after construction, no lock needed.
	if binIndex < 0 || binIndex >= len(p.workspace.fftOutput) {
		return 0.0
	}
	return float64(binIndex) * (p.sampleRate / float64(p.fftSize))
}

func (p *FFTProcessor) GetFFTSize() int {
	return p.fftSize
}

// GetBinCount returns the number of magnitude bins, fftSize/2 + 1.
func (p *FFTProcessor) GetBinCount() int {
	return len(p.workspace.magnitude)
}

func (p *FFTProcessor) GetSampleRate() float64 {
	return p.sampleRate
}

// Close is a no-op; the processor holds no external resources.
func (p *FFTProcessor) Close() error {
	log.Debugf("Analysis: Closing FFTProcessor")
	return nil
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall back
// to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum window funcs multiply in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		log.Warnf("Analysis: Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
