// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"denoiser/internal/dsp"
)

// Defaults and limits for the audio side of the configuration.
const (
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultChannels        = 1           // Mono capture
	DefaultFramesPerBuffer = 1024        // Balanced latency/performance
	DefaultLowLatency      = false

	DefaultBackend     = BackendPortAudio
	DefaultMaxDuration = 0 // Unlimited

	DefaultFFTSize     = 2048
	DefaultWindow      = "Hann"
	DefaultInterval    = 33 * time.Millisecond // ~30Hz
	DefaultSmoothing   = 0.5
	DefaultGateLevel   = 0.001
	DefaultWSAddr      = ":8080"
	DefaultUDPTarget   = "127.0.0.1:9090"
	DefaultUDPInterval = 16 * time.Millisecond
	DefaultOutputDir   = "."

	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxChannels     = 2
	MaxBufferFrames = 8192 // Maximum frames per buffer (power of 2)
	MinFFTSize      = 64
	MaxFFTSize      = 32768
)

// Capture backends.
const (
	BackendPortAudio = "portaudio"
	BackendPulse     = "pulse"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			Channels:        DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Capture: CaptureConfig{
			Backend:     DefaultBackend,
			MaxDuration: DefaultMaxDuration,
		},
		Processing: dsp.DefaultSettings(),
		Visualization: VisualizationConfig{
			FFTSize:       DefaultFFTSize,
			Window:        DefaultWindow,
			Interval:      DefaultInterval,
			Smoothing:     DefaultSmoothing,
			GateThreshold: DefaultGateLevel,
			WebSocketAddr: DefaultWSAddr,
			UDPEnabled:    false,
			UDPTarget:     DefaultUDPTarget,
			UDPInterval:   DefaultUDPInterval,
		},
		Output: OutputConfig{
			Dir: DefaultOutputDir,
		},
	}
}
