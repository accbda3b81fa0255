// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"denoiser/internal/analysis"
	"denoiser/internal/dsp"
	"denoiser/internal/log"
	"denoiser/pkg/bitint"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug         bool                `yaml:"debug"`         // Force debug logging.
	LogLevel      string              `yaml:"log_level"`     // "debug", "info", "warn" or "error".
	Audio         AudioConfig         `yaml:"audio"`         // Device and stream format.
	Capture       CaptureConfig       `yaml:"capture"`       // Recording sessions.
	Processing    dsp.Settings        `yaml:"processing"`    // Enhancement chain defaults.
	Visualization VisualizationConfig `yaml:"visualization"` // Level meter and spectrum output.
	Output        OutputConfig        `yaml:"output"`        // Where results are written.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice     int  `yaml:"input_device"`      // PortAudio device index for capture (-1 for default).
	OutputDevice    int  `yaml:"output_device"`     // PortAudio device index for playback (-1 for default).
	SampleRate      int  `yaml:"sample_rate"`       // Capture sample rate in Hz.
	Channels        int  `yaml:"channels"`          // Capture channels, 1 or 2.
	FramesPerBuffer int  `yaml:"frames_per_buffer"` // Frames per device callback.
	LowLatency      bool `yaml:"low_latency"`       // Request low latency settings from PortAudio.
}

// CaptureConfig holds settings for recording sessions.
type CaptureConfig struct {
	Backend     string `yaml:"backend"`              // "portaudio" or "pulse".
	MaxDuration int    `yaml:"max_duration_seconds"` // Stop automatically after this many seconds (0 for unlimited).
}

// MaxDurationDuration returns MaxDuration as a time.Duration.
func (c CaptureConfig) MaxDurationDuration() time.Duration {
	return time.Duration(c.MaxDuration) * time.Second
}

// VisualizationConfig holds settings for the level meter and spectrum transports.
type VisualizationConfig struct {
	FFTSize       int           `yaml:"fft_size"`       // Power of two.
	Window        string        `yaml:"window"`         // Window function name, e.g. "Hann".
	Interval      time.Duration `yaml:"interval"`       // Tap analysis interval.
	Smoothing     float64       `yaml:"smoothing"`      // Spectrum smoothing between frames, 0..0.99.
	GateThreshold float64       `yaml:"gate_threshold"` // Peak level below which the spectrum rests, 0..1.
	WebSocketAddr string        `yaml:"websocket_addr"` // Listen address for the spectrum websocket.
	UDPEnabled    bool          `yaml:"udp_enabled"`    // Also publish spectrum packets over UDP.
	UDPTarget     string        `yaml:"udp_target"`     // "host:port" for UDP packets.
	UDPInterval   time.Duration `yaml:"udp_interval"`   // Interval between UDP packets.
}

// OutputConfig holds settings for written files.
type OutputConfig struct {
	Dir string `yaml:"dir"` // Directory for processed files and recordings.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Configuration loaded from %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		if path == "" {
			return nil, fmt.Errorf("invalid default configuration: %w", err)
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and normalizes the processing settings in
// place. Out-of-range processing values are clamped, not rejected.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		result = multierror.Append(result, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		result = multierror.Append(result, fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice))
	}
	if a.OutputDevice < MinDeviceID {
		result = multierror.Append(result, fmt.Errorf("audio.output_device must be >= %d, got %d", MinDeviceID, a.OutputDevice))
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		result = multierror.Append(result, fmt.Errorf("audio.sample_rate must be in [%d, %d], got %d", MinSampleRate, MaxSampleRate, a.SampleRate))
	}
	if a.Channels < 1 || a.Channels > MaxChannels {
		result = multierror.Append(result, fmt.Errorf("audio.channels must be 1 or 2, got %d", a.Channels))
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames || !bitint.IsPowerOfTwo(a.FramesPerBuffer) {
		result = multierror.Append(result, fmt.Errorf("audio.frames_per_buffer must be a power of 2 up to %d, got %d", MaxBufferFrames, a.FramesPerBuffer))
	}

	switch c.Capture.Backend {
	case BackendPortAudio, BackendPulse:
	default:
		result = multierror.Append(result, fmt.Errorf("capture.backend must be %q or %q, got %q", BackendPortAudio, BackendPulse, c.Capture.Backend))
	}
	if c.Capture.MaxDuration < 0 {
		result = multierror.Append(result, fmt.Errorf("capture.max_duration_seconds must not be negative, got %d", c.Capture.MaxDuration))
	}

	v := c.Visualization
	if v.FFTSize < MinFFTSize || v.FFTSize > MaxFFTSize || !bitint.IsPowerOfTwo(v.FFTSize) {
		result = multierror.Append(result, fmt.Errorf("visualization.fft_size must be a power of 2 in [%d, %d], got %d", MinFFTSize, MaxFFTSize, v.FFTSize))
	}
	if _, err := analysis.ParseWindowFunc(v.Window); err != nil {
		result = multierror.Append(result, fmt.Errorf("visualization.window: %w", err))
	}
	if v.Interval <= 0 {
		result = multierror.Append(result, fmt.Errorf("visualization.interval must be positive, got %s", v.Interval))
	}
	if v.Smoothing < 0 || v.Smoothing >= 1 || math.IsNaN(v.Smoothing) {
		result = multierror.Append(result, fmt.Errorf("visualization.smoothing must be in [0, 1), got %v", v.Smoothing))
	}
	if v.GateThreshold < 0 || v.GateThreshold > 1 || math.IsNaN(v.GateThreshold) {
		result = multierror.Append(result, fmt.Errorf("visualization.gate_threshold must be in [0, 1], got %v", v.GateThreshold))
	}
	if v.UDPEnabled {
		if v.UDPTarget == "" || !strings.Contains(v.UDPTarget, ":") {
			result = multierror.Append(result, fmt.Errorf("visualization.udp_target '%s' appears invalid (missing port?)", v.UDPTarget))
		}
		if v.UDPInterval <= 0 {
			result = multierror.Append(result, fmt.Errorf("visualization.udp_interval must be positive when UDP is enabled"))
		}
	}

	if c.Output.Dir == "" {
		result = multierror.Append(result, errors.New("output.dir must not be empty"))
	}

	c.Processing = c.Processing.Normalize()

	return result.ErrorOrNil()
}

// applyEnvOverrides reads ENV_* variables. Unparseable values are ignored
// with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			log.Debugf("configuration: Overriding debug from env: %v", bVal)
		} else {
			log.Warnf("configuration: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Debugf("configuration: Overriding log_level from env: %s", val)
	}

	// ENV_CAPTURE_{...}

	// ENV_CAPTURE_BACKEND
	if val, ok := os.LookupEnv("ENV_CAPTURE_BACKEND"); ok {
		c.Capture.Backend = strings.ToLower(strings.TrimSpace(val))
		log.Debugf("configuration: Overriding capture.backend from env: %s", c.Capture.Backend)
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Visualization.UDPEnabled = bVal
			log.Debugf("configuration: Overriding visualization.udp_enabled from env: %v", bVal)
		} else {
			log.Warnf("configuration: Ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Visualization.UDPTarget = val
		log.Debugf("configuration: Overriding visualization.udp_target from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Visualization.UDPInterval = dur
			log.Debugf("configuration: Overriding visualization.udp_interval from env: %s", dur)
		} else {
			log.Warnf("configuration: Ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}

	// ENV_OUTPUT_DIR
	if val, ok := os.LookupEnv("ENV_OUTPUT_DIR"); ok {
		c.Output.Dir = val
		log.Debugf("configuration: Overriding output.dir from env: %s", val)
	}
}
