// SPDX-License-Identifier: MIT
//
// Package cmd wires the core packages into the denoiser command line.
package cmd

import (
	"context"
	"io"

	"denoiser/internal/config"
	"denoiser/internal/log"
	"denoiser/pkg/build"

	"github.com/spf13/cobra"
)

// app holds what every subcommand shares: the resolved configuration and the
// persistent flags that can override it.
type app struct {
	cfg *config.Config

	configPath      string
	verbose         bool
	device          int
	outputDevice    int
	sampleRate      int
	channels        int
	framesPerBuffer int
	lowLatency      bool
	backend         string
	outputDir       string
}

// Execute runs the command line with args. ctx is cancelled on interrupt.
func Execute(ctx context.Context, args []string) error {
	if err := build.Initialize(); err != nil {
		log.Debugf("Build info incomplete, using development values: %v", err)
	}

	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	buildInfo := build.Get()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml when present)")

	// Audio Device Configuration
	flags.IntVarP(&a.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.IntVar(&a.outputDevice, "output-device", config.DefaultDeviceID,
		"Specify output device ID used by --play")
	flags.IntVarP(&a.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to record (1=mono, 2=stereo)")
	flags.IntVarP(&a.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&a.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	flags.BoolVarP(&a.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	flags.StringVar(&a.backend, "backend", config.DefaultBackend,
		"Capture backend: portaudio or pulse")

	// Output Configuration
	flags.StringVar(&a.outputDir, "output-dir", config.DefaultOutputDir,
		"Directory for processed files and recordings")

	// Debug Configuration
	flags.BoolVarP(&a.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		a.listCommand(),
		a.analyzeCommand(),
		a.processCommand(),
		a.recordCommand(),
		a.serveCommand(),
	)
	return rootCmd
}

// loadConfig resolves the configuration: file and environment first, then the
// flags the user actually set.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = a.device
	}
	if flags.Changed("output-device") {
		cfg.Audio.OutputDevice = a.outputDevice
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = a.sampleRate
	}
	if flags.Changed("channels") {
		cfg.Audio.Channels = a.channels
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = a.framesPerBuffer
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = a.lowLatency
	}
	if flags.Changed("backend") {
		cfg.Capture.Backend = a.backend
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = a.outputDir
	}
	if a.verbose {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
	log.SetOutput(cmd.ErrOrStderr())

	a.cfg = cfg
	return nil
}

// stdout is where command results go; logs stay on stderr.
func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
