// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"denoiser/internal/audio"
	"denoiser/internal/audio/pulse"
	"denoiser/internal/capture"
	"denoiser/internal/config"
	"denoiser/internal/tui"
	"denoiser/pkg/build"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

// withEngine runs fn while holding the PortAudio engine.
func withEngine(fn func() error) (err error) {
	engine, err := audio.Acquire()
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := engine.Release(); releaseErr != nil {
			err = multierror.Append(err, releaseErr)
		}
	}()
	return fn()
}

// needsEngine reports whether the capture backend runs on PortAudio.
func needsEngine(cfg *config.Config) bool {
	return cfg.Capture.Backend == config.BackendPortAudio
}

func captureDevice(cfg *config.Config) capture.Device {
	if cfg.Capture.Backend == config.BackendPulse {
		return &pulse.Input{ClientName: build.Get().Name}
	}
	return &audio.PortAudioInput{
		DeviceID:        cfg.Audio.InputDevice,
		LowLatency:      cfg.Audio.LowLatency,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
	}
}

func playbackOutput(cfg *config.Config) *audio.PortAudioOutput {
	return &audio.PortAudioOutput{
		DeviceID:        cfg.Audio.OutputDevice,
		LowLatency:      cfg.Audio.LowLatency,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
	}
}

func (a *app) listCommand() *cobra.Command {
	var browse bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func() error {
				if !browse {
					return audio.ListDevices(stdout(cmd))
				}
				sel, err := tui.StartDeviceListUI(audio.HostDevices)
				if err != nil || sel == nil {
					return err
				}
				fmt.Fprintf(stdout(cmd), "%s record --device %d --sample-rate %d\n",
					build.Get().Name, sel.DeviceID, sel.SampleRate)
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&browse, "tui", false, "Browse devices interactively and pick an input")
	return listCmd
}
