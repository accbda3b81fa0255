// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"

	"denoiser/internal/log"
	"denoiser/internal/signal"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream the live input spectrum to websocket and UDP clients",
		Long: "Open the input device and publish its spectrum, level and tone bands until\n" +
			"interrupted. Nothing is recorded.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Visualization.WebSocketAddr
			}
			if needsEngine(a.cfg) {
				return withEngine(func() error { return a.serve(cmd, addr) })
			}
			return a.serve(cmd, addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Websocket listen address (default from config)")
	return serveCmd
}

func (a *app) serve(cmd *cobra.Command, addr string) (err error) {
	cfg := a.cfg

	viz, err := newVisualizer(cfg, nil, addr, nil)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := viz.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	if err := viz.BeginCapture(cfg.Audio.SampleRate, cfg.Audio.Channels); err != nil {
		return err
	}
	defer viz.EndCapture()

	stream, err := captureDevice(cfg).Open(cfg.Audio.SampleRate, cfg.Audio.Channels, viz.Feed)
	if err != nil {
		if errors.Is(err, signal.ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", signal.ErrDeviceUnavailable, err)
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	log.Infof("Serving spectrum of %s input (%d Hz, %d ch), press Ctrl-C to stop",
		cfg.Capture.Backend, cfg.Audio.SampleRate, cfg.Audio.Channels)
	<-cmd.Context().Done()
	return nil
}
