// SPDX-License-Identifier: MIT
package cmd

import (
	"denoiser/internal/analysis"
	"denoiser/internal/audio"
	"denoiser/internal/config"
	"denoiser/internal/log"
	"denoiser/internal/playback"
	"denoiser/internal/transport"
	"denoiser/internal/transport/udp"

	"github.com/hashicorp/go-multierror"
)

// visualizer is a playback controller together with the transports that carry
// its frames out of the process.
type visualizer struct {
	*playback.Controller

	transports transport.Multi
	sender     *udp.UDPSender
	publisher  *udp.UDPPublisher
}

// newVisualizer builds a controller from the visualization config. wsAddr
// enables the websocket server; output may be nil when nothing is played.
func newVisualizer(cfg *config.Config, output playback.Output, wsAddr string, onFrame func(playback.Frame)) (v *visualizer, err error) {
	vc := cfg.Visualization
	window, err := analysis.ParseWindowFunc(vc.Window)
	if err != nil {
		return nil, err
	}

	v = &visualizer{}
	defer func() {
		if err != nil {
			if closeErr := v.Close(); closeErr != nil {
				err = multierror.Append(err, closeErr)
			}
		}
	}()

	if wsAddr != "" {
		wst, err := transport.NewWebSocketTransport(wsAddr)
		if err != nil {
			return nil, err
		}
		v.transports = append(v.transports, wst)
	} else if cfg.Debug {
		v.transports = append(v.transports, transport.NewLoggingTransport())
	}

	opts := playback.Options{
		FFTSize:   vc.FFTSize,
		Window:    window,
		Interval:  vc.Interval,
		Smoothing: vc.Smoothing,
		Gate:      audio.NewGate(vc.GateThreshold),
		OnFrame:   onFrame,
	}
	if len(v.transports) > 0 {
		opts.Transport = v.transports
	}

	v.Controller, err = playback.NewController(output, opts)
	if err != nil {
		return nil, err
	}

	if vc.UDPEnabled {
		v.sender, err = udp.NewUDPSender(vc.UDPTarget)
		if err != nil {
			return nil, err
		}
		v.publisher, err = udp.NewUDPPublisher(vc.UDPInterval, v.sender, v.Controller)
		if err != nil {
			return nil, err
		}
		v.publisher.Start()
	}
	return v, nil
}

// Close stops the controller first so no frame is sent to a closed transport.
func (v *visualizer) Close() error {
	var result *multierror.Error
	if v.Controller != nil {
		if err := v.Controller.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if v.publisher != nil {
		if err := v.publisher.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if v.sender != nil {
		if err := v.sender.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := v.transports.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	log.Debugf("Visualizer closed")
	return result.ErrorOrNil()
}
