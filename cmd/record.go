// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"time"

	"denoiser/internal/audio"
	"denoiser/internal/capture"
	"denoiser/internal/log"
	"denoiser/internal/playback"
	"denoiser/internal/signal"
	"denoiser/internal/tui"

	"github.com/spf13/cobra"
)

type stopResult struct {
	clip *signal.Clip
	err  error
}

func (a *app) recordCommand() *cobra.Command {
	var (
		duration time.Duration
		showTUI  bool
		raw      bool
		wsAddr   string
	)

	recordCmd := &cobra.Command{
		Use:   "record [out]",
		Short: "Record from the input device, then enhance and save the clip",
		Long: "Record until Ctrl-C, q in the level meter, or --duration. The capture is then\n" +
			"enhanced with the configured processing settings and written to [out],\n" +
			"by default recording-DD-MM-YYYY-HHMMSS.wav in the output directory.",
		Args: cobra.MaximumNArgs(1),
	}
	flagged := bindSettingsFlags(recordCmd)

	recordCmd.RunE = func(cmd *cobra.Command, args []string) error {
		settings := applySettingsFlags(cmd, flagged, a.cfg.Processing)
		if cmd.Flags().Changed("duration") {
			if duration < 0 {
				return fmt.Errorf("--duration must not be negative, got %s", duration)
			}
			a.cfg.Capture.MaxDuration = int(duration.Round(time.Second) / time.Second)
		}

		now := time.Now()
		out := recordingPath(a.cfg.Output.Dir, now, "")
		if len(args) == 1 {
			out = args[0]
		}
		rawPath := ""
		if raw {
			rawPath = recordingPath(a.cfg.Output.Dir, now, "-raw")
		}

		var clip *signal.Clip
		run := func() (err error) {
			clip, err = a.capture(cmd.Context(), rawPath, showTUI, wsAddr)
			return err
		}
		var err error
		if needsEngine(a.cfg) {
			err = withEngine(run)
		} else {
			err = run()
		}
		if clip == nil {
			return err
		}
		if err != nil {
			log.Warnf("Record: Capture ended with error, keeping the partial clip: %v", err)
		}

		// Interrupting the recording must not abort the processing of it.
		res, err := a.process(context.WithoutCancel(cmd.Context()), clip.Bytes(), settings)
		if err != nil {
			return err
		}
		n, err := writeSignal(cmd, out, res.Processed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\nRecording saved to: %s (%d bytes, %.1f s)\n",
			out, n, res.Processed.Duration())
		if rawPath != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Unprocessed capture saved to: %s\n", rawPath)
		}
		return nil
	}

	recordCmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (e.g. 30s); 0 records until stopped")
	recordCmd.Flags().BoolVar(&showTUI, "tui", false, "Show a live level meter")
	recordCmd.Flags().BoolVar(&raw, "raw", false, "Also stream the unprocessed capture to disk")
	recordCmd.Flags().StringVar(&wsAddr, "ws", "", "Publish the live spectrum on this websocket address (e.g. :8080)")
	return recordCmd
}

// capture runs one session and returns its clip. A clip is returned together
// with an error when only the teardown failed.
func (a *app) capture(ctx context.Context, rawPath string, showTUI bool, wsAddr string) (*signal.Clip, error) {
	cfg := a.cfg

	var meter *tui.Meter
	var onFrame func(playback.Frame)
	if showTUI {
		meter = tui.NewMeter("Recording", cfg.Capture.MaxDuration)
		onFrame = func(f playback.Frame) {
			meter.Send(tui.LevelMsg{Level: f.Level, LevelDB: f.LevelDB, Bands: f.Bands})
		}
	}

	viz, err := newVisualizer(cfg, nil, wsAddr, onFrame)
	if err != nil {
		return nil, err
	}
	defer viz.Close()

	var recorder *audio.Recorder
	if rawPath != "" {
		recorder = &audio.Recorder{}
		if err := recorder.Start(rawPath, cfg.Audio.SampleRate, cfg.Audio.Channels); err != nil {
			return nil, err
		}
		defer func() {
			if err := recorder.Stop(); err != nil {
				log.Errorf("Record: Error finishing raw capture: %v", err)
			}
		}()
	}

	stopped := make(chan stopResult, 1)
	mgr, err := capture.NewManager(captureDevice(cfg), capture.Options{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		MaxDuration: cfg.Capture.MaxDurationDuration(),
		OnTick: func(elapsed int) {
			if meter != nil {
				meter.Send(tui.ElapsedMsg(elapsed))
				return
			}
			log.Debugf("Record: %ds", elapsed)
		},
		OnChunk: func(chunk []float32) {
			viz.Feed(chunk)
			if recorder != nil {
				if err := recorder.Write(chunk); err != nil {
					log.Warnf("Record: Raw capture write failed: %v", err)
				}
			}
		},
		OnStop: func(clip *signal.Clip, err error) {
			stopped <- stopResult{clip, err}
			if meter != nil {
				meter.Send(tui.StoppedMsg{Err: err})
			}
		},
	})
	if err != nil {
		return nil, err
	}

	if err := viz.BeginCapture(cfg.Audio.SampleRate, cfg.Audio.Channels); err != nil {
		return nil, err
	}
	defer viz.EndCapture()
	if meter != nil {
		// Unblocks callbacks still sending to a meter that never ran.
		defer meter.Close()
	}

	// The session is ended by Stop below, not by the interrupt itself.
	if err := mgr.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	defer mgr.Close()

	if meter != nil {
		watchDone := make(chan struct{})
		defer close(watchDone)
		go func() {
			select {
			case <-ctx.Done():
				meter.Send(tui.StoppedMsg{})
			case <-watchDone:
			}
		}()
		if err := meter.Run(); err != nil {
			log.Warnf("Record: Level meter: %v", err)
		}
	} else {
		log.Infof("Recording... press Ctrl-C to stop.")
		select {
		case <-ctx.Done():
		case res := <-stopped:
			return res.clip, res.err
		}
	}

	clip, err := mgr.Stop()
	if clip == nil && err == nil {
		// The session ended on its own first.
		res := <-stopped
		return res.clip, res.err
	}
	return clip, err
}
