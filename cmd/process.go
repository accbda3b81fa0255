// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"denoiser/internal/analysis"
	"denoiser/internal/dsp"
	"denoiser/internal/log"
	"denoiser/internal/pipeline"
	"denoiser/internal/playback"
	"denoiser/internal/signal"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

func (a *app) processCommand() *cobra.Command {
	var (
		reportPath string
		play       bool
		wsAddr     string
	)

	processCmd := &cobra.Command{
		Use:   "process <in|-> [out]",
		Short: "Enhance a clip and write it as 16-bit WAV",
		Long: "Decode a WAV or Ogg Vorbis clip, run it through the enhancement chain\n" +
			"(high-pass, low-pass, compressor, tone controls, gain) and write the result.\n" +
			"Without [out] the result goes to <stem>-enhanced.wav in the output directory,\n" +
			"or to stdout when reading from stdin.",
		Args: cobra.RangeArgs(1, 2),
	}
	flagged := bindSettingsFlags(processCmd)

	processCmd.RunE = func(cmd *cobra.Command, args []string) error {
		settings := applySettingsFlags(cmd, flagged, a.cfg.Processing)

		out := enhancedPath(args[0], a.cfg.Output.Dir)
		if len(args) == 2 {
			out = args[1]
		}

		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := a.process(cmd.Context(), data, settings)
		if err != nil {
			return err
		}

		n, err := writeSignal(cmd, out, res.Processed)
		if err != nil {
			return err
		}
		if out != stdioPath {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", out, n)
		}

		if reportPath != "" {
			if err := writeReport(cmd, reportPath, res.Report()); err != nil {
				return err
			}
		}

		if play {
			return a.audition(cmd.Context(), res.Processed, wsAddr)
		}
		return nil
	}

	processCmd.Flags().StringVar(&reportPath, "report", "",
		"Write settings, analysis and timings as JSON to this file (- for stdout)")
	processCmd.Flags().BoolVar(&play, "play", false, "Play the processed clip when done")
	processCmd.Flags().StringVar(&wsAddr, "ws", "",
		"Publish the spectrum while playing on this websocket address (e.g. :8080)")
	return processCmd
}

func (a *app) process(ctx context.Context, data []byte, settings dsp.Settings) (*pipeline.Result, error) {
	window, err := analysis.ParseWindowFunc(a.cfg.Visualization.Window)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(pipeline.Options{
		BalanceFFTSize: a.cfg.Visualization.FFTSize,
		Window:         window,
	})

	res, err := p.Process(ctx, data, settings)
	if err != nil {
		return nil, err
	}
	log.Infof("Original:  %s", res.OriginalAnalysis)
	log.Infof("Processed: %s", res.ProcessedAnalysis)
	log.Debugf("Timings: decode %s, render %s, encode %s",
		res.Timings.Decode, res.Timings.Render, res.Timings.Encode)
	return res, nil
}

func writeReport(cmd *cobra.Command, path string, report pipeline.Report) (err error) {
	w := stdout(cmd)
	if path != stdioPath {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("creating report %s: %w", path, createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				err = multierror.Append(err, closeErr)
			}
		}()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// audition plays sig on the configured output device until it ends or ctx is
// cancelled.
func (a *app) audition(ctx context.Context, sig *signal.Signal, wsAddr string) error {
	return withEngine(func() error {
		viz, err := newVisualizer(a.cfg, playbackOutput(a.cfg), wsAddr, nil)
		if err != nil {
			return err
		}
		defer viz.Close()

		done := make(chan error, 1)
		if err := viz.Play(ctx, playback.SourceProcessed, sig, func(err error) { done <- err }); err != nil {
			return err
		}
		if err := <-done; err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
}
