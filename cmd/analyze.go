// SPDX-License-Identifier: MIT
package cmd

import (
	"encoding/json"
	"fmt"

	"denoiser/internal/analysis"
	"denoiser/internal/codec"

	"github.com/spf13/cobra"
)

type analyzeOutput struct {
	analysis.Result
	Bands []analysis.BandLevel `json:"bands,omitempty"`
}

func (a *app) analyzeCommand() *cobra.Command {
	var (
		asJSON bool
		bands  bool
	)

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Print duration, format and noise level of a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			sig, err := codec.Decode(data)
			if err != nil {
				return err
			}

			out := analyzeOutput{Result: analysis.Analyze(sig)}
			if bands {
				window, err := analysis.ParseWindowFunc(a.cfg.Visualization.Window)
				if err != nil {
					return err
				}
				out.Bands, err = analysis.SpectralBalance(sig, a.cfg.Visualization.FFTSize, window)
				if err != nil {
					return err
				}
			}

			w := stdout(cmd)
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintf(w, "Duration:    %.2f s\n", out.DurationSeconds)
			fmt.Fprintf(w, "Sample rate: %d Hz\n", out.SampleRate)
			fmt.Fprintf(w, "Channels:    %d\n", out.ChannelCount)
			fmt.Fprintf(w, "RMS:         %.4f (%.1f dBFS)\n", out.RMS, analysis.ToDBFS(out.RMS))
			fmt.Fprintf(w, "Noise level: %d%%\n", out.NoiseLevelPercent)
			for i, p := range out.PeakDBFS {
				fmt.Fprintf(w, "Peak ch%d:    %.1f dBFS\n", i+1, p)
			}
			for _, b := range out.Bands {
				fmt.Fprintf(w, "%-12s %.1f dB\n", b.Name+":", b.LevelDB)
			}
			return nil
		},
	}

	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	analyzeCmd.Flags().BoolVar(&bands, "bands", false, "Include bass, mid and treble levels")
	return analyzeCmd
}
