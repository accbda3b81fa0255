// SPDX-License-Identifier: MIT
/*
Package pipeline runs one clip through the whole core:

	decode -> analyze -> render -> analyze -> encode

Every stage error is returned wrapped in the signal package's error kinds.
Nothing here holds devices, so a failed run never leaves capture or playback
in a stuck state.
*/
package pipeline

import (
	"context"
	"fmt"
	"time"

	"denoiser/internal/analysis"
	"denoiser/internal/codec"
	"denoiser/internal/dsp"
	"denoiser/internal/log"
	"denoiser/internal/signal"
)

// Options tune the descriptive parts of a run. The zero value is usable.
type Options struct {
	// BalanceFFTSize enables the per-band spectral report when positive.
	BalanceFFTSize int
	Window         analysis.WindowFunc
}

// Pipeline is safe for concurrent use; it holds no per-run state.
type Pipeline struct {
	opts Options
}

func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Timings records how long each stage took.
type Timings struct {
	Decode time.Duration `json:"decode"`
	Render time.Duration `json:"render"`
	Encode time.Duration `json:"encode"`
}

// Result of one run.
type Result struct {
	Settings dsp.Settings

	Original         *signal.Signal
	OriginalAnalysis analysis.Result
	OriginalBands    []analysis.BandLevel

	Processed         *signal.Signal
	ProcessedAnalysis analysis.Result
	ProcessedBands    []analysis.BandLevel

	Output  *signal.Clip
	Timings Timings
}

// Report is the JSON-serializable summary of a Result.
type Report struct {
	Settings  dsp.Settings    `json:"settings"`
	Original  analysis.Result `json:"original"`
	Processed analysis.Result `json:"processed"`
	Bands     *BandReport     `json:"bands,omitempty"`
	Output    OutputReport    `json:"output"`
	Timings   Timings         `json:"timings"`
}

type BandReport struct {
	Original  []analysis.BandLevel `json:"original"`
	Processed []analysis.BandLevel `json:"processed"`
}

type OutputReport struct {
	MIMEType string `json:"mimeType"`
	Bytes    int    `json:"bytes"`
}

// Report summarizes r for export.
func (r *Result) Report() Report {
	rep := Report{
		Settings:  r.Settings,
		Original:  r.OriginalAnalysis,
		Processed: r.ProcessedAnalysis,
		Timings:   r.Timings,
	}
	if r.Output != nil {
		rep.Output = OutputReport{MIMEType: r.Output.MIMEType(), Bytes: r.Output.Len()}
	}
	if r.OriginalBands != nil || r.ProcessedBands != nil {
		rep.Bands = &BandReport{Original: r.OriginalBands, Processed: r.ProcessedBands}
	}
	return rep
}

// Process decodes data, enhances it with settings and encodes the result.
// settings are normalized first; the normalized copy is kept in the Result.
func (p *Pipeline) Process(ctx context.Context, data []byte, settings dsp.Settings) (*Result, error) {
	res := &Result{Settings: settings.Normalize()}

	start := time.Now()
	original, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	res.Timings.Decode = time.Since(start)
	res.Original = original
	res.OriginalAnalysis = analysis.Analyze(original)
	log.Infof("Pipeline: Input %s", res.OriginalAnalysis)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	processed, err := dsp.RenderContext(ctx, original, res.Settings)
	if err != nil {
		return nil, err
	}
	res.Timings.Render = time.Since(start)
	res.Processed = processed
	res.ProcessedAnalysis = analysis.Analyze(processed)
	log.Infof("Pipeline: Output %s", res.ProcessedAnalysis)

	if p.opts.BalanceFFTSize > 0 {
		res.OriginalBands, err = analysis.SpectralBalance(original, p.opts.BalanceFFTSize, p.opts.Window)
		if err != nil {
			log.Warnf("Pipeline: Skipping spectral balance: %v", err)
		} else {
			res.ProcessedBands, err = analysis.SpectralBalance(processed, p.opts.BalanceFFTSize, p.opts.Window)
			if err != nil {
				log.Warnf("Pipeline: Skipping spectral balance: %v", err)
				res.OriginalBands = nil
			}
		}
	}

	start = time.Now()
	out, err := codec.Encode(processed)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	res.Timings.Encode = time.Since(start)
	res.Output = out

	log.Debugf("Pipeline: decode %s, render %s, encode %s",
		res.Timings.Decode, res.Timings.Render, res.Timings.Encode)
	return res, nil
}
