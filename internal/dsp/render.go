// SPDX-License-Identifier: MIT
package dsp

import (
	"context"
	"fmt"
	"time"

	"denoiser/internal/log"
	"denoiser/internal/signal"
)

// Render runs the chain built from settings over a copy of sig. The output has
// the same sample rate, channel count and frame count as the input and is not
// clamped.
func Render(sig *signal.Signal, settings Settings) (*signal.Signal, error) {
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", signal.ErrRender, err)
	}
	if sig.FrameCount() == 0 {
		return nil, fmt.Errorf("%w: signal has no frames", signal.ErrRender)
	}

	chain := BuildChain(settings)
	log.Debugf("Render: %d Hz, %d ch, %d frames through %s",
		sig.SampleRate, sig.ChannelCount(), sig.FrameCount(), chain)

	start := time.Now()
	out := sig.Clone()
	for _, stage := range chain {
		stage.apply(out.Channels, out.SampleRate)
	}
	log.Debugf("Render: finished in %s", time.Since(start))
	return out, nil
}

type renderResult struct {
	sig *signal.Signal
	err error
}

// RenderContext runs Render on its own goroutine and waits for it or for ctx.
// A cancelled render is not interrupted; its result is dropped.
func RenderContext(ctx context.Context, sig *signal.Signal, settings Settings) (*signal.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan renderResult, 1)
	go func() {
		out, err := Render(sig, settings)
		done <- renderResult{sig: out, err: err}
	}()

	select {
	case r := <-done:
		return r.sig, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
