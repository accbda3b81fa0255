// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"denoiser/cmd"
	"denoiser/internal/signal"
)

// main runs the command line until it finishes or the process is
// interrupted. Commands see the interrupt as a cancelled context and shut
// their devices down themselves.
func main() {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		stop()
		os.Exit(1)
	}
}

// describe prefixes errors of a known kind with their user-facing message.
func describe(err error) string {
	for _, kind := range []error{
		signal.ErrDeviceUnavailable,
		signal.ErrUnsupportedFormat,
		signal.ErrDecode,
		signal.ErrRender,
		signal.ErrEncode,
	} {
		if errors.Is(err, kind) {
			return fmt.Sprintf("%s\n  %v", signal.Message(err), err)
		}
	}
	return fmt.Sprintf("Error: %v", err)
}
