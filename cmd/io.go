// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"denoiser/internal/codec"
	"denoiser/internal/log"
	"denoiser/internal/signal"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/datacounter"
)

// stdioPath selects stdin or stdout instead of a file.
const stdioPath = "-"

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == stdioPath {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// enhancedPath names the processed output of in: <stem>-enhanced.wav in dir.
// Input from stdin goes to stdout.
func enhancedPath(in, dir string) string {
	if in == stdioPath {
		return stdioPath
	}
	base := filepath.Base(in)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"-enhanced.wav")
}

// recordingPath names a new recording after the current time.
func recordingPath(dir string, now time.Time, suffix string) string {
	return filepath.Join(dir, "recording-"+now.UTC().Format("02-01-2006-150405")+suffix+".wav")
}

// writeSignal encodes sig as WAV straight into path, or into the command's
// stdout for "-", and returns the number of bytes that reached the writer.
func writeSignal(cmd *cobra.Command, path string, sig *signal.Signal) (n uint64, err error) {
	var w io.Writer = cmd.OutOrStdout()
	if path != stdioPath {
		f, createErr := os.Create(path)
		if createErr != nil {
			return 0, fmt.Errorf("creating %s: %w", path, createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				err = multierror.Append(err, fmt.Errorf("closing %s: %w", path, closeErr))
			}
		}()
		w = f
	}

	wc := datacounter.NewWriterCounter(w)
	if err := codec.EncodeTo(wc, sig); err != nil {
		return wc.Count(), fmt.Errorf("writing %s after %d bytes: %w", path, wc.Count(), err)
	}
	log.Debugf("Wrote %d bytes (%s) to %s", wc.Count(), signal.MIMETypeWAV, path)
	return wc.Count(), nil
}
