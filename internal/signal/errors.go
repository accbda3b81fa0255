// SPDX-License-Identifier: MIT
package signal

import "errors"

// Error kinds. Callers match them with errors.Is; the concrete error always
// wraps one of these with detail.
var (
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrDecode            = errors.New("unable to decode audio")
	ErrRender            = errors.New("unable to render audio")
	ErrEncode            = errors.New("unable to encode audio")

	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidSignal     = errors.New("invalid signal")
)

// Message maps an error to the short text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDeviceUnavailable):
		return "No microphone is available. Check permissions and try again."
	case errors.Is(err, ErrUnsupportedFormat):
		return "This audio format is not supported."
	case errors.Is(err, ErrDecode):
		return "The audio file could not be read."
	case errors.Is(err, ErrRender):
		return "The audio could not be processed."
	case errors.Is(err, ErrEncode):
		return "The processed audio could not be saved."
	default:
		return "Something went wrong while handling the audio."
	}
}
