// SPDX-License-Identifier: MIT
package audio

import (
	"time"

	"github.com/gordonklaus/portaudio"
)

// paStream is the subset of *portaudio.Stream the package drives.
type paStream interface {
	Start() error
	Stop() error
	Close() error
}

var paOpenStream = func(params portaudio.StreamParameters, callback interface{}) (paStream, error) {
	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func inputLatency(dev *portaudio.DeviceInfo, low bool) time.Duration {
	if low {
		return dev.DefaultLowInputLatency
	}
	return dev.DefaultHighInputLatency
}

func outputLatency(dev *portaudio.DeviceInfo, low bool) time.Duration {
	if low {
		return dev.DefaultLowOutputLatency
	}
	return dev.DefaultHighOutputLatency
}
