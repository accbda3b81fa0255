// SPDX-License-Identifier: MIT
package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"denoiser/internal/signal"
)

func decodeOgg(r io.Reader) (*signal.Signal, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}

	channelCount := reader.Channels()
	if channelCount <= 0 || reader.SampleRate() <= 0 {
		return nil, errors.New("malformed vorbis identification header")
	}

	var interleaved []float32
	if n := reader.Length(); n > 0 {
		interleaved = make([]float32, 0, int(n)*channelCount)
	}

	chunk := make([]float32, 4096*channelCount)
	for {
		n, err := reader.Read(chunk)
		interleaved = append(interleaved, chunk[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading vorbis stream: %w", err)
		}
	}

	return signal.FromInterleaved(reader.SampleRate(), channelCount, interleaved)
}
