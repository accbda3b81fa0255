// SPDX-License-Identifier: MIT
package pulse

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func le(samples ...float32) []byte {
	b := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(s))
	}
	return b
}

func TestRecordWriterFrames(t *testing.T) {
	var got [][]float32
	w := &recordWriter{channels: 2, deliver: func(c []float32) { got = append(got, c) }}
	assert.Equal(t, byte(proto.FormatFloat32LE), w.Format())

	data := le(0.5, -0.5, 0.25, -0.25)

	// A frame split across writes is held until it is complete.
	n, err := w.Write(data[:6])
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Empty(t, got)

	n, err = w.Write(data[6:])
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{0.5, -0.5, 0.25, -0.25}, got[0])

	w.stop()
	_, err = w.Write(le(1, 1))
	require.NoError(t, err)
	assert.Len(t, got, 1, "writes after stop are dropped")
}

func TestChannelMap(t *testing.T) {
	m, err := channelMap(1)
	require.NoError(t, err)
	assert.Equal(t, proto.ChannelMap{proto.ChannelMono}, m)

	m, err = channelMap(2)
	require.NoError(t, err)
	assert.Len(t, m, 2)

	_, err = channelMap(6)
	assert.Error(t, err)
}

type fakeRecord struct {
	onStop func()
	calls  []string
}

func (f *fakeRecord) Stop() {
	if f.onStop != nil {
		f.onStop()
	}
	f.calls = append(f.calls, "stop")
}

func (f *fakeRecord) Close() { f.calls = append(f.calls, "close") }

type fakeClient struct{ closed bool }

func (c *fakeClient) Close() { c.closed = true }

func TestRecordStreamCloseKeepsFlushedData(t *testing.T) {
	var got [][]float32
	w := &recordWriter{channels: 1, deliver: func(c []float32) { got = append(got, c) }}
	rec := &fakeRecord{}
	rec.onStop = func() {
		_, err := w.Write(le(0.75))
		require.NoError(t, err)
	}
	client := &fakeClient{}
	s := &recordStream{client: client, stream: rec, writer: w}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, [][]float32{{0.75}}, got, "data written while stopping is delivered")
	assert.Equal(t, []string{"stop", "close"}, rec.calls)
	assert.True(t, client.closed)

	_, err := w.Write(le(1))
	require.NoError(t, err)
	assert.Len(t, got, 1, "writes after Close are dropped")
}
