package adts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

func TestMuxerWritesSyncword(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	require.NoError(t, m.AddTrack(mux.TrackParams{
		ID: 1, Kind: stream.KindAudio, Codec: "aac", SampleRate: 48000, Channels: 2,
	}))
	require.NoError(t, m.Begin())
	require.NoError(t, m.WritePacket(stream.Packet{TrackID: 1, Data: []byte{1, 2, 3}}))

	out := buf.Bytes()
	require.Len(t, out, 7+3)
	assert.Equal(t, byte(0xFF), out[0])
	assert.Equal(t, byte(0xF1), out[1])
}

func TestMuxerRejectsUnsupportedSampleRate(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	err := m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "aac", SampleRate: 12345, Channels: 2})
	assert.Error(t, err)
}
