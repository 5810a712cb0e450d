package mp3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

func TestMuxerConcatenatesFrames(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	require.NoError(t, m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "mp3"}))
	require.NoError(t, m.Begin())
	require.NoError(t, m.WritePacket(stream.Packet{TrackID: 1, Data: []byte{0xFF, 0xFB}}))
	require.NoError(t, m.WritePacket(stream.Packet{TrackID: 1, Data: []byte{0xFF, 0xFA}}))
	require.NoError(t, m.Finalize())
	assert.Equal(t, []byte{0xFF, 0xFB, 0xFF, 0xFA}, buf.Bytes())
}

func TestMuxerRejectsNonMP3(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	err := m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "aac"})
	assert.Error(t, err)
}
