package ogg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

func TestMuxerWritesOggSMagic(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	require.NoError(t, m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "opus"}))
	require.NoError(t, m.Begin())
	require.NoError(t, m.WritePacket(stream.Packet{TrackID: 1, Data: []byte("opushead"), PTS: timebase.New(0, 48000)}))
	require.NoError(t, m.Finalize())

	out := buf.Bytes()
	assert.Equal(t, "OggS", string(out[0:4]))
}

func TestMuxerRejectsUnsupportedCodec(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	err := m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "aac"})
	assert.Error(t, err)
}

func TestCRC32IsDeterministic(t *testing.T) {
	a := oggCRC32([]byte("hello ogg"))
	b := oggCRC32([]byte("hello ogg"))
	assert.Equal(t, a, b)
	c := oggCRC32([]byte("hello oGg"))
	assert.NotEqual(t, a, c)
}
