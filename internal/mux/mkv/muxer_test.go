package mkv

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

func TestMuxerWritesEBMLHeader(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	require.NoError(t, m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindVideo, Codec: "h264", Width: 640, Height: 360}))
	require.NoError(t, m.Begin())
	require.NoError(t, m.WritePacket(stream.Packet{TrackID: 1, Data: []byte{1, 2, 3}, PTS: timebase.New(0, 1000), IsKeyframe: true}))
	require.NoError(t, m.Finalize())

	out := buf.Bytes()
	assert.Equal(t, []byte{0x1A, 0x45, 0xDF, 0xA3}, out[0:4])
}

func TestIsWebMDetection(t *testing.T) {
	m := New(&bytes.Buffer{})
	require.NoError(t, m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindVideo, Codec: "vp9"}))
	require.NoError(t, m.AddTrack(mux.TrackParams{ID: 2, Kind: stream.KindAudio, Codec: "opus"}))
	assert.True(t, m.isWebM())

	m2 := New(&bytes.Buffer{})
	require.NoError(t, m2.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindVideo, Codec: "h264"}))
	assert.False(t, m2.isWebM())
}

func TestRejectsUnsupportedCodec(t *testing.T) {
	m := New(&bytes.Buffer{})
	err := m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindVideo, Codec: "prores"})
	assert.Error(t, err)
}

func TestUintElemMinimalEncoding(t *testing.T) {
	e := uintElem([]byte{0xD7}, 1)
	// id(1) + size(8) + payload(1)
	assert.Len(t, e, 1+8+1)
	assert.Equal(t, byte(1), e[len(e)-1])
}
