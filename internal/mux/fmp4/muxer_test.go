package fmp4

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

func TestMuxerWritesInitAndFragment(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	m.FragmentSamples = 2

	require.NoError(t, m.AddTrack(mux.TrackParams{
		ID: 1, Kind: stream.KindAudio, Codec: "aac",
		TimeBase: 48000, SampleRate: 48000, Channels: 2,
	}))
	require.NoError(t, m.Begin())
	assert.True(t, buf.Len() > 0, "init segment should have been written")

	for i := 0; i < 3; i++ {
		pts := timebase.New(int64(i*1024), 48000)
		require.NoError(t, m.WritePacket(stream.Packet{
			TrackID: 1, Data: []byte{1, 2, 3}, PTS: pts, DTS: pts,
			Duration: timebase.New(1024, 48000), IsKeyframe: true,
		}))
	}
	require.NoError(t, m.Finalize())
	assert.True(t, buf.Len() > 0)
}

func TestMuxerRejectsUnknownTrack(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	require.NoError(t, m.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "aac", TimeBase: 48000}))
	require.NoError(t, m.Begin())
	err := m.WritePacket(stream.Packet{TrackID: 99})
	assert.Error(t, err)
}

func TestMuxerRejectsWriteBeforeBegin(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf)
	err := m.WritePacket(stream.Packet{TrackID: 1})
	assert.Error(t, err)
}
