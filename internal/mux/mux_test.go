package mux

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/stream"
)

func TestSerializingAdapterPassesThrough(t *testing.T) {
	rec := NewRecordingAdapter()
	s := NewSerializingAdapter(rec)

	require.NoError(t, s.AddTrack(TrackParams{ID: 1, Kind: stream.KindVideo}))
	require.NoError(t, s.Begin())
	require.NoError(t, s.WritePacket(stream.Packet{TrackID: 1, Data: []byte("x")}))
	require.NoError(t, s.Finalize())

	assert.True(t, rec.Began)
	assert.True(t, rec.Finished)
	assert.Len(t, rec.Packets, 1)
}

func TestSerializingAdapterConcurrentWrites(t *testing.T) {
	rec := NewRecordingAdapter()
	s := NewSerializingAdapter(rec)
	require.NoError(t, s.AddTrack(TrackParams{ID: 1}))
	require.NoError(t, s.Begin())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.WritePacket(stream.Packet{TrackID: 1, Data: []byte{byte(n)}})
		}(i)
	}
	wg.Wait()

	assert.Len(t, rec.Packets, 100)
}

func TestRecordingAdapterRejectsWriteBeforeBegin(t *testing.T) {
	rec := NewRecordingAdapter()
	err := rec.WritePacket(stream.Packet{TrackID: 1})
	assert.Error(t, err)
}
