package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/convert/clock"
	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/demux"
	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

func TestRunCopyForwardsAllPackets(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindAudio, Codec: "aac"}}
	pkts := map[int][]stream.Packet{
		1: {
			{TrackID: 1, Data: []byte{1}, PTS: timebase.New(0, 1), DTS: timebase.New(0, 1)},
			{TrackID: 1, Data: []byte{2}, PTS: timebase.New(1, 1), DTS: timebase.New(1, 1)},
		},
	}
	in := demux.NewMemoryInput(tracks, pkts, timebase.New(2, 1))
	sink := mux.NewRecordingAdapter()
	require.NoError(t, sink.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "aac"}))
	require.NoError(t, sink.Begin())

	coord := clock.NewCoordinator(timebase.New(1, 1), timebase.New(2, 1), nil)
	p := &Pipeline{TrackID: 1, Input: in, Plan: plan.TrackPlan{TrackID: 1, Action: plan.ActionCopy}, Sink: sink, Clock: coord}

	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, sink.Packets, 2)
}

func TestRunCopyAppliesTrimWindow(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindAudio, Codec: "aac", TimeBase: timebase.New(0, 1)}}
	pkts := map[int][]stream.Packet{
		1: {
			{TrackID: 1, Data: []byte{1}, PTS: timebase.New(0, 1), DTS: timebase.New(0, 1), IsKeyframe: true},
			{TrackID: 1, Data: []byte{2}, PTS: timebase.New(5, 1), DTS: timebase.New(5, 1)},
		},
	}
	in := demux.NewMemoryInput(tracks, pkts, timebase.New(6, 1))
	sink := mux.NewRecordingAdapter()
	require.NoError(t, sink.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "aac"}))
	require.NoError(t, sink.Begin())

	trim := &plan.Window{StartTicks: 3, EndTicks: 0}
	coord := clock.NewCoordinator(timebase.New(1, 1), timebase.New(6, 1), map[int]*plan.Window{1: trim})
	trimPlan := plan.TrackPlan{TrackID: 1, Action: plan.ActionCopy, Trim: trim}
	p := &Pipeline{TrackID: 1, Input: in, Plan: trimPlan, Sink: sink, Clock: coord}

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, sink.Packets, 2)
	// Copy mode can't decode, so the kept region starts at the keyframe at
	// or before trim start (PTS 0), not at trim start itself; Rebase's
	// clamp-at-0 hides that sliver instead of the pipeline dropping it.
	assert.Equal(t, int64(0), sink.Packets[0].PTS.Num)
	// Source PTS 5, trim start 3 -> rebased to 2.
	assert.Equal(t, int64(2), sink.Packets[1].PTS.Num)
}

func TestRunDiscardWritesNothing(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindAudio, Codec: "aac"}}
	in := demux.NewMemoryInput(tracks, map[int][]stream.Packet{}, timebase.Zero)
	sink := mux.NewRecordingAdapter()
	coord := clock.NewCoordinator(timebase.New(1, 1), timebase.Zero, nil)

	p := &Pipeline{TrackID: 1, Input: in, Plan: plan.TrackPlan{TrackID: 1, Action: plan.ActionDiscard}, Sink: sink, Clock: coord}
	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, sink.Packets)
}

func TestRunCopyDetectsNonMonotonicDTS(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindAudio, Codec: "aac"}}
	pkts := map[int][]stream.Packet{
		1: {
			{TrackID: 1, Data: []byte{1}, PTS: timebase.New(5, 1), DTS: timebase.New(5, 1)},
			{TrackID: 1, Data: []byte{2}, PTS: timebase.New(1, 1), DTS: timebase.New(1, 1)},
		},
	}
	in := demux.NewMemoryInput(tracks, pkts, timebase.New(6, 1))
	sink := mux.NewRecordingAdapter()
	require.NoError(t, sink.AddTrack(mux.TrackParams{ID: 1, Kind: stream.KindAudio, Codec: "aac"}))
	require.NoError(t, sink.Begin())

	coord := clock.NewCoordinator(timebase.New(1, 1), timebase.New(6, 1), nil)
	p := &Pipeline{TrackID: 1, Input: in, Plan: plan.TrackPlan{TrackID: 1, Action: plan.ActionCopy}, Sink: sink, Clock: coord}

	err := p.Run(context.Background())
	assert.Error(t, err)
	failed, failErr := coord.IsFailed()
	assert.True(t, failed)
	assert.Error(t, failErr)
}
