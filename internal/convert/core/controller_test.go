package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/demux"
	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

func TestControllerCopiesAACTrackEndToEnd(t *testing.T) {
	tracks := []stream.TrackDescriptor{
		{ID: 1, Kind: stream.KindAudio, Codec: "aac", TimeBase: timebase.New(1, 48000), SampleRate: 48000, Channels: 2},
	}
	pkts := map[int][]stream.Packet{
		1: {
			{TrackID: 1, Data: []byte{1, 2}, PTS: timebase.New(0, 48000), DTS: timebase.New(0, 48000), IsKeyframe: true},
			{TrackID: 1, Data: []byte{3, 4}, PTS: timebase.New(1024, 48000), DTS: timebase.New(1024, 48000)},
		},
	}
	in := demux.NewMemoryInput(tracks, pkts, timebase.New(2048, 48000))
	sink := mux.NewRecordingAdapter()

	ctrl, err := NewBuilder().
		WithInput(in).
		WithSink(sink).
		WithOptions(Options{OutputContainer: codec.ContainerMP4}).
		Build(context.Background())
	require.NoError(t, err)

	var lastProgress float64
	ctrl.OnProgress(func(f float64) { lastProgress = f })

	require.NoError(t, ctrl.Execute(context.Background()))
	assert.Len(t, sink.Packets, 2)
	assert.True(t, sink.Finished)
	assert.Equal(t, float64(1), lastProgress)
}

func TestControllerFailsWithNoOutputTracksWhenAllDiscarded(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindAudio, Codec: "aac"}}
	in := demux.NewMemoryInput(tracks, map[int][]stream.Packet{}, timebase.Zero)
	sink := mux.NewRecordingAdapter()

	_, err := NewBuilder().
		WithInput(in).
		WithSink(sink).
		WithOptions(Options{
			OutputContainer: codec.ContainerMP4,
			Overrides:       map[int]TrackOverride{1: {Discard: true}},
		}).
		Build(context.Background())

	require.Error(t, err)
	assert.Equal(t, KindNoOutputTracks, KindOf(err))
}

func TestControllerRejectsOddDimensionsForAVC(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindVideo, Codec: "h264", Width: 641, Height: 480}}
	in := demux.NewMemoryInput(tracks, map[int][]stream.Packet{}, timebase.Zero)
	sink := mux.NewRecordingAdapter()

	badTransform := plan.VideoTransform{Width: 641, Height: 480, TargetCodec: codec.VideoH264}
	_, err := NewBuilder().
		WithInput(in).
		WithSink(sink).
		WithOptions(Options{
			OutputContainer: codec.ContainerMKV,
			Overrides: map[int]TrackOverride{
				1: {Video: &badTransform},
			},
		}).
		Build(context.Background())

	require.Error(t, err)
	assert.Equal(t, KindIncompatibleRequest, KindOf(err))
}

func TestControllerRejectsUnsupportedCodecAtBuild(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindVideo, Codec: "h264", Width: 640, Height: 480}}
	in := demux.NewMemoryInput(tracks, map[int][]stream.Packet{}, timebase.Zero)
	sink := mux.NewRecordingAdapter()

	// h264 can't ride in WebM, so Decide forces a transcode; with no
	// registered backend, Build must reject it before Execute ever runs.
	_, err := NewBuilder().
		WithInput(in).
		WithSink(sink).
		WithOptions(Options{OutputContainer: codec.ContainerWebM}).
		Build(context.Background())

	require.Error(t, err)
	assert.Equal(t, KindUnsupportedCodec, KindOf(err))
}

func TestControllerCancelStopsExecution(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindAudio, Codec: "aac", SampleRate: 48000, Channels: 2}}
	pkts := map[int][]stream.Packet{
		1: {{TrackID: 1, Data: []byte{1}, PTS: timebase.New(0, 1), DTS: timebase.New(0, 1), IsKeyframe: true}},
	}
	in := demux.NewMemoryInput(tracks, pkts, timebase.New(1, 1))
	sink := mux.NewRecordingAdapter()

	ctrl, err := NewBuilder().
		WithInput(in).
		WithSink(sink).
		WithOptions(Options{OutputContainer: codec.ContainerMP4}).
		Build(context.Background())
	require.NoError(t, err)

	ctrl.Cancel()
	err = ctrl.Execute(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, sink.Aborted)
}
