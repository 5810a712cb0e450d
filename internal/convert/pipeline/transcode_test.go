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

type passthroughDecoder struct{}

func (d *passthroughDecoder) Decode(ctx context.Context, p stream.Packet) (any, error) {
	return &stream.AudioFrame{Planes: [][]float32{{1, 2}}, FrameCount: 2, PTS: p.PTS}, nil
}
func (d *passthroughDecoder) Flush(ctx context.Context) ([]any, error) { return nil, nil }
func (d *passthroughDecoder) Close() error                             { return nil }

type passthroughEncoder struct{}

func (e *passthroughEncoder) Encode(ctx context.Context, frame any) (stream.Packet, error) {
	f := frame.(*stream.AudioFrame)
	return stream.Packet{Data: []byte{byte(len(f.Planes[0]))}, PTS: f.PTS, DTS: f.PTS}, nil
}
func (e *passthroughEncoder) Flush(ctx context.Context) ([]stream.Packet, error) { return nil, nil }
func (e *passthroughEncoder) Close() error                                      { return nil }

func TestTranscodePipelineDecodesAndEncodesAllPackets(t *testing.T) {
	tracks := []stream.TrackDescriptor{{ID: 1, Kind: stream.KindAudio, Codec: "pcm"}}
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
	tp := &TranscodePipeline{
		TrackID: 1,
		Input:   in,
		Plan:    plan.TrackPlan{TrackID: 1, Action: plan.ActionTranscode},
		Sink:    sink,
		Clock:   coord,
		Decoder: &passthroughDecoder{},
		Encoder: &passthroughEncoder{},
	}

	require.NoError(t, tp.Run(context.Background()))
	assert.Len(t, sink.Packets, 2)
}
