package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/stream"
)

func TestRegisterAndDecode(t *testing.T) {
	f := New(2)
	f.RegisterDecoder("pcm", &Codec{
		Kind: stream.KindAudio,
		Decode: func(ctx context.Context, p stream.Packet) (any, error) {
			return &stream.AudioFrame{FrameCount: len(p.Data)}, nil
		},
	})

	assert.True(t, f.Supports("pcm", stream.KindAudio))

	dec, err := f.NewDecoder(context.Background(), stream.TrackDescriptor{Codec: "pcm", Kind: stream.KindAudio})
	require.NoError(t, err)

	out, err := dec.Decode(context.Background(), stream.Packet{Data: []byte{1, 2, 3, 4}})
	require.NoError(t, err)
	frame, ok := out.(*stream.AudioFrame)
	require.True(t, ok)
	assert.Equal(t, 4, frame.FrameCount)
}

func TestNewDecoderUnregisteredCodec(t *testing.T) {
	f := New(1)
	_, err := f.NewDecoder(context.Background(), stream.TrackDescriptor{Codec: "unknown", Kind: stream.KindAudio})
	assert.Error(t, err)
}

func TestEncodeFlushWithoutFlushFunc(t *testing.T) {
	f := New(1)
	f.RegisterEncoder("pcm", &Codec{
		Kind: stream.KindAudio,
		Encode: func(ctx context.Context, frame any) (stream.Packet, error) {
			return stream.Packet{Data: []byte{9}}, nil
		},
	})

	enc, err := f.NewEncoder(context.Background(), stream.KindAudio, "pcm", "")
	require.NoError(t, err)

	pkt, err := enc.Encode(context.Background(), &stream.AudioFrame{})
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, pkt.Data)

	flushed, err := enc.Flush(context.Background())
	require.NoError(t, err)
	assert.Nil(t, flushed)
}
