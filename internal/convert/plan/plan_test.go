package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

func TestDecideCopyWhenContainerSupportsCodec(t *testing.T) {
	desc := stream.TrackDescriptor{ID: 1, Kind: stream.KindVideo, Codec: "h264"}
	p := Decide(desc, codec.ContainerMP4, nil)
	assert.Equal(t, ActionCopy, p.Action)
	assert.Nil(t, p.Video)
}

func TestDecideTranscodeWhenContainerRejectsCodec(t *testing.T) {
	desc := stream.TrackDescriptor{ID: 2, Kind: stream.KindVideo, Codec: "h264", Width: 1280, Height: 720}
	p := Decide(desc, codec.ContainerWebM, nil)
	assert.Equal(t, ActionTranscode, p.Action)
	if assert.NotNil(t, p.Video) {
		assert.Equal(t, 1280, p.Video.Width)
		assert.True(t, p.Video.TargetCodec.SupportsContainer(codec.ContainerWebM), "target codec %s must be legal in webm", p.Video.TargetCodec)
		assert.Equal(t, codec.VideoVP9, p.Video.TargetCodec)
	}
}

func TestDecideTranscodeAudioDefaultsToContainerPreferredCodec(t *testing.T) {
	desc := stream.TrackDescriptor{ID: 5, Kind: stream.KindAudio, Codec: "aac", SampleRate: 48000, Channels: 2}
	p := Decide(desc, codec.ContainerOgg, nil)
	assert.Equal(t, ActionTranscode, p.Action)
	if assert.NotNil(t, p.Audio) {
		assert.True(t, p.Audio.TargetCodec.SupportsContainer(codec.ContainerOgg), "target codec %s must be legal in ogg", p.Audio.TargetCodec)
		assert.Equal(t, codec.AudioVorbis, p.Audio.TargetCodec)
	}
}

func TestDecideDiscard(t *testing.T) {
	desc := stream.TrackDescriptor{ID: 3, Kind: stream.KindAudio, Codec: "aac"}
	p := Decide(desc, codec.ContainerMP4, &Request{Discard: true})
	assert.Equal(t, ActionDiscard, p.Action)
}

func TestDecideExplicitTranscodeRequest(t *testing.T) {
	desc := stream.TrackDescriptor{ID: 4, Kind: stream.KindAudio, Codec: "aac", SampleRate: 48000, Channels: 2}
	req := &Request{Audio: &AudioTransform{SampleRate: 44100, Channels: 2, Mix: MixDownmix, TargetCodec: codec.AudioMP3}}
	p := Decide(desc, codec.ContainerMP4, req)
	assert.Equal(t, ActionTranscode, p.Action)
	if assert.NotNil(t, p.Audio) {
		assert.Equal(t, 44100, p.Audio.SampleRate)
		assert.Equal(t, codec.AudioMP3, p.Audio.TargetCodec)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{StartTicks: 100, EndTicks: 200}
	assert.False(t, w.Contains(50))
	assert.True(t, w.Contains(150))
	assert.False(t, w.Contains(200))

	unbounded := Window{StartTicks: 100}
	assert.True(t, unbounded.Contains(1_000_000))
}
