package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVideoAliases(t *testing.T) {
	c, ok := ParseVideo("libx264")
	assert.True(t, ok)
	assert.Equal(t, VideoH264, c)

	c, ok = ParseVideo("hvc1")
	assert.True(t, ok)
	assert.Equal(t, VideoH265, c)

	_, ok = ParseVideo("does-not-exist")
	assert.False(t, ok)
}

func TestParseAudioAliases(t *testing.T) {
	c, ok := ParseAudio("mp4a")
	assert.True(t, ok)
	assert.Equal(t, AudioAAC, c)
}

func TestSupportsContainer(t *testing.T) {
	assert.True(t, VideoVP9.SupportsContainer(ContainerWebM))
	assert.False(t, VideoH264.SupportsContainer(ContainerWebM))
	assert.True(t, AudioOpus.SupportsContainer(ContainerOgg))
	assert.False(t, AudioAC3.SupportsContainer(ContainerOgg))
}

func TestVideoEncoderFallback(t *testing.T) {
	enc, ok := VideoEncoder(VideoH264, HWAccelCUDA)
	assert.True(t, ok)
	assert.Equal(t, "h264_nvenc", enc)

	enc, ok = VideoEncoder(VideoH264, HWAccelQSV)
	assert.True(t, ok)
	assert.Equal(t, "h264_qsv", enc)

	// Unsupported hwaccel for this codec falls back to software.
	enc, ok = VideoEncoder(VideoMPEG2, HWAccelCUDA)
	assert.True(t, ok)
	assert.Equal(t, "mpeg2video", enc)
}

func TestParseContainer(t *testing.T) {
	c, ok := ParseContainer("matroska")
	assert.True(t, ok)
	assert.Equal(t, ContainerMKV, c)

	_, ok = ParseContainer("bogus")
	assert.False(t, ok)
}

func TestIsDemuxable(t *testing.T) {
	assert.True(t, VideoH264.IsDemuxable())
	assert.False(t, VideoAV1.IsDemuxable())
	assert.True(t, AudioAAC.IsDemuxable())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "h264", NormalizeVideo("libx264"))
	assert.Equal(t, "aac", NormalizeAudio("libfdk_aac"))
	assert.Equal(t, "unknown", NormalizeVideo("unknown"))
}
