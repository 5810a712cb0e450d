package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

func TestResamplerPassthroughWhenRatesMatch(t *testing.T) {
	r := NewResampler(48000, 48000)
	frame := &stream.AudioFrame{Planes: [][]float32{{1, 2, 3}}, SampleRate: 48000, FrameCount: 3}
	out, err := r.Process(frame)
	require.NoError(t, err)
	assert.Same(t, frame, out)
}

func TestResamplerDownsamplesApproximatelyByRatio(t *testing.T) {
	r := NewResampler(48000, 24000)
	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = float32(i)
	}
	frame := &stream.AudioFrame{Planes: [][]float32{samples}, SampleRate: 48000, FrameCount: len(samples)}
	out, err := r.Process(frame)
	require.NoError(t, err)
	assert.InDelta(t, 2400, out.FrameCount, 2)
	assert.Equal(t, 24000, out.SampleRate)
}

func TestResamplerRejectsInvalidRates(t *testing.T) {
	r := NewResampler(0, 48000)
	_, err := r.Process(&stream.AudioFrame{Planes: [][]float32{{1}}})
	assert.Error(t, err)
}

func TestRemixerDownmixStereoToMono(t *testing.T) {
	r := NewRemixer(1, plan.MixDownmix)
	frame := &stream.AudioFrame{Planes: [][]float32{{1, 1}, {-1, -1}}, FrameCount: 2}
	out, err := r.Remix(frame)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Channels)
	assert.Equal(t, []float32{0, 0}, out.Planes[0])
}

func TestRemixerUpmixDuplicatesChannel(t *testing.T) {
	r := NewRemixer(2, plan.MixUpmix)
	frame := &stream.AudioFrame{Planes: [][]float32{{1, 2}}, FrameCount: 2}
	out, err := r.Remix(frame)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, out.Planes[1])
}

func TestRemixerUpmixDropSilencesNewChannel(t *testing.T) {
	r := NewRemixer(2, plan.MixDrop)
	frame := &stream.AudioFrame{Planes: [][]float32{{1, 2}}, FrameCount: 2}
	out, err := r.Remix(frame)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, out.Planes[1])
}

func TestRemixerNoopWhenChannelsMatch(t *testing.T) {
	r := NewRemixer(2, plan.MixDownmix)
	frame := &stream.AudioFrame{Planes: [][]float32{{1}, {2}}, FrameCount: 1}
	out, err := r.Remix(frame)
	require.NoError(t, err)
	assert.Same(t, frame, out)
}
