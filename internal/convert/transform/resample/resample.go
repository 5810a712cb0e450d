// Package resample implements sample-rate conversion and channel remixing
// for decoded audio frames. No resampling library appears in the
// retrieval pack, so this is a hand-rolled linear-interpolation
// resampler; see the project's grounding ledger for why no third-party
// dependency covers this concern.
package resample

import (
	"fmt"

	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// Resampler converts planar float32 audio between sample rates using
// linear interpolation, carrying a fractional leftover position across
// calls so a stream of frames resamples continuously.
type Resampler struct {
	inRate, outRate int
	pos             float64 // fractional read position into the pending tail, in input samples
	tail            [][]float32
}

// NewResampler creates a Resampler converting inRate to outRate.
func NewResampler(inRate, outRate int) *Resampler {
	return &Resampler{inRate: inRate, outRate: outRate}
}

// Process resamples one frame's worth of planar samples, accounting for
// any tail carried from the previous call.
func (r *Resampler) Process(frame *stream.AudioFrame) (*stream.AudioFrame, error) {
	if r.inRate <= 0 || r.outRate <= 0 {
		return nil, fmt.Errorf("resample: invalid rates in=%d out=%d", r.inRate, r.outRate)
	}
	if r.inRate == r.outRate {
		return frame, nil
	}

	channels := len(frame.Planes)
	planes := make([][]float32, channels)
	for ch := 0; ch < channels; ch++ {
		planes[ch] = append(append([]float32(nil), r.tailPlane(ch)...), frame.Planes[ch]...)
	}

	ratio := float64(r.inRate) / float64(r.outRate)
	srcLen := len(planes[0])
	var outLen int
	for pos := r.pos; pos+1 < float64(srcLen); pos += ratio {
		outLen++
	}

	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, outLen)
	}

	pos := r.pos
	for i := 0; i < outLen; i++ {
		i0 := int(pos)
		frac := float32(pos - float64(i0))
		for ch := 0; ch < channels; ch++ {
			s0, s1 := planes[ch][i0], planes[ch][i0+1]
			out[ch][i] = s0 + (s1-s0)*frac
		}
		pos += ratio
	}

	// Carry forward the unconsumed tail so the next call continues smoothly.
	consumedWhole := int(pos)
	r.pos = pos - float64(consumedWhole)
	r.tail = make([][]float32, channels)
	for ch := 0; ch < channels; ch++ {
		if consumedWhole < len(planes[ch]) {
			r.tail[ch] = append([]float32(nil), planes[ch][consumedWhole:]...)
		}
	}

	return &stream.AudioFrame{
		Planes:     out,
		SampleRate: r.outRate,
		Channels:   channels,
		FrameCount: outLen,
		PTS:        frame.PTS,
	}, nil
}

func (r *Resampler) tailPlane(ch int) []float32 {
	if ch < len(r.tail) {
		return r.tail[ch]
	}
	return nil
}

// Remixer converts between channel counts per a plan.MixPolicy.
type Remixer struct {
	targetChannels int
	policy         plan.MixPolicy
}

// NewRemixer creates a Remixer targeting targetChannels under policy.
func NewRemixer(targetChannels int, policy plan.MixPolicy) *Remixer {
	return &Remixer{targetChannels: targetChannels, policy: policy}
}

// Remix converts frame's channel layout to the target channel count.
func (r *Remixer) Remix(frame *stream.AudioFrame) (*stream.AudioFrame, error) {
	src := len(frame.Planes)
	if src == r.targetChannels {
		return frame, nil
	}

	out := make([][]float32, r.targetChannels)
	switch {
	case r.targetChannels < src:
		out = downmix(frame.Planes, r.targetChannels)
	case r.targetChannels > src:
		out = upmix(frame.Planes, r.targetChannels, r.policy)
	}

	return &stream.AudioFrame{
		Planes:     out,
		SampleRate: frame.SampleRate,
		Channels:   r.targetChannels,
		FrameCount: frame.FrameCount,
		PTS:        frame.PTS,
	}, nil
}

// downmix sums contributing source channels, averaging to avoid clipping.
// Stereo-to-mono and 5.1-to-stereo use simple equal-weight folding; any
// other reduction folds all source channels evenly into the first target
// channels, which is a coarse approximation but keeps all source energy
// present.
func downmix(src [][]float32, target int) [][]float32 {
	n := len(src)
	frames := len(src[0])
	out := make([][]float32, target)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	if target == 1 {
		for i := 0; i < frames; i++ {
			var sum float32
			for ch := 0; ch < n; ch++ {
				sum += src[ch][i]
			}
			out[0][i] = sum / float32(n)
		}
		return out
	}
	counts := make([]float32, target)
	for ch := 0; ch < n; ch++ {
		counts[ch%target]++
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < n; ch++ {
			out[ch%target][i] += src[ch][i] / counts[ch%target]
		}
	}
	return out
}

// upmix duplicates or silences new channels depending on policy: MixUpmix
// duplicates the last available channel into the new slots, MixDrop (and
// any other policy) leaves new channels silent.
func upmix(src [][]float32, target int, policy plan.MixPolicy) [][]float32 {
	n := len(src)
	frames := len(src[0])
	out := make([][]float32, target)
	for ch := 0; ch < target; ch++ {
		out[ch] = make([]float32, frames)
		if ch < n {
			copy(out[ch], src[ch])
			continue
		}
		if policy == plan.MixUpmix {
			copy(out[ch], src[n-1])
		}
	}
	return out
}
