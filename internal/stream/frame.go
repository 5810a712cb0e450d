package stream

import "github.com/mediabunnygo/mediabunny/internal/timebase"

// VideoFrame is a decoded picture. It is transient: it exists only within a
// single pipeline step (decode -> transform -> encode) and is never
// retained beyond that.
type VideoFrame struct {
	// Pix holds interleaved RGBA pixel data, row-major, stride = Width*4.
	// The transform stage operates on this representation directly via
	// golang.org/x/image/draw; codec backends are responsible for
	// converting to/from their native pixel formats at the decode/encode
	// boundary.
	Pix    []byte
	Width  int
	Height int
	Stride int

	PTS        timebase.Rational
	ColorSpace ColorSpace
}

// AudioFrame is a block of decoded PCM audio, planar float32 samples.
type AudioFrame struct {
	// Planes holds one []float32 per channel, each of length FrameCount.
	Planes     [][]float32
	SampleRate int
	Channels   int
	FrameCount int

	PTS timebase.Rational
}

// Duration returns the frame's duration as a Rational in 1/SampleRate units.
func (f AudioFrame) Duration() timebase.Rational {
	if f.SampleRate == 0 {
		return timebase.Zero
	}
	return timebase.New(int64(f.FrameCount), int64(f.SampleRate))
}
