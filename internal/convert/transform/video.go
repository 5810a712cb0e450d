// Package transform applies per-track video resize and audio
// resample/remix between decode and encode, driven by a plan.TrackPlan's
// VideoTransform/AudioTransform. Video resizing uses
// golang.org/x/image/draw for resizing.
package transform

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/mediabunnygo/mediabunny/internal/convert/plan"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// rgbaView wraps a VideoFrame's packed pixel buffer as an image.Image
// without copying, so draw.Scaler can read it directly.
type rgbaView struct {
	frame *stream.VideoFrame
}

func (v rgbaView) ColorModel() color.Model { return color.RGBAModel }
func (v rgbaView) Bounds() image.Rectangle {
	return image.Rect(0, 0, v.frame.Width, v.frame.Height)
}
func (v rgbaView) At(x, y int) color.Color {
	i := y*v.frame.Stride + x*4
	return color.RGBA{v.frame.Pix[i], v.frame.Pix[i+1], v.frame.Pix[i+2], v.frame.Pix[i+3]}
}

// VideoResizer resizes decoded frames to a target dimension according to a
// plan.FitMode. Each Resize call allocates a fresh output *image.RGBA; the
// scratch field is not used.
type VideoResizer struct {
	t       plan.VideoTransform
	scratch *image.RGBA
}

// NewVideoResizer creates a resizer for the given transform.
func NewVideoResizer(t plan.VideoTransform) *VideoResizer {
	return &VideoResizer{t: t}
}

// Resize produces a new frame at the transform's target dimensions. For
// FitLetterbox/FitCrop, the source is scaled to preserve aspect ratio and
// then padded (letterbox, black bars) or cropped (crop) to exactly fill
// the target rectangle; FitStretch scales both axes independently.
func (r *VideoResizer) Resize(src *stream.VideoFrame) (*stream.VideoFrame, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return nil, fmt.Errorf("transform: source frame has invalid dimensions %dx%d", src.Width, src.Height)
	}
	dstW, dstH := r.t.Width, r.t.Height
	if dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("transform: target dimensions must be positive, got %dx%d", dstW, dstH)
	}

	out := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	srcImg := rgbaView{frame: src}

	switch r.t.Fit {
	case plan.FitStretch:
		draw.CatmullRom.Scale(out, out.Bounds(), srcImg, srcImg.Bounds(), draw.Over, nil)
	case plan.FitCrop:
		scale := maxFloat(float64(dstW)/float64(src.Width), float64(dstH)/float64(src.Height))
		scaledW, scaledH := int(float64(src.Width)*scale+0.5), int(float64(src.Height)*scale+0.5)
		offX, offY := (scaledW-dstW)/2, (scaledH-dstH)/2
		dr := image.Rect(-offX, -offY, scaledW-offX, scaledH-offY)
		draw.CatmullRom.Scale(out, dr, srcImg, srcImg.Bounds(), draw.Over, nil)
	case plan.FitLetterbox, "":
		scale := minFloat(float64(dstW)/float64(src.Width), float64(dstH)/float64(src.Height))
		scaledW, scaledH := int(float64(src.Width)*scale+0.5), int(float64(src.Height)*scale+0.5)
		offX, offY := (dstW-scaledW)/2, (dstH-scaledH)/2
		dr := image.Rect(offX, offY, offX+scaledW, offY+scaledH)
		draw.CatmullRom.Scale(out, dr, srcImg, srcImg.Bounds(), draw.Over, nil)
	default:
		return nil, fmt.Errorf("transform: unknown fit mode %q", r.t.Fit)
	}

	return &stream.VideoFrame{
		Pix:        out.Pix,
		Width:      dstW,
		Height:     dstH,
		Stride:     out.Stride,
		PTS:        src.PTS,
		ColorSpace: src.ColorSpace,
	}, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
