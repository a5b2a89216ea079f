package geometry

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/manash/pixedit/pkg/models"
)

// MaxCanvasDim is the largest canvas side sent to the model. Expansion
// canvases that would exceed it are uniformly downscaled first.
const MaxCanvasDim = 2048

var (
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	ErrRegionOutOfBounds = errors.New("region outside image bounds")
)

// ExpansionPlan describes the padded canvas for an outpaint request: the
// canvas size, the placed size of the original image, and its top-left
// offset. Scale is 1.0 unless the canvas had to be downscaled to fit
// MaxCanvasDim.
type ExpansionPlan struct {
	CanvasW int
	CanvasH int
	ImageW  int
	ImageH  int
	OffsetX int
	OffsetY int
	Scale   float64
}

// PlanExpansion computes the minimal bounding canvas that contains a w x h
// image unscaled at the target aspect ratio: the short dimension grows, the
// other stays. If either canvas side would exceed MaxCanvasDim, canvas and
// image are downscaled together so the longer side equals the maximum.
func PlanExpansion(w, h int, aspect float64) (*ExpansionPlan, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if aspect <= 0 {
		return nil, fmt.Errorf("%w: aspect %f", models.ErrInvalidAspect, aspect)
	}

	canvasW := float64(w)
	canvasH := float64(h)
	if float64(w)/float64(h) < aspect {
		canvasW = float64(h) * aspect
	} else {
		canvasH = float64(w) / aspect
	}

	scale := 1.0
	longer := math.Max(canvasW, canvasH)
	if longer > MaxCanvasDim {
		scale = MaxCanvasDim / longer
	}

	plan := &ExpansionPlan{
		CanvasW: int(math.Round(canvasW * scale)),
		CanvasH: int(math.Round(canvasH * scale)),
		ImageW:  int(math.Round(float64(w) * scale)),
		ImageH:  int(math.Round(float64(h) * scale)),
		Scale:   scale,
	}
	plan.OffsetX = (plan.CanvasW - plan.ImageW) / 2
	plan.OffsetY = (plan.CanvasH - plan.ImageH) / 2
	return plan, nil
}

// PadForExpansion centers the (possibly downscaled) image on a blank canvas
// per the plan. The blank border is what the model is instructed to fill.
func PadForExpansion(img image.Image, plan *ExpansionPlan) *image.NRGBA {
	placed := img
	if plan.Scale < 1.0 {
		placed = imaging.Resize(img, plan.ImageW, plan.ImageH, imaging.Lanczos)
	}
	canvas := imaging.New(plan.CanvasW, plan.CanvasH, color.NRGBA{})
	return imaging.Paste(canvas, placed, image.Pt(plan.OffsetX, plan.OffsetY))
}

// NaturalRegion converts a selection made against the rendered (on-screen,
// possibly scaled) image into natural-pixel coordinates using the ratio of
// natural to rendered dimensions.
func NaturalRegion(r models.CropRegion, naturalW, naturalH, renderedW, renderedH int) (models.CropRegion, error) {
	if naturalW <= 0 || naturalH <= 0 || renderedW <= 0 || renderedH <= 0 {
		return models.CropRegion{}, fmt.Errorf("%w: natural %dx%d rendered %dx%d",
			ErrInvalidDimensions, naturalW, naturalH, renderedW, renderedH)
	}
	sx := float64(naturalW) / float64(renderedW)
	sy := float64(naturalH) / float64(renderedH)
	return models.CropRegion{
		X:      int(math.Round(float64(r.X) * sx)),
		Y:      int(math.Round(float64(r.Y) * sy)),
		Width:  int(math.Round(float64(r.Width) * sx)),
		Height: int(math.Round(float64(r.Height) * sy)),
	}, nil
}

// NaturalPoint converts a rendered-space click into natural-pixel
// coordinates.
func NaturalPoint(p models.Hotspot, naturalW, naturalH, renderedW, renderedH int) (models.Hotspot, error) {
	if naturalW <= 0 || naturalH <= 0 || renderedW <= 0 || renderedH <= 0 {
		return models.Hotspot{}, fmt.Errorf("%w: natural %dx%d rendered %dx%d",
			ErrInvalidDimensions, naturalW, naturalH, renderedW, renderedH)
	}
	return models.Hotspot{
		X: int(math.Round(float64(p.X) * float64(naturalW) / float64(renderedW))),
		Y: int(math.Round(float64(p.Y) * float64(naturalH) / float64(renderedH))),
	}, nil
}

// ExtractCrop cuts a natural-pixel rectangle out of the image into a new
// standalone image. A pixelRatio above 1 upscales the output so its
// resolution matches physical pixels.
func ExtractCrop(img image.Image, r models.CropRegion, pixelRatio float64) (*image.NRGBA, error) {
	if r.Empty() {
		return nil, fmt.Errorf("%w: empty region", ErrRegionOutOfBounds)
	}
	bounds := img.Bounds()
	rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
	if !rect.In(bounds) {
		return nil, fmt.Errorf("%w: region (%d,%d %dx%d) vs image %dx%d",
			ErrRegionOutOfBounds, r.X, r.Y, r.Width, r.Height, bounds.Dx(), bounds.Dy())
	}

	cropped := imaging.Crop(img, rect)
	if pixelRatio > 0 && pixelRatio != 1.0 {
		outW := int(math.Round(float64(r.Width) * pixelRatio))
		outH := int(math.Round(float64(r.Height) * pixelRatio))
		cropped = imaging.Resize(cropped, outW, outH, imaging.Lanczos)
	}
	return cropped, nil
}

// Decode decodes raw image bytes.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidEncoding, err)
	}
	return img, nil
}

// EncodePNG encodes an image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Dimensions returns the pixel size of raw image bytes.
func Dimensions(data []byte) (w, h int, err error) {
	img, err := Decode(data)
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}
