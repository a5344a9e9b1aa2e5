package rasterizer

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Preview zoom bounds and step.
const (
	MinZoom  = 0.25
	MaxZoom  = 2.0
	ZoomStep = 0.25
)

// ClampZoom limits z to [MinZoom, MaxZoom] and snaps it to ZoomStep.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) || z <= 0 {
		return 1
	}
	z = math.Round(z/ZoomStep) * ZoomStep
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Zoom scales a rendered certificate for on-screen preview.
func Zoom(img image.Image, z float64) *image.NRGBA {
	z = ClampZoom(z)
	b := img.Bounds()
	if z == 1 {
		return imaging.Clone(img)
	}
	w := int(math.Max(1, math.Round(float64(b.Dx())*z)))
	h := int(math.Max(1, math.Round(float64(b.Dy())*z)))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
