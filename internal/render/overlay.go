package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// vignetteColor fills the corners outside the round display area.
var vignetteColor = color.NRGBA{A: 255}

// Vignette draws the circular frame overlay: opaque black outside a disc just
// larger than the decorative ring. It stands in for a bitmap overlay when none
// is configured.
func Vignette(size image.Point) *image.RGBA {
	layer := NewLayer(size)
	dc := gg.NewContextForRGBA(layer)
	w, h := float64(size.X), float64(size.Y)

	dc.SetFillRuleEvenOdd()
	dc.DrawRectangle(0, 0, w, h)
	dc.NewSubPath()
	dc.DrawCircle(w/2, h/2, w*ringRadiusRatio+float64(markerRadius))
	dc.SetColor(vignetteColor)
	dc.Fill()
	return layer
}

// LoadOverlay reads a PNG overlay and checks it matches the canvas size.
func LoadOverlay(path string, size image.Point) (*image.RGBA, error) {
	img, err := gg.LoadPNG(path)
	if err != nil {
		return nil, fmt.Errorf("load overlay %s: %w", path, err)
	}
	if got := img.Bounds().Size(); got != size {
		return nil, fmt.Errorf("load overlay %s: size %v, want %v", path, got, size)
	}
	return Blend(NewLayer(size), img), nil
}
