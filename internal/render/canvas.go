package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"
)

// ErrSizeMismatch is the panic value (wrapped) raised when two canvases of
// different sizes are blended. It signals a programming error: every layer of
// a frame must be built from the same MapView.
var ErrSizeMismatch = errors.New("canvas size mismatch")

// Frame is one composited animation frame.
type Frame struct {
	UTC   time.Time
	Local time.Time
	Image *image.RGBA
}

// NewLayer allocates a fully transparent canvas of the given size.
func NewLayer(size image.Point) *image.RGBA {
	return image.NewRGBA(image.Rectangle{Max: size})
}

// Blend composites overlay over base (Porter-Duff "over") into a new canvas.
// Neither argument is modified. It panics with ErrSizeMismatch if the sizes
// differ.
func Blend(base, overlay image.Image) *image.RGBA {
	bb, ob := base.Bounds(), overlay.Bounds()
	if bb.Size() != ob.Size() {
		panic(fmt.Errorf("%w: base %v, overlay %v", ErrSizeMismatch, bb.Size(), ob.Size()))
	}

	out := NewLayer(bb.Size())
	draw.Draw(out, out.Bounds(), base, bb.Min, draw.Src)
	draw.Draw(out, out.Bounds(), overlay, ob.Min, draw.Over)
	return out
}
