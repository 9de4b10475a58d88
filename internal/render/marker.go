package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

const (
	markerRadius       = 10
	markerWidth        = 5
	markerShadowOffset = 2
)

var (
	markerColor  = color.NRGBA{R: 255, A: 255}
	markerShadow = color.NRGBA{A: 100}
)

// DrawMarker draws the location marker: a translucent shadow ring offset down
// and right, then the red ring centered on center.
func DrawMarker(layer *image.RGBA, center gg.Point) {
	dc := gg.NewContextForRGBA(layer)
	dc.SetLineWidth(markerWidth)

	dc.DrawEllipse(center.X+markerShadowOffset, center.Y+markerShadowOffset, markerRadius, markerRadius)
	dc.SetColor(markerShadow)
	dc.Stroke()

	dc.DrawEllipse(center.X, center.Y, markerRadius, markerRadius)
	dc.SetColor(markerColor)
	dc.Stroke()
}
