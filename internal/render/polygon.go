package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/couchcryptid/storm-radar/internal/domain"
)

// labelOutline is the halo drawn behind centroid labels.
var labelOutline = color.NRGBA{R: 255, G: 255, B: 255, A: 200}

const labelOutlineWidth = 2

// DrawPolygon fills the closed ring through pts with the style's fill and
// outlines it with a 1 px stroke. Fewer than three points is a no-op.
func DrawPolygon(layer *image.RGBA, pts []image.Point, style domain.HazardStyle) {
	if len(pts) < 3 {
		return
	}

	dc := gg.NewContextForRGBA(layer)
	dc.MoveTo(float64(pts[0].X), float64(pts[0].Y))
	for _, p := range pts[1:] {
		dc.LineTo(float64(p.X), float64(p.Y))
	}
	dc.ClosePath()

	dc.SetColor(style.Fill)
	dc.FillPreserve()
	dc.SetColor(style.Stroke)
	dc.SetLineWidth(1)
	dc.Stroke()
}

// Centroid is the arithmetic mean of the vertices. An empty ring yields
// (0, 0).
func Centroid(pts []image.Point) (x, y float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	var sx, sy int
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return float64(sx) / n, float64(sy) / n
}

// DrawCentroidLabel centers text on the ring's centroid in the style's text
// color with a white halo. Empty text or a degenerate ring draws nothing.
func DrawCentroidLabel(layer *image.RGBA, pts []image.Point, text string, style domain.HazardStyle, face font.Face) {
	if text == "" || len(pts) < 3 {
		return
	}

	x, y := Centroid(pts)
	dc := gg.NewContextForRGBA(layer)
	dc.SetFontFace(face)
	drawOutlinedString(dc, text, x, y, 0.5, 0.5, style.Text, labelOutline, labelOutlineWidth)
}

// drawOutlinedString emulates a stroked glyph outline by stamping the text in
// the outline color at every offset within radius, then drawing it once in
// fg on top.
func drawOutlinedString(dc *gg.Context, s string, x, y, ax, ay float64, fg, outline color.Color, radius int) {
	if radius > 0 {
		dc.SetColor(outline)
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if (dx == 0 && dy == 0) || dx*dx+dy*dy > radius*radius {
					continue
				}
				dc.DrawStringAnchored(s, x+float64(dx), y+float64(dy), ax, ay)
			}
		}
	}
	dc.SetColor(fg)
	dc.DrawStringAnchored(s, x, y, ax, ay)
}
