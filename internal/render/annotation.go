package render

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/couchcryptid/storm-radar/internal/domain"
)

const (
	badgeTop      = 23
	badgeGap      = 2
	badgeHeight   = 20
	badgeHeightSm = 15
	badgeCapWidth = 10
	// at this many badges the strip switches to the small face
	badgeCrowded = 3

	timeLabelOutline = 3
)

// ringRadiusRatio sizes the decorative ring relative to the canvas width
// (150 px on the 320 px reference display).
const ringRadiusRatio = 150.0 / 320.0

// Annotation is the per-frame text and decoration drawn over the map.
type Annotation struct {
	// TimeLabel is the caption centered at the top, e.g.
	// "15:04 EDT (07 mins ago)".
	TimeLabel string

	// LocalKinds are the alert kinds active at the marker, most recent first.
	// They pick the ring style and produce one badge per unique kind.
	LocalKinds []string
}

// DrawAnnotations draws the decorative ring, the time label and the stacked
// alert badges.
func DrawAnnotations(layer *image.RGBA, a Annotation, fonts Fonts) {
	dc := gg.NewContextForRGBA(layer)
	w, h := float64(dc.Width()), float64(dc.Height())

	ringColor, ringWidth := domain.RingStyle(a.LocalKinds)
	r := w * ringRadiusRatio
	dc.DrawEllipse(w/2, h/2, r, r)
	dc.SetColor(ringColor)
	dc.SetLineWidth(float64(ringWidth))
	dc.Stroke()

	if a.TimeLabel != "" {
		dc.SetFontFace(fonts.Medium)
		drawOutlinedString(dc, a.TimeLabel, w/2, 0, 0.5, 1, color.Black, color.White, timeLabelOutline)
	}

	kinds := domain.UniqueLabels(a.LocalKinds)
	face, height := fonts.Medium, float64(badgeHeight)
	if len(kinds) >= badgeCrowded {
		face, height = fonts.Small, badgeHeightSm
	}
	dc.SetFontFace(face)

	y := float64(badgeTop)
	for _, kind := range kinds {
		drawBadge(dc, kind, domain.Classify(kind), y, height)
		y += height + badgeGap
	}
}

// drawBadge draws one capsule centered horizontally at row y: a half-ellipse
// cap, the text body, and a closing cap, filled and outlined as one path.
func drawBadge(dc *gg.Context, text string, style domain.HazardStyle, y, height float64) {
	tw, _ := dc.MeasureString(text)
	x := (float64(dc.Width()) - tw) / 2
	ry := height / 2
	left, right := x+badgeCapWidth/2, x+tw

	dc.MoveTo(left, y)
	dc.LineTo(right, y)
	dc.DrawEllipticalArc(right, y+ry, badgeCapWidth, ry, -math.Pi/2, math.Pi/2)
	dc.LineTo(left, y+height)
	dc.DrawEllipticalArc(left, y+ry, badgeCapWidth, ry, math.Pi/2, 3*math.Pi/2)
	dc.ClosePath()

	dc.SetColor(opaque(style.Fill))
	dc.FillPreserve()
	dc.SetColor(style.Stroke)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.SetColor(style.BadgeText)
	dc.DrawStringAnchored(text, x+2, y+ry, 0, 0.5)
}

func opaque(c color.NRGBA) color.NRGBA {
	c.A = 255
	return c
}
