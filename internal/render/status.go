package render

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	statusLeft        = 10
	statusTextInset   = 15
	statusPadRight    = 10
	statusPadBottom   = 8
	statusLineSpacing = 2
	statusCapRadius   = 15
)

// ReferenceSize is the display the layout constants are tuned for.
var ReferenceSize = image.Pt(320, 240)

// StatusStyle controls RenderStatus. Zero colors and a nil face fall back to
// a translucent gray box with white bitmap text.
type StatusStyle struct {
	// Size of the canvas. Zero takes the background's size, then the
	// overlay's, then ReferenceSize.
	Size image.Point
	Face font.Face

	Box  color.NRGBA
	Text color.NRGBA

	// TextOnly skips the message box, leaving the text on the background.
	TextOnly bool

	// Position is the top-left of the message box. Nil places it at the
	// left edge just below the vertical middle.
	Position *image.Point

	// Border draws Overlay on top of the result.
	Border  bool
	Overlay image.Image
}

var (
	defaultStatusBox  = color.NRGBA{R: 100, G: 100, B: 100, A: 200}
	defaultStatusText = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// RenderStatus draws a single informational frame: a rounded message box
// over an optional background, with the overlay on top when Border is set.
// It always returns a canvas of style.Size.
func RenderStatus(message string, background image.Image, style StatusStyle) *image.RGBA {
	if style.Size.X <= 0 || style.Size.Y <= 0 {
		style.Size = statusSize(background, style.Overlay)
	}
	if style.Box == (color.NRGBA{}) {
		style.Box = defaultStatusBox
	}
	if style.Text == (color.NRGBA{}) {
		style.Text = defaultStatusText
	}
	if style.Face == nil {
		style.Face = basicfont.Face7x13
	}

	annotation := NewLayer(style.Size)
	dc := gg.NewContextForRGBA(annotation)
	dc.SetFontFace(style.Face)

	lines := strings.Split(message, "\n")
	lineHeight := dc.FontHeight()
	var textWidth float64
	for _, l := range lines {
		if lw, _ := dc.MeasureString(l); lw > textWidth {
			textWidth = lw
		}
	}
	textHeight := float64(len(lines))*lineHeight + float64(len(lines)-1)*statusLineSpacing

	x, y := float64(statusLeft), float64(style.Size.Y)/2+20
	if style.Position != nil {
		x, y = float64(style.Position.X), float64(style.Position.Y)
	}
	x2 := x + statusTextInset + textWidth + statusPadRight
	y2 := y + textHeight + statusPadBottom
	ry := (y2 - y) / 2

	if !style.TextOnly {
		dc.MoveTo(x, y)
		dc.LineTo(x2, y)
		dc.DrawEllipticalArc(x2, y+ry, statusCapRadius, ry, -math.Pi/2, math.Pi/2)
		dc.LineTo(x, y2)
		dc.ClosePath()
		dc.SetColor(style.Box)
		dc.Fill()
	}

	dc.SetColor(style.Text)
	for i, l := range lines {
		ly := y + statusPadBottom/2 + float64(i)*(lineHeight+statusLineSpacing)
		dc.DrawStringAnchored(l, x+statusTextInset, ly, 0, 1)
	}

	layers := LayerSet{LayerAnnotations: annotation}
	if background != nil {
		layers[LayerBasemap] = background
	}
	if style.Border && style.Overlay != nil {
		layers[LayerOverlay] = style.Overlay
	}
	return Compose(style.Size, layers)
}

func statusSize(background, overlay image.Image) image.Point {
	for _, img := range []image.Image{background, overlay} {
		if img == nil {
			continue
		}
		if size := img.Bounds().Size(); size.X > 0 && size.Y > 0 {
			return size
		}
	}
	return ReferenceSize
}
