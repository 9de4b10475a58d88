package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/image/font/basicfont"

	"github.com/couchcryptid/storm-radar/internal/domain"
)

func square(x0, y0, x1, y1 int) []image.Point {
	return []image.Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestDrawPolygon_DegenerateIsNoop(t *testing.T) {
	style := domain.Classify("Winter Storm Warning")

	for _, pts := range [][]image.Point{nil, {{10, 10}}, {{10, 10}, {50, 50}}} {
		layer := NewLayer(testSize)
		DrawPolygon(layer, pts, style)
		assert.Equal(t, NewLayer(testSize).Pix, layer.Pix)
	}
}

func TestDrawPolygon_FillAndStroke(t *testing.T) {
	style := domain.Classify("Winter Storm Warning")
	layer := NewLayer(testSize)

	DrawPolygon(layer, square(100, 80, 200, 160), style)

	assert.Equal(t, color.NRGBA{R: 129, G: 172, B: 234, A: 255}, nrgbaAt(layer, 150, 120), "interior is fill")
	edge := nrgbaAt(layer, 150, 80)
	assert.Greater(t, edge.R, edge.B, "top edge carries the red stroke")
	assert.Equal(t, uint8(0), nrgbaAt(layer, 20, 20).A, "outside untouched")
}

func TestDrawPolygon_SemiOpaqueFill(t *testing.T) {
	style := domain.Classify("Flood Advisory")
	layer := NewLayer(testSize)

	DrawPolygon(layer, square(100, 80, 200, 160), style)

	assert.InDelta(t, 170, int(nrgbaAt(layer, 150, 120).A), 1)
}

func TestCentroid(t *testing.T) {
	x, y := Centroid([]image.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 5.0, y)

	x, y = Centroid([]image.Point{{0, 0}, {9, 0}, {0, 3}})
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 1.0, y)

	x, y = Centroid(nil)
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestDrawCentroidLabel(t *testing.T) {
	style := domain.Classify("Tornado Warning")
	pts := square(100, 80, 200, 160)

	t.Run("draws text at the centroid", func(t *testing.T) {
		layer := NewLayer(testSize)
		DrawCentroidLabel(layer, pts, style.Label, style, basicfont.Face7x13)

		var red, halo int
		for y := 110; y < 130; y++ {
			for x := 130; x < 170; x++ {
				c := nrgbaAt(layer, x, y)
				switch {
				case c.A == 255 && c.R == 255 && c.G == 0:
					red++
				case c.A > 0 && c.R == 255 && c.G == 255:
					halo++
				}
			}
		}
		assert.Positive(t, red, "label glyphs")
		assert.Positive(t, halo, "white halo")
		assert.Equal(t, uint8(0), nrgbaAt(layer, 105, 85).A, "corner untouched")
	})

	t.Run("empty label draws nothing", func(t *testing.T) {
		layer := NewLayer(testSize)
		DrawCentroidLabel(layer, pts, "", domain.Classify("Flood Watch"), basicfont.Face7x13)
		assert.Equal(t, NewLayer(testSize).Pix, layer.Pix)
	})
}
