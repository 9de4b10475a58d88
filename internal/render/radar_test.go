package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareRadar(t *testing.T) {
	img := filled(image.Pt(3, 1), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.NRGBA{R: 0, G: 200, B: 0, A: 255})
	img.Set(2, 0, color.NRGBA{})

	out := PrepareRadar(img, 155)

	assert.Equal(t, uint8(0), nrgbaAt(out, 0, 0).A, "white becomes transparent")
	assert.Equal(t, uint8(0), nrgbaAt(out, 2, 0).A, "transparent stays transparent")

	echo := nrgbaAt(out, 1, 0)
	assert.Equal(t, uint8(155), echo.A)
	assert.InDelta(t, 200, int(echo.G), 1)
	assert.Equal(t, uint8(0), echo.R)
}

func TestPrepareRadar_RebasesBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 7, 7))
	img.Set(5, 5, color.NRGBA{R: 10, A: 255})

	out := PrepareRadar(img, 200)

	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, uint8(200), nrgbaAt(out, 0, 0).A)
}

func TestIsBlank(t *testing.T) {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	tests := []struct {
		name  string
		build func() image.Image
		want  bool
	}{
		{"all white", func() image.Image { return filled(image.Pt(8, 8), white) }, true},
		{"all transparent", func() image.Image { return NewLayer(image.Pt(8, 8)) }, true},
		{"one green echo", func() image.Image {
			img := filled(image.Pt(8, 8), white)
			img.Set(4, 4, color.NRGBA{G: 200, A: 255})
			return img
		}, false},
		{"near white", func() image.Image {
			img := filled(image.Pt(8, 8), white)
			img.Set(0, 0, color.NRGBA{R: 254, G: 254, B: 254, A: 255})
			return img
		}, false},
		{"translucent white", func() image.Image {
			return filled(image.Pt(8, 8), color.NRGBA{R: 255, G: 255, B: 255, A: 40})
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlank(tt.build()))
		})
	}
}
