package render

import (
	"image"
	"image/color"
)

// PrepareRadar converts a raw radar raster into an overlay. Pure white
// pixels (the server's no-echo background) and already transparent pixels
// become fully transparent; every other pixel keeps its color at the given
// alpha.
func PrepareRadar(img image.Image, alpha uint8) *image.RGBA {
	b := img.Bounds()
	out := NewLayer(b.Size())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 || isWhite(c) {
				continue
			}
			c.A = alpha
			out.Set(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out
}

// IsBlank reports whether a raster carries no radar signal: the minimum and
// maximum of its 8-bit luminance are both 255. Luminance uses the ITU-R 601
// weights on straight (non-premultiplied) color. Fully transparent pixels
// count as white.
func IsBlank(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			if luminance(c) != 255 {
				return false
			}
		}
	}
	return true
}

func isWhite(c color.NRGBA) bool {
	return c.R == 255 && c.G == 255 && c.B == 255
}

func luminance(c color.NRGBA) uint8 {
	l := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B) + 500) / 1000
	return uint8(l)
}
