package render

import (
	"fmt"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Font sizes in points for TrueType faces.
const (
	smallPoints  = 12
	mediumPoints = 15
	boldPoints   = 20
)

// Fonts are the faces used for labels. Small and Medium size the alert
// badges and time label; Bold is used for status messages.
type Fonts struct {
	Small  font.Face
	Medium font.Face
	Bold   font.Face
}

// DefaultFonts uses the built-in 7x13 bitmap face for every role, so frames
// render without any font files on disk.
func DefaultFonts() Fonts {
	return Fonts{
		Small:  basicfont.Face7x13,
		Medium: basicfont.Face7x13,
		Bold:   basicfont.Face7x13,
	}
}

// LoadFonts loads the three faces from one TrueType file. An empty path
// returns DefaultFonts.
func LoadFonts(path string) (Fonts, error) {
	if path == "" {
		return DefaultFonts(), nil
	}

	small, err := gg.LoadFontFace(path, smallPoints)
	if err != nil {
		return Fonts{}, fmt.Errorf("load font %s: %w", path, err)
	}
	medium, err := gg.LoadFontFace(path, mediumPoints)
	if err != nil {
		return Fonts{}, fmt.Errorf("load font %s: %w", path, err)
	}
	bold, err := gg.LoadFontFace(path, boldPoints)
	if err != nil {
		return Fonts{}, fmt.Errorf("load font %s: %w", path, err)
	}
	return Fonts{Small: small, Medium: medium, Bold: bold}, nil
}
