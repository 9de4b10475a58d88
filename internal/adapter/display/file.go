package display

import (
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/storm-radar/internal/frames"
)

// Output file names inside the sink directory.
const (
	AnimationFile = "radar.gif"
	LatestFile    = "latest.png"
)

// GIF frame delays in hundredths of a second. The last frame holds longer so
// the loop reads as "now".
const (
	frameDelay     = 50
	lastFrameDelay = 200
)

// FileSink writes each animation to a directory as an animated GIF plus the
// newest frame as PNG. Files are replaced atomically.
type FileSink struct {
	dir    string
	logger *slog.Logger
}

// NewFileSink creates a sink writing into dir, creating it if needed.
func NewFileSink(dir string, logger *slog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{dir: dir, logger: logger}, nil
}

func (s *FileSink) Name() string { return "file" }

// Show writes the animation. An empty animation writes nothing.
func (s *FileSink) Show(_ context.Context, anim frames.Animation) error {
	latest, ok := anim.Latest()
	if !ok {
		return nil
	}

	if err := s.writeAtomic(AnimationFile, func(w io.Writer) error {
		return gif.EncodeAll(w, EncodeGIF(anim))
	}); err != nil {
		return err
	}
	if err := s.writeAtomic(LatestFile, func(w io.Writer) error {
		return png.Encode(w, latest.Image)
	}); err != nil {
		return err
	}

	s.logger.Debug("animation written", "dir", s.dir, "frames", len(anim.Frames), "kind", anim.Kind)
	return nil
}

// EncodeGIF quantizes the frames to the web-safe palette with dithering.
func EncodeGIF(anim frames.Animation) *gif.GIF {
	g := &gif.GIF{
		Image: make([]*image.Paletted, 0, len(anim.Frames)),
		Delay: make([]int, 0, len(anim.Frames)),
	}
	for i, f := range anim.Frames {
		b := f.Image.Bounds()
		p := image.NewPaletted(b, palette.WebSafe)
		draw.FloydSteinberg.Draw(p, b, f.Image, b.Min)
		g.Image = append(g.Image, p)

		delay := frameDelay
		if i == len(anim.Frames)-1 {
			delay = lastFrameDelay
		}
		g.Delay = append(g.Delay, delay)
	}
	return g
}

func (s *FileSink) writeAtomic(name string, encode func(io.Writer) error) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if err := encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
