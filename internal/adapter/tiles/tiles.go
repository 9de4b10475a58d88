// Package tiles renders basemaps by stitching XYZ map tiles into the pixel
// frame of a domain.MapView.
package tiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // tile providers serve JPEG as well as PNG
	_ "image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-radar/internal/domain"
	"github.com/couchcryptid/storm-radar/internal/observability"
)

const tileSize = 256

// Background fills the basemap where no tile is drawn.
var Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Source implements domain.BasemapSource. Templates use {z}, {x} and {y}
// placeholders, e.g. "https://tile.openstreetmap.org/{z}/{x}/{y}.png".
type Source struct {
	baseTemplate   string
	labelsTemplate string
	userAgent      string
	httpClient     *http.Client
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewSource creates a tile source. An empty labels template renders no
// label layer.
func NewSource(baseTemplate, labelsTemplate, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Source {
	return &Source{
		baseTemplate:   baseTemplate,
		labelsTemplate: labelsTemplate,
		userAgent:      userAgent,
		httpClient:     &http.Client{Timeout: timeout},
		metrics:        metrics,
		logger:         logger,
	}
}

// Render stitches the base layer over an opaque background and the labels
// layer over a transparent one. A failed base tile fails the whole render; a
// failed labels render is logged and yields no labels.
func (s *Source) Render(ctx context.Context, view domain.MapView) (base, labels image.Image, err error) {
	baseImg, err := s.stitch(ctx, s.baseTemplate, view, Background)
	if err != nil {
		return nil, nil, err
	}
	if s.labelsTemplate == "" {
		return baseImg, nil, nil
	}

	labelsImg, err := s.stitch(ctx, s.labelsTemplate, view, color.Transparent)
	if err != nil {
		s.logger.Warn("basemap labels unavailable", "error", err)
		return baseImg, nil, nil
	}
	return baseImg, labelsImg, nil
}

// TileRange returns the inclusive tile columns and rows covering the view.
// Columns may fall outside [0, 2^zoom) and must be wrapped by the caller.
func TileRange(view domain.MapView) (minX, minY, maxX, maxY int) {
	off := pixelOrigin(view)
	size := view.Size()
	minX = floorDiv(off.X, tileSize)
	minY = floorDiv(off.Y, tileSize)
	maxX = floorDiv(off.X+size.X-1, tileSize)
	maxY = floorDiv(off.Y+size.Y-1, tileSize)
	return minX, minY, maxX, maxY
}

// pixelOrigin is the world pixel of the canvas top-left, rounded once.
func pixelOrigin(view domain.MapView) image.Point {
	ox, oy := view.Origin()
	return image.Pt(int(math.Round(ox)), int(math.Round(oy)))
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func (s *Source) stitch(ctx context.Context, template string, view domain.MapView, bg color.Color) (*image.RGBA, error) {
	canvas := image.NewRGBA(view.Bounds())
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	off := pixelOrigin(view)
	z := view.Zoom()
	n := 1 << z

	minX, minY, maxX, maxY := TileRange(view)
	for ty := minY; ty <= maxY; ty++ {
		if ty < 0 || ty >= n {
			continue
		}
		for tx := minX; tx <= maxX; tx++ {
			tile, err := s.fetchTile(ctx, TileURL(template, z, wrap(tx, n), ty))
			if err != nil {
				return nil, err
			}
			at := image.Pt(tx*tileSize-off.X, ty*tileSize-off.Y)
			draw.Draw(canvas, tile.Bounds().Sub(tile.Bounds().Min).Add(at), tile, tile.Bounds().Min, draw.Over)
		}
	}
	return canvas, nil
}

// TileURL fills the {z}/{x}/{y} placeholders of a template.
func TileURL(template string, z, x, y int) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(template)
}

func wrap(x, n int) int {
	return ((x % n) + n) % n
}

func (s *Source) fetchTile(ctx context.Context, tileURL string) (image.Image, error) {
	start := time.Now()
	img, err := s.doFetch(ctx, tileURL)
	s.metrics.SourceDuration.WithLabelValues("tiles").Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.SourceRequests.WithLabelValues("tiles", outcome).Inc()
	if err != nil {
		return nil, fmt.Errorf("%w: tile %s: %w", domain.ErrSourceUnavailable, tileURL, err)
	}
	return img, nil
}

func (s *Source) doFetch(ctx context.Context, tileURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tile: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode tile: %w", err)
	}
	return img, nil
}
