package frames_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-radar/internal/domain"
	"github.com/couchcryptid/storm-radar/internal/frames"
	"github.com/couchcryptid/storm-radar/internal/observability"
	"github.com/couchcryptid/storm-radar/internal/render"
)

// --- fakes ---

type fakeRadar struct {
	rasters map[time.Time]image.Image
	errs    map[time.Time]error
	calls   int
}

func (f *fakeRadar) RasterAt(_ context.Context, _, _ string, at time.Time, _ domain.BoundingBox, size image.Point) (image.Image, error) {
	f.calls++
	if err, ok := f.errs[at]; ok {
		return nil, err
	}
	if img, ok := f.rasters[at]; ok {
		return img, nil
	}
	return nil, domain.ErrSourceUnavailable
}

// --- helpers ---

var (
	frameTime = time.Date(2024, 4, 26, 15, 2, 0, 0, time.UTC)
	now       = frameTime.Add(7 * time.Minute)
	center    = domain.GeoPoint{Lon: -75.0, Lat: 40.0}
	gray      = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
)

func solid(size image.Point, c color.Color) *image.RGBA {
	img := render.NewLayer(size)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func at(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func box(minLon, minLat, maxLon, maxLat float64) domain.Polygon {
	return domain.Polygon{Points: []domain.GeoPoint{
		{Lon: minLon, Lat: maxLat},
		{Lon: maxLon, Lat: maxLat},
		{Lon: maxLon, Lat: minLat},
		{Lon: minLon, Lat: minLat},
	}}
}

func newBuilder(radar domain.RasterSource) (*frames.Builder, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	opts := frames.Options{RadarOpacity: 155, HazardOpacity: 200, Fonts: render.DefaultFonts()}
	return frames.NewBuilder(radar, opts, clockwork.NewFakeClockAt(now), slog.Default(), metrics), metrics
}

func newBatch(times ...time.Time) frames.Batch {
	view := domain.NewMapView(center, 7, 320, 240)
	return frames.Batch{
		Session: domain.Session{Point: center, Station: "kdix", TimeZone: "America/New_York"},
		Layer:   "bohp",
		View:    view,
		Times:   times,
		Basemap: solid(view.Size(), gray),
	}
}

func isRed(c color.NRGBA) bool {
	return c.A > 0 && c.R > 200 && c.G < 100 && c.B < 100
}

// --- tests ---

func TestBuildFrames_WinterStormAndThunderstormWatch(t *testing.T) {
	batch := newBatch(frameTime)
	batch.Hazards = []domain.Hazard{{
		Kind:    "Winter Storm Warning",
		Polygon: box(-76.2, 40.2, -75.6, 40.6),
	}}
	batch.Warnings = []domain.Warning{{
		Kind:    "Severe Thunderstorm Watch",
		Polygon: box(-74.4, 39.4, -73.8, 39.8),
	}}

	hazardPts := batch.View.PixelPolygon(batch.Hazards[0].Polygon)
	hx, hy := render.Centroid(hazardPts)
	cx, cy := int(hx), int(hy)

	// white raster with one green echo block inside the hazard
	raster := solid(batch.View.Size(), color.White)
	for y := cy + 5; y < cy+15; y++ {
		for x := cx + 5; x < cx+15; x++ {
			raster.Set(x, y, color.NRGBA{G: 200, A: 255})
		}
	}
	radar := &fakeRadar{rasters: map[time.Time]image.Image{frameTime: raster}}
	b, metrics := newBuilder(radar)

	got := b.BuildFrames(context.Background(), batch)

	require.Len(t, got, 1)
	assert.Equal(t, frameTime, got[0].UTC)
	assert.Equal(t, "EDT", got[0].Local.Format("MST"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FramesRendered))

	t.Run("hazard layer is cornflower with a red stroke", func(t *testing.T) {
		layers := b.BuildLayers(frames.FrameSpec{UTC: frameTime, Local: frameTime, Radar: raster, Hazards: batch.Hazards, Warnings: batch.Warnings}, batch)
		hazards := layers[render.LayerHazards]
		require.NotNil(t, hazards)

		fill := at(hazards, cx, cy)
		assert.InDelta(t, 129, int(fill.R), 1)
		assert.InDelta(t, 172, int(fill.G), 1)
		assert.InDelta(t, 234, int(fill.B), 1)
		assert.Equal(t, uint8(200), fill.A)

		top := hazardPts[0].Y
		var stroke bool
		for y := top - 2; y <= top+2; y++ {
			stroke = stroke || isRed(at(hazards, cx, y))
		}
		assert.True(t, stroke, "red outline along the top edge")
	})

	t.Run("warning layer is yellow without a label", func(t *testing.T) {
		layers := b.BuildLayers(frames.FrameSpec{UTC: frameTime, Local: frameTime, Radar: raster, Hazards: batch.Hazards, Warnings: batch.Warnings}, batch)
		warnings := layers[render.LayerWarnings]
		require.NotNil(t, warnings)

		wx, wy := render.Centroid(batch.View.PixelPolygon(batch.Warnings[0].Polygon))
		fill := at(warnings, int(wx), int(wy))
		assert.Equal(t, uint8(255), fill.R)
		assert.Equal(t, uint8(255), fill.G)
		assert.Equal(t, uint8(0), fill.B)
		assert.Equal(t, uint8(170), fill.A)

		bounds := warnings.Bounds()
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				if isRed(at(warnings, x, y)) {
					t.Fatalf("unexpected red label pixel at (%d,%d)", x, y)
				}
			}
		}
	})

	t.Run("hazard sits above the basemap and below the radar", func(t *testing.T) {
		frame := got[0].Image

		plain := at(frame, cx-10, cy-10)
		assert.Greater(t, plain.B, plain.G, "hazard tints the basemap blue")
		assert.NotEqual(t, gray, plain)

		echo := at(frame, cx+10, cy+10)
		assert.Greater(t, echo.G, echo.B, "radar echo drawn over the hazard")
	})
}

func TestBuildFrames_CapabilitiesUnavailable(t *testing.T) {
	radar := &fakeRadar{}
	b, metrics := newBuilder(radar)
	batch := newBatch(domain.PlaceholderFrameTimes(5)...)

	got := b.BuildFrames(context.Background(), batch)

	assert.Empty(t, got)
	assert.Zero(t, radar.calls, "placeholders are never fetched")
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.FramesSkipped.WithLabelValues("placeholder")))

	status := render.RenderStatus("Refreshing", nil, render.StatusStyle{Size: batch.View.Size()})
	require.NotNil(t, status)

	var text int
	for y := 140; y < 162; y++ {
		for x := 25; x < 100; x++ {
			if at(status, x, y) == (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
				text++
			}
		}
	}
	assert.Positive(t, text, "status frame carries the message")
}

func TestBuildFrames_SkipsBadTimestamps(t *testing.T) {
	t0 := frameTime
	t1 := t0.Add(5 * time.Minute)
	t2 := t1.Add(5 * time.Minute)
	t3 := t2.Add(5 * time.Minute)
	t4 := t3.Add(5 * time.Minute)

	size := image.Pt(320, 240)
	echo := solid(size, color.White)
	echo.Set(1, 1, color.NRGBA{G: 200, A: 255})

	radar := &fakeRadar{
		rasters: map[time.Time]image.Image{
			t0: echo,
			t2: solid(size, color.White),
			t3: solid(image.Pt(100, 100), color.Black),
			t4: echo,
		},
		errs: map[time.Time]error{t1: errors.New("502 bad gateway")},
	}
	b, metrics := newBuilder(radar)

	got := b.BuildFrames(context.Background(), newBatch(t0, t1, time.Time{}, t2, t3, t4))

	require.Len(t, got, 2)
	assert.Equal(t, t0, got[0].UTC)
	assert.Equal(t, t4, got[1].UTC)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FramesSkipped.WithLabelValues("fetch_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FramesSkipped.WithLabelValues("blank")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FramesSkipped.WithLabelValues("bad_size")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FramesSkipped.WithLabelValues("placeholder")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FramesRendered))
}

func TestBuildFrames_CancelledBeforeStart(t *testing.T) {
	radar := &fakeRadar{}
	b, _ := newBuilder(radar)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := b.BuildFrames(ctx, newBatch(frameTime, frameTime.Add(time.Minute)))

	assert.Empty(t, got)
	assert.Zero(t, radar.calls)
}

func TestBuildFrames_UnknownZoneFallsBackToUTC(t *testing.T) {
	echo := solid(image.Pt(320, 240), color.White)
	echo.Set(0, 0, color.NRGBA{R: 80, A: 255})
	b, _ := newBuilder(&fakeRadar{rasters: map[time.Time]image.Image{frameTime: echo}})
	batch := newBatch(frameTime)
	batch.Session.TimeZone = "Nowhere/Special"

	got := b.BuildFrames(context.Background(), batch)

	require.Len(t, got, 1)
	assert.Equal(t, time.UTC, got[0].Local.Location())
}

func TestBuildLayers_OptionalSlots(t *testing.T) {
	b, _ := newBuilder(&fakeRadar{})
	batch := newBatch(frameTime)
	batch.Basemap = nil

	layers := b.BuildLayers(frames.FrameSpec{UTC: frameTime, Local: frameTime}, batch)

	assert.NotContains(t, layers, render.LayerBasemap)
	assert.NotContains(t, layers, render.LayerHazards)
	assert.NotContains(t, layers, render.LayerRadar)
	assert.NotContains(t, layers, render.LayerWarnings)
	assert.NotContains(t, layers, render.LayerLabels)
	assert.NotContains(t, layers, render.LayerOverlay)
	require.Contains(t, layers, render.LayerMarker)
	require.Contains(t, layers, render.LayerAnnotations)

	for kind, layer := range layers {
		assert.Equal(t, batch.View.Size(), layer.Bounds().Size(), kind.String())
	}
}

func TestBuildLayers_WarningLabel(t *testing.T) {
	b, _ := newBuilder(&fakeRadar{})
	batch := newBatch(frameTime)
	warnings := []domain.Warning{{Kind: "Tornado Warning", Polygon: box(-74.4, 39.4, -73.8, 39.8)}}

	layers := b.BuildLayers(frames.FrameSpec{UTC: frameTime, Local: frameTime, Warnings: warnings}, batch)

	layer := layers[render.LayerWarnings]
	wx, wy := render.Centroid(batch.View.PixelPolygon(warnings[0].Polygon))
	var red int
	for y := int(wy) - 8; y <= int(wy)+8; y++ {
		for x := int(wx) - 12; x <= int(wx)+12; x++ {
			if c := at(layer, x, y); c == (color.NRGBA{R: 255, A: 255}) {
				red++
			}
		}
	}
	assert.Positive(t, red, "\"!!!\" drawn in red at the centroid")
}

func TestAnimation_Latest(t *testing.T) {
	_, ok := frames.Animation{}.Latest()
	assert.False(t, ok)

	t1 := time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC)
	t2 := t1.Add(6 * time.Minute)
	anim := frames.Animation{Frames: []render.Frame{{UTC: t1}, {UTC: t2}}}
	latest, ok := anim.Latest()
	require.True(t, ok)
	assert.Equal(t, t2, latest.UTC)
}
