// Package frames turns a batch of radar timestamps into composited animation
// frames.
package frames

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/fogleman/gg"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-radar/internal/domain"
	"github.com/couchcryptid/storm-radar/internal/observability"
	"github.com/couchcryptid/storm-radar/internal/render"
)

// Fill opacities of the warnings layer.
const (
	warningOpacity = 255
	watchOpacity   = 170
)

// Skip reasons reported in the frames_skipped_total metric.
const (
	skipPlaceholder = "placeholder"
	skipFetchError  = "fetch_error"
	skipBlank       = "blank"
	skipBadSize     = "bad_size"
)

// Batch is everything shared by the frames of one animation. View is the
// single projection used by every layer.
type Batch struct {
	Session domain.Session
	Layer   string
	View    domain.MapView
	Times   []time.Time

	// Basemap, Labels and Overlay are optional full-canvas images.
	Basemap image.Image
	Labels  image.Image
	Overlay image.Image

	// Hazards and Warnings are drawn as polygons over the whole view.
	Hazards  []domain.Hazard
	Warnings []domain.Warning

	// LocalKinds are the alert kinds active at the marker.
	LocalKinds []string
}

// FrameSpec is the input of one frame. It is built fresh per timestamp.
type FrameSpec struct {
	UTC      time.Time
	Local    time.Time
	Radar    image.Image
	Hazards  []domain.Hazard
	Warnings []domain.Warning
}

// Options are the fixed rendering settings of a Builder.
type Options struct {
	RadarOpacity  uint8
	HazardOpacity uint8
	Fonts         render.Fonts
}

// Builder fetches one radar raster per timestamp and composites the frames.
type Builder struct {
	radar   domain.RasterSource
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewBuilder creates a Builder. A nil clock uses the real clock.
func NewBuilder(radar domain.RasterSource, opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{
		radar:   radar,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// BuildFrames renders one frame per timestamp in batch.Times, oldest first.
// Placeholder (zero) times, failed fetches, wrongly sized rasters and blank
// rasters are skipped, so the result may be shorter than batch.Times or
// empty. Cancellation is checked before each timestamp; frames finished so
// far are returned.
func (b *Builder) BuildFrames(ctx context.Context, batch Batch) []render.Frame {
	start := b.clock.Now()
	frames := make([]render.Frame, 0, len(batch.Times))
	size := batch.View.Size()

	for _, ts := range batch.Times {
		if ctx.Err() != nil {
			b.logger.Info("frame build cancelled", "built", len(frames), "reason", ctx.Err())
			break
		}
		if ts.IsZero() {
			b.metrics.FramesSkipped.WithLabelValues(skipPlaceholder).Inc()
			continue
		}

		raster, err := b.radar.RasterAt(ctx, batch.Session.Station, batch.Layer, ts, batch.View.Extent(), size)
		if err != nil {
			b.logger.Warn("radar fetch failed, skipping frame",
				"station", batch.Session.Station,
				"frame_time", ts,
				"error", err,
			)
			b.metrics.FramesSkipped.WithLabelValues(skipFetchError).Inc()
			continue
		}
		if got := raster.Bounds().Size(); got != size {
			b.logger.Warn("radar raster has wrong size, skipping frame",
				"frame_time", ts,
				"size", got,
				"want", size,
			)
			b.metrics.FramesSkipped.WithLabelValues(skipBadSize).Inc()
			continue
		}
		if render.IsBlank(raster) {
			b.logger.Debug("blank radar frame, skipping", "frame_time", ts)
			b.metrics.FramesSkipped.WithLabelValues(skipBlank).Inc()
			continue
		}

		spec := FrameSpec{
			UTC:      ts,
			Local:    b.localize(ts, batch.Session.TimeZone),
			Radar:    raster,
			Hazards:  batch.Hazards,
			Warnings: batch.Warnings,
		}
		frames = append(frames, render.Frame{
			UTC:   spec.UTC,
			Local: spec.Local,
			Image: render.Compose(size, b.BuildLayers(spec, batch)),
		})
		b.metrics.FramesRendered.Inc()
	}

	b.metrics.FrameBuildDuration.Observe(b.clock.Since(start).Seconds())
	return frames
}

// BuildLayers draws every layer of one frame. Empty hazard or warning lists
// and missing external images leave their slot absent.
func (b *Builder) BuildLayers(spec FrameSpec, batch Batch) render.LayerSet {
	view := batch.View
	size := view.Size()
	layers := render.LayerSet{}

	if batch.Basemap != nil {
		layers[render.LayerBasemap] = batch.Basemap
	}
	if len(spec.Hazards) > 0 {
		layers[render.LayerHazards] = b.hazardLayer(view, spec.Hazards)
	}
	if spec.Radar != nil {
		layers[render.LayerRadar] = render.PrepareRadar(spec.Radar, b.opts.RadarOpacity)
	}
	if len(spec.Warnings) > 0 {
		layers[render.LayerWarnings] = b.warningLayer(view, spec.Warnings)
	}
	if batch.Labels != nil {
		layers[render.LayerLabels] = batch.Labels
	}

	marker := render.NewLayer(size)
	cx, cy := view.CenterPixel()
	render.DrawMarker(marker, gg.Point{X: cx, Y: cy})
	layers[render.LayerMarker] = marker

	annotations := render.NewLayer(size)
	render.DrawAnnotations(annotations, render.Annotation{
		TimeLabel:  domain.TimeLabel(spec.Local, b.clock.Now()),
		LocalKinds: batch.LocalKinds,
	}, b.opts.Fonts)
	layers[render.LayerAnnotations] = annotations

	if batch.Overlay != nil {
		layers[render.LayerOverlay] = batch.Overlay
	}
	return layers
}

func (b *Builder) hazardLayer(view domain.MapView, hazards []domain.Hazard) *image.RGBA {
	layer := render.NewLayer(view.Size())
	for _, h := range hazards {
		style := domain.Classify(h.Kind)
		style = style.WithFillAlpha(min(style.Fill.A, b.opts.HazardOpacity))
		render.DrawPolygon(layer, view.PixelPolygon(h.Polygon), style)
	}
	return layer
}

func (b *Builder) warningLayer(view domain.MapView, warnings []domain.Warning) *image.RGBA {
	layer := render.NewLayer(view.Size())
	for _, w := range warnings {
		style := domain.Classify(w.Kind)
		opacity := uint8(watchOpacity)
		if style.Tier == domain.TierWarning {
			opacity = warningOpacity
		}
		style = style.WithFillAlpha(min(style.Fill.A, opacity))

		pts := view.PixelPolygon(w.Polygon)
		render.DrawPolygon(layer, pts, style)
		render.DrawCentroidLabel(layer, pts, style.Label, style, b.opts.Fonts.Medium)
	}
	return layer
}

// localize converts ts to the session zone, falling back to UTC when the
// zone cannot be loaded.
func (b *Builder) localize(ts time.Time, zone string) time.Time {
	if zone == "" {
		return ts.UTC()
	}
	local, err := domain.Localize(ts, zone)
	if err != nil {
		b.logger.Warn("unknown time zone, using UTC", "zone", zone, "error", err)
		return ts.UTC()
	}
	return local
}

// Animation kinds.
const (
	KindRadar  = "radar"
	KindStatus = "status"
)

// Animation is what one cycle hands to the display sinks: radar frames in
// animation order, or a single status frame.
type Animation struct {
	Station string
	Kind    string
	Frames  []render.Frame
}

// Latest returns the newest frame, or false when there is none.
func (a Animation) Latest() (render.Frame, bool) {
	if len(a.Frames) == 0 {
		return render.Frame{}, false
	}
	return a.Frames[len(a.Frames)-1], true
}
