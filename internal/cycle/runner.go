// Package cycle runs the polling loop: one synchronous cycle resolves the
// station, gathers alerts, builds the animation and hands it to the display
// sinks, then sleeps until the next refresh.
package cycle

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-radar/internal/domain"
	"github.com/couchcryptid/storm-radar/internal/frames"
	"github.com/couchcryptid/storm-radar/internal/observability"
	"github.com/couchcryptid/storm-radar/internal/render"
)

// Refresh intervals.
const (
	IntervalWarnings    = 5 * time.Minute
	IntervalCalm        = 10 * time.Minute
	IntervalStationDown = 15 * time.Minute
)

// Retry delays after a cycle that produced no radar frames.
const (
	retryInitial = 30 * time.Second
	retryMax     = IntervalCalm
)

// Cycle outcomes reported in the cycles_total metric.
const (
	OutcomeAnimated    = "animated"
	OutcomeRefreshing  = "refreshing"
	OutcomeStationDown = "station_down"
)

// RefreshingMessage is shown when no radar frame could be built.
const RefreshingMessage = "Refreshing"

var (
	stationDownBackground = color.NRGBA{R: 150, G: 100, B: 100, A: 255}
	plainBasemap          = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	stationDownPosition   = image.Pt(10, 100)
)

// Sink displays an animation. Sinks are fire-and-forget: a failing sink is
// logged and never stops the cycle.
type Sink interface {
	Name() string
	Show(ctx context.Context, anim frames.Animation) error
}

// Sources are the collaborators a cycle reads from. Locator may be nil, in
// which case the configured station is used and assumed up.
type Sources struct {
	Locator domain.StationLocator
	Times   domain.TimeSource
	Alerts  domain.AlertSource
	Basemap domain.BasemapSource
}

// Options are the fixed settings of a Runner.
type Options struct {
	// Base holds the point plus the fallback station and zone.
	Base       domain.Session
	Layer      string
	Zoom       int
	Size       image.Point
	Frames     int // positive overrides the scan-mode frame count
	AlertKinds []string
	Fonts      render.Fonts
	Overlay    image.Image
}

// Result describes one completed cycle.
type Result struct {
	Session   domain.Session
	Animation frames.Animation
	Outcome   string
	Next      time.Duration
}

// Runner executes polling cycles one at a time.
type Runner struct {
	src     Sources
	builder *frames.Builder
	sinks   []Sink
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool

	retry time.Duration
}

// NewRunner creates a Runner. A nil clock uses the real clock.
func NewRunner(src Sources, builder *frames.Builder, sinks []Sink, opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		src:     src,
		builder: builder,
		sinks:   sinks,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		retry:   retryInitial,
	}
}

// CheckReadiness returns nil once the first cycle has been delivered.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no cycle delivered yet")
	}
	return nil
}

// Run executes cycles until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner started",
		"lat", r.opts.Base.Point.Lat,
		"lon", r.opts.Base.Point.Lon,
		"layer", r.opts.Layer,
		"zoom", r.opts.Zoom,
	)
	r.metrics.RunnerRunning.Set(1)
	defer r.metrics.RunnerRunning.Set(0)

	for {
		if ctx.Err() != nil {
			r.logger.Info("runner stopping", "reason", ctx.Err())
			return nil
		}

		res := r.RunOnce(ctx)
		r.logger.Info("cycle complete",
			"station", res.Session.Station,
			"outcome", res.Outcome,
			"frames", len(res.Animation.Frames),
			"next", res.Next,
		)

		if !sleepWithContext(ctx, r.clock, res.Next) {
			r.logger.Info("runner stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce executes a single cycle and delivers its animation.
func (r *Runner) RunOnce(ctx context.Context) Result {
	start := r.clock.Now()
	res := r.cycle(ctx)

	r.deliver(ctx, res.Animation)
	r.ready.Store(true)

	r.metrics.Cycles.WithLabelValues(res.Outcome).Inc()
	r.metrics.CycleDuration.Observe(r.clock.Since(start).Seconds())
	return res
}

func (r *Runner) cycle(ctx context.Context) Result {
	session := domain.ResolveSession(ctx, r.opts.Base, r.src.Locator, r.logger)
	view := domain.NewMapView(session.Point, r.opts.Zoom, r.opts.Size.X, r.opts.Size.Y)

	local := r.src.Alerts.Active(ctx, nil, domain.PointBox(session.Point))
	area := r.src.Alerts.Active(ctx, r.opts.AlertKinds, view.Extent())
	r.recordAlerts(local, area)

	mode, status, latency := r.stationState(ctx, session.Station)
	if status != domain.StationUp {
		r.logger.Warn("radar station unavailable",
			"station", session.Station,
			"status", status,
			"latency_minutes", latency,
		)
		return Result{
			Session:   session,
			Animation: r.stationDownAnimation(session, status, latency),
			Outcome:   OutcomeStationDown,
			Next:      IntervalStationDown,
		}
	}

	n := domain.FrameCountForMode(mode, r.opts.Frames)
	times, err := r.src.Times.FrameTimes(ctx, session.Station, r.opts.Layer)
	if err != nil {
		r.logger.Warn("frame times unavailable, using placeholders",
			"station", session.Station,
			"layer", r.opts.Layer,
			"error", err,
		)
		times = domain.PlaceholderFrameTimes(n)
	} else {
		times = domain.SelectFrameTimes(times, n)
	}

	base, labels := r.basemap(ctx, view)
	batch := frames.Batch{
		Session:    session,
		Layer:      r.opts.Layer,
		View:       view,
		Times:      times,
		Basemap:    base,
		Labels:     labels,
		Overlay:    r.opts.Overlay,
		Hazards:    area.Hazards,
		Warnings:   area.Warnings,
		LocalKinds: domain.UniqueLabels(local.Kinds()),
	}

	built := r.builder.BuildFrames(ctx, batch)
	if len(built) == 0 {
		next := r.retry
		r.retry = retry.NextBackoff(r.retry, retryMax)
		return Result{
			Session:   session,
			Animation: r.refreshingAnimation(session, base),
			Outcome:   OutcomeRefreshing,
			Next:      next,
		}
	}

	r.retry = retryInitial
	next := IntervalCalm
	if len(area.Warnings) > 0 {
		next = IntervalWarnings
	}
	return Result{
		Session:   session,
		Animation: frames.Animation{Station: session.Station, Kind: frames.KindRadar, Frames: built},
		Outcome:   OutcomeAnimated,
		Next:      next,
	}
}

// stationState reports the station's scan mode and health. A failed lookup,
// or a station that never reported, is treated as up with an unknown mode so
// the radar fetch decides.
func (r *Runner) stationState(ctx context.Context, station string) (string, domain.StationStatus, float64) {
	if r.src.Locator == nil {
		return "", domain.StationUp, 0
	}
	info, err := r.src.Locator.Station(ctx, station)
	if err != nil {
		r.logger.Warn("station lookup failed", "station", station, "error", err)
		return "", domain.StationUp, 0
	}
	if info.LastReceived.IsZero() {
		return info.Mode, domain.StationUp, 0
	}

	status, latency := domain.StationHealth(info.LastReceived, r.clock.Now())
	r.metrics.StationLatency.Set(latency)
	return info.Mode, status, latency
}

func (r *Runner) basemap(ctx context.Context, view domain.MapView) (base, labels image.Image) {
	if r.src.Basemap == nil {
		return solid(view.Size(), plainBasemap), nil
	}
	base, labels, err := r.src.Basemap.Render(ctx, view)
	if err != nil {
		r.logger.Warn("basemap unavailable, using plain canvas", "error", err)
		return solid(view.Size(), plainBasemap), nil
	}
	return base, labels
}

func (r *Runner) stationDownAnimation(session domain.Session, status domain.StationStatus, latency float64) frames.Animation {
	now := r.localNow(session.TimeZone)
	message := domain.StationDownMessage(now, session.Station, status, latency)
	pos := stationDownPosition
	img := render.RenderStatus(message, solid(r.opts.Size, stationDownBackground), render.StatusStyle{
		Size:     r.opts.Size,
		Face:     r.opts.Fonts.Medium,
		Position: &pos,
		TextOnly: true,
		Border:   true,
		Overlay:  r.opts.Overlay,
	})
	return statusAnimation(session, now, img)
}

func (r *Runner) refreshingAnimation(session domain.Session, background image.Image) frames.Animation {
	now := r.localNow(session.TimeZone)
	img := render.RenderStatus(RefreshingMessage, background, render.StatusStyle{
		Size:    r.opts.Size,
		Face:    r.opts.Fonts.Bold,
		Border:  true,
		Overlay: r.opts.Overlay,
	})
	return statusAnimation(session, now, img)
}

func statusAnimation(session domain.Session, now time.Time, img *image.RGBA) frames.Animation {
	return frames.Animation{
		Station: session.Station,
		Kind:    frames.KindStatus,
		Frames:  []render.Frame{{UTC: now.UTC(), Local: now, Image: img}},
	}
}

func (r *Runner) localNow(zone string) time.Time {
	now := r.clock.Now()
	local, err := domain.Localize(now, zone)
	if err != nil {
		return now.UTC()
	}
	return local
}

func (r *Runner) deliver(ctx context.Context, anim frames.Animation) {
	for _, s := range r.sinks {
		if err := s.Show(ctx, anim); err != nil {
			r.logger.Warn("display sink failed", "sink", s.Name(), "error", err)
			r.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
		}
	}
}

func (r *Runner) recordAlerts(local, area domain.ActiveAlerts) {
	r.metrics.ActiveAlerts.WithLabelValues("local", "hazard").Set(float64(len(local.Hazards)))
	r.metrics.ActiveAlerts.WithLabelValues("local", "warning").Set(float64(len(local.Warnings)))
	r.metrics.ActiveAlerts.WithLabelValues("area", "hazard").Set(float64(len(area.Hazards)))
	r.metrics.ActiveAlerts.WithLabelValues("area", "warning").Set(float64(len(area.Warnings)))
}

func solid(size image.Point, c color.NRGBA) *image.RGBA {
	img := render.NewLayer(size)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// sleepWithContext is retry.SleepWithContext driven by the runner's clock.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
