package cycle

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
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

type fakeLocator struct {
	point      domain.PointInfo
	pointErr   error
	station    domain.StationInfo
	stationErr error

	mu       sync.Mutex
	stations []string
}

func (f *fakeLocator) Point(context.Context, float64, float64) (domain.PointInfo, error) {
	return f.point, f.pointErr
}

func (f *fakeLocator) Station(_ context.Context, id string) (domain.StationInfo, error) {
	f.mu.Lock()
	f.stations = append(f.stations, id)
	f.mu.Unlock()
	return f.station, f.stationErr
}

type fakeTimes struct {
	times []time.Time
	err   error
	calls int
}

func (f *fakeTimes) FrameTimes(context.Context, string, string) ([]time.Time, error) {
	f.calls++
	return f.times, f.err
}

type alertCall struct {
	kinds []string
	area  domain.BoundingBox
}

type fakeAlerts struct {
	local domain.ActiveAlerts
	area  domain.ActiveAlerts
	calls []alertCall
}

func (f *fakeAlerts) Active(_ context.Context, kinds []string, area domain.BoundingBox) domain.ActiveAlerts {
	f.calls = append(f.calls, alertCall{kinds: kinds, area: area})
	if area.IsPoint() {
		return f.local
	}
	return f.area
}

type fakeBasemap struct {
	err error
}

func (f *fakeBasemap) Render(_ context.Context, view domain.MapView) (image.Image, image.Image, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return solid(view.Size(), basemapGray), nil, nil
}

// stormRadar is white except for a green cell around the center.
type stormRadar struct{}

func (stormRadar) RasterAt(_ context.Context, _, _ string, _ time.Time, _ domain.BoundingBox, size image.Point) (image.Image, error) {
	img := solid(size, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	for y := size.Y/2 - 20; y < size.Y/2+20; y++ {
		for x := size.X/2 - 20; x < size.X/2+20; x++ {
			img.Set(x, y, color.NRGBA{G: 200, A: 255})
		}
	}
	return img, nil
}

type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	shown  []frames.Animation
	notify chan struct{}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Show(_ context.Context, anim frames.Animation) error {
	s.mu.Lock()
	s.shown = append(s.shown, anim)
	s.mu.Unlock()
	if s.notify != nil {
		s.notify <- struct{}{}
	}
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shown)
}

// --- helpers ---

var (
	now         = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	point       = domain.GeoPoint{Lon: -74.41, Lat: 40.52}
	basemapGray = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	testSize    = image.Pt(320, 240)
)

type harness struct {
	locator *fakeLocator
	times   *fakeTimes
	alerts  *fakeAlerts
	basemap *fakeBasemap
	sink    *recordingSink
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
}

func newHarness() *harness {
	return &harness{
		locator: &fakeLocator{
			point:   domain.PointInfo{RadarStation: "KDIX", TimeZone: "America/New_York", City: "Edison", State: "NJ"},
			station: domain.StationInfo{ID: "KDIX", Mode: "R212", LastReceived: now.Add(-3 * time.Minute)},
		},
		times: &fakeTimes{times: []time.Time{
			now.Add(-18 * time.Minute),
			now.Add(-12 * time.Minute),
			now.Add(-6 * time.Minute),
		}},
		alerts:  &fakeAlerts{},
		basemap: &fakeBasemap{},
		sink:    &recordingSink{name: "recording"},
		clock:   clockwork.NewFakeClockAt(now),
		metrics: observability.NewMetricsForTesting(),
	}
}

func (h *harness) runner(sinks ...Sink) *Runner {
	if len(sinks) == 0 {
		sinks = []Sink{h.sink}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fonts := render.DefaultFonts()
	builder := frames.NewBuilder(stormRadar{}, frames.Options{RadarOpacity: 155, HazardOpacity: 200, Fonts: fonts}, h.clock, logger, h.metrics)

	return NewRunner(Sources{
		Locator: h.locator,
		Times:   h.times,
		Alerts:  h.alerts,
		Basemap: h.basemap,
	}, builder, sinks, Options{
		Base:       domain.Session{Point: point, Station: "kokx", TimeZone: "America/New_York"},
		Layer:      "bohp",
		Zoom:       7,
		Size:       testSize,
		AlertKinds: []string{"Storm", "Winter"},
		Fonts:      fonts,
	}, h.clock, logger, h.metrics)
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func whiteCount(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if nrgbaAt(img, x, y) == (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
				n++
			}
		}
	}
	return n
}

var tornadoWarning = domain.Warning{
	Kind: "Tornado Warning",
	Polygon: domain.Polygon{Points: []domain.GeoPoint{
		{Lon: -74.6, Lat: 40.7}, {Lon: -74.2, Lat: 40.7}, {Lon: -74.2, Lat: 40.3},
	}},
}

// --- tests ---

func TestRunOnce_Animated(t *testing.T) {
	h := newHarness()
	h.alerts.area = domain.ActiveAlerts{Warnings: []domain.Warning{tornadoWarning}}
	h.alerts.local = domain.ActiveAlerts{Warnings: []domain.Warning{tornadoWarning, tornadoWarning}}
	r := h.runner()

	require.Error(t, r.CheckReadiness(context.Background()))
	res := r.RunOnce(context.Background())

	assert.Equal(t, OutcomeAnimated, res.Outcome)
	assert.Equal(t, IntervalWarnings, res.Next)
	assert.Equal(t, "kdix", res.Session.Station, "station from point lookup")
	assert.Equal(t, frames.KindRadar, res.Animation.Kind)
	assert.Len(t, res.Animation.Frames, 3, "fewer times than the mode's frame count")
	assert.True(t, res.Animation.Frames[0].UTC.Before(res.Animation.Frames[2].UTC))

	require.Equal(t, 1, h.sink.count())
	assert.Equal(t, []string{"kdix"}, h.locator.stations)
	require.NoError(t, r.CheckReadiness(context.Background()))

	require.Len(t, h.alerts.calls, 2)
	assert.Equal(t, domain.PointBox(res.Session.Point), h.alerts.calls[0].area)
	assert.Nil(t, h.alerts.calls[0].kinds)
	view := domain.NewMapView(point, 7, 320, 240)
	assert.Equal(t, view.Extent(), h.alerts.calls[1].area, "greater area uses the batch view")
	assert.Equal(t, []string{"Storm", "Winter"}, h.alerts.calls[1].kinds)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Cycles.WithLabelValues(OutcomeAnimated)))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.ActiveAlerts.WithLabelValues("local", "warning")))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.StationLatency))
}

func TestRunOnce_CalmInterval(t *testing.T) {
	h := newHarness()
	res := h.runner().RunOnce(context.Background())

	assert.Equal(t, OutcomeAnimated, res.Outcome)
	assert.Equal(t, IntervalCalm, res.Next)
}

func TestRunOnce_FrameCountFollowsMode(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		override int
		want     int
	}{
		{"clear air", "R35", 0, 5},
		{"precipitation", "R212", 0, 10},
		{"override", "R35", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.locator.station.Mode = tt.mode
			h.times.times = nil
			for i := 12; i > 0; i-- {
				h.times.times = append(h.times.times, now.Add(-time.Duration(i)*6*time.Minute))
			}
			r := h.runner()
			r.opts.Frames = tt.override

			res := r.RunOnce(context.Background())
			assert.Len(t, res.Animation.Frames, tt.want)
		})
	}
}

func TestRunOnce_StationDown(t *testing.T) {
	h := newHarness()
	h.locator.station.LastReceived = now.Add(-72*time.Minute - 30*time.Second)
	r := h.runner()

	res := r.RunOnce(context.Background())

	assert.Equal(t, OutcomeStationDown, res.Outcome)
	assert.Equal(t, IntervalStationDown, res.Next)
	assert.Equal(t, 0, h.times.calls, "no radar work for a down station")
	require.Len(t, res.Animation.Frames, 1)
	assert.Equal(t, frames.KindStatus, res.Animation.Kind)

	img := res.Animation.Frames[0].Image
	assert.Equal(t, stationDownBackground, nrgbaAt(img, 300, 20))
	assert.Positive(t, whiteCount(img, image.Rect(20, 100, 200, 135)), "message text")
	assert.Equal(t, 72.5, testutil.ToFloat64(h.metrics.StationLatency))
}

func TestRunOnce_StationLookupFailureAssumesUp(t *testing.T) {
	h := newHarness()
	h.locator.stationErr = domain.ErrSourceUnavailable

	res := h.runner().RunOnce(context.Background())

	assert.Equal(t, OutcomeAnimated, res.Outcome)
	assert.Len(t, res.Animation.Frames, 3)
}

func TestRunOnce_PointFailureUsesFallbackStation(t *testing.T) {
	h := newHarness()
	h.locator.pointErr = errors.New("503")

	res := h.runner().RunOnce(context.Background())

	assert.Equal(t, "kokx", res.Session.Station)
	assert.Equal(t, []string{"kokx"}, h.locator.stations)
}

func TestRunOnce_CapabilitiesUnavailableShowsRefreshing(t *testing.T) {
	h := newHarness()
	h.times.err = domain.ErrSourceUnavailable
	r := h.runner()

	res := r.RunOnce(context.Background())

	assert.Equal(t, OutcomeRefreshing, res.Outcome)
	assert.Equal(t, retryInitial, res.Next)
	require.Len(t, res.Animation.Frames, 1)
	assert.Equal(t, frames.KindStatus, res.Animation.Kind)

	img := res.Animation.Frames[0].Image
	assert.Equal(t, basemapGray, nrgbaAt(img, 5, 5), "status drawn over the basemap")
	assert.Positive(t, whiteCount(img, image.Rect(25, 140, 100, 160)), "message glyphs")
	assert.Equal(t, 10.0, testutil.ToFloat64(h.metrics.FramesSkipped.WithLabelValues("placeholder")), "one placeholder per precipitation-mode frame")

	assert.Equal(t, 2*retryInitial, r.RunOnce(context.Background()).Next, "retry backs off")

	h.times.err = nil
	assert.Equal(t, IntervalCalm, r.RunOnce(context.Background()).Next)
	h.times.err = domain.ErrSourceUnavailable
	assert.Equal(t, retryInitial, r.RunOnce(context.Background()).Next, "success resets the retry")
}

func TestRunOnce_BasemapFailureUsesPlainCanvas(t *testing.T) {
	h := newHarness()
	h.basemap.err = domain.ErrSourceUnavailable

	res := h.runner().RunOnce(context.Background())

	require.Equal(t, OutcomeAnimated, res.Outcome)
	img := res.Animation.Frames[0].Image
	assert.Equal(t, plainBasemap, nrgbaAt(img, 2, 2))
	assert.NotEqual(t, plainBasemap, nrgbaAt(img, 145, 135), "radar cell drawn")
}

func TestRunOnce_SinkFailureDoesNotStopOthers(t *testing.T) {
	h := newHarness()
	failing := &recordingSink{name: "broken", err: errors.New("disk full")}
	r := h.runner(failing, h.sink)

	r.RunOnce(context.Background())

	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, h.sink.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SinkErrors.WithLabelValues("broken")))
	require.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRun_SleepsBetweenCycles(t *testing.T) {
	h := newHarness()
	h.sink.notify = make(chan struct{}, 4)
	r := h.runner()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	<-h.sink.notify
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, h.sink.count(), "no second cycle before the interval")

	h.clock.Advance(IntervalCalm)
	<-h.sink.notify
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))

	cancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, 2, h.sink.count())
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.RunnerRunning))
}

func TestRunOnce_RefreshingRetryCapsAtCalmInterval(t *testing.T) {
	h := newHarness()
	h.times.err = domain.ErrSourceUnavailable
	r := h.runner()

	var got []time.Duration
	for range 7 {
		got = append(got, r.RunOnce(context.Background()).Next)
	}

	want := []time.Duration{
		30 * time.Second, time.Minute, 2 * time.Minute, 4 * time.Minute,
		8 * time.Minute, IntervalCalm, IntervalCalm,
	}
	assert.Equal(t, want, got)
}

func TestSleepWithContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, sleepWithContext(ctx, clockwork.NewFakeClock(), time.Hour))
	assert.False(t, sleepWithContext(ctx, clockwork.NewFakeClock(), 0))
}
