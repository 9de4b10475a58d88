package main

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // zone lookups must not depend on the host

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-radar/internal/adapter/display"
	"github.com/couchcryptid/storm-radar/internal/adapter/geoserver"
	httpadapter "github.com/couchcryptid/storm-radar/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-radar/internal/adapter/kafka"
	"github.com/couchcryptid/storm-radar/internal/adapter/nws"
	"github.com/couchcryptid/storm-radar/internal/adapter/tiles"
	"github.com/couchcryptid/storm-radar/internal/config"
	"github.com/couchcryptid/storm-radar/internal/cycle"
	"github.com/couchcryptid/storm-radar/internal/domain"
	"github.com/couchcryptid/storm-radar/internal/frames"
	"github.com/couchcryptid/storm-radar/internal/observability"
	"github.com/couchcryptid/storm-radar/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	size := image.Pt(cfg.CanvasWidth, cfg.CanvasHeight)
	clock := clockwork.NewRealClock()

	fonts, err := render.LoadFonts(cfg.FontPath)
	if err != nil {
		logger.Warn("font load failed, using built-in font", "path", cfg.FontPath, "error", err)
		fonts = render.DefaultFonts()
	}

	var overlay image.Image = render.Vignette(size)
	if cfg.OverlayPath != "" {
		loaded, err := render.LoadOverlay(cfg.OverlayPath, size)
		if err != nil {
			logger.Warn("overlay load failed, using vignette", "path", cfg.OverlayPath, "error", err)
		} else {
			overlay = loaded
		}
	}

	nwsClient := nws.NewClient(cfg.NWSAPIURL, cfg.UserAgent, cfg.HTTPTimeout, metrics, logger)
	locator := nws.NewCachedLocator(nwsClient, cfg.PointCacheSize, metrics)
	geo := geoserver.NewClient(cfg.GeoServerURL, cfg.UserAgent, cfg.HTTPTimeout, metrics, logger)
	basemap := tiles.NewSource(cfg.BasemapURL, cfg.BasemapLabelsURL, cfg.UserAgent, cfg.HTTPTimeout, metrics, logger)

	latest := display.NewLatest(clock)
	sinks := []cycle.Sink{latest}
	if cfg.OutputDir != "" {
		fileSink, err := display.NewFileSink(cfg.OutputDir, logger)
		if err != nil {
			logger.Error("failed to create file sink", "dir", cfg.OutputDir, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, fileSink)
		logger.Info("file sink enabled", "dir", cfg.OutputDir)
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaFrameTopic, logger)
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaFrameTopic)
	}

	builder := frames.NewBuilder(geo, frames.Options{
		RadarOpacity:  cfg.RadarOpacity,
		HazardOpacity: cfg.HazardOpacity,
		Fonts:         fonts,
	}, clock, logger, metrics)

	runner := cycle.NewRunner(cycle.Sources{
		Locator: locator,
		Times:   geo,
		Alerts:  geo,
		Basemap: basemap,
	}, builder, sinks, cycle.Options{
		Base: domain.Session{
			Point:    domain.GeoPoint{Lon: cfg.Lon, Lat: cfg.Lat},
			Station:  cfg.Station,
			TimeZone: cfg.TimeZone,
		},
		Layer:      cfg.Layer,
		Zoom:       cfg.Zoom,
		Size:       size,
		Frames:     cfg.Frames,
		AlertKinds: cfg.AlertKinds,
		Fonts:      fonts,
		Overlay:    overlay,
	}, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, latest, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start polling loop.
	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error("runner error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
