package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/fogleman/gg"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-radar/internal/adapter/geoserver"
	"github.com/couchcryptid/storm-radar/internal/domain"
	"github.com/couchcryptid/storm-radar/internal/frames"
	"github.com/couchcryptid/storm-radar/internal/observability"
	"github.com/couchcryptid/storm-radar/internal/render"
)

// fileRaster serves one decoded radar image for any timestamp.
type fileRaster struct {
	img image.Image
}

func (f fileRaster) RasterAt(context.Context, string, string, time.Time, domain.BoundingBox, image.Point) (image.Image, error) {
	return f.img, nil
}

type renderFlags struct {
	view      viewFlags
	radar     string
	basemap   string
	hazards   string
	warnings  string
	local     []string
	frameTime string
	zone      string
	opacity   uint8
	fontPath  string
	output    string
	border    bool
	verbose   bool
}

func newRenderCmd() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Composite one radar frame from local files",
		Long: `Composite one radar frame from a radar PNG, an optional basemap PNG and
optional GeoJSON hazard and warning collections as served by the GeoServer
WFS endpoint. Every image must match the canvas size.`,
		Example: `  radarctl render --lat 40.52 --lon -74.41 --radar kdix.png \
    --hazards hazards.json --warnings warnings.json -o frame.png`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, f)
		},
	}

	f.view.register(cmd)
	cmd.Flags().StringVar(&f.radar, "radar", "", "Radar PNG (white is transparent)")
	cmd.Flags().StringVar(&f.basemap, "basemap", "", "Basemap PNG")
	cmd.Flags().StringVar(&f.hazards, "hazards", "", "Hazards GeoJSON file")
	cmd.Flags().StringVar(&f.warnings, "warnings", "", "Warnings GeoJSON file")
	cmd.Flags().StringSliceVar(&f.local, "local", nil, "Alert kinds active at the center, drawn as badges")
	cmd.Flags().StringVar(&f.frameTime, "time", "", "Frame time, RFC 3339 (default now)")
	cmd.Flags().StringVar(&f.zone, "zone", "UTC", "IANA time zone of the caption")
	cmd.Flags().Uint8Var(&f.opacity, "opacity", 155, "Radar opacity")
	cmd.Flags().StringVar(&f.fontPath, "font", "", "TrueType font file")
	cmd.Flags().StringVarP(&f.output, "output", "o", "frame.png", "Output PNG file path")
	cmd.Flags().BoolVar(&f.border, "border", true, "Draw the round frame overlay")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log skipped frames")
	_ = cmd.MarkFlagRequired("radar")
	return cmd
}

func runRender(cmd *cobra.Command, f renderFlags) error {
	view, err := f.view.view()
	if err != nil {
		return err
	}
	size := view.Size()

	radar, err := loadImage(f.radar, size)
	if err != nil {
		return err
	}
	fonts, err := render.LoadFonts(f.fontPath)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	at := clock.Now().UTC().Truncate(time.Second)
	if f.frameTime != "" {
		if at, err = time.Parse(time.RFC3339, f.frameTime); err != nil {
			return fmt.Errorf("parse --time: %w", err)
		}
	}

	batch := frames.Batch{
		Session:    domain.Session{Point: view.Center(), Station: "file", TimeZone: f.zone},
		Layer:      "file",
		View:       view,
		Times:      []time.Time{at},
		LocalKinds: domain.UniqueLabels(f.local),
	}
	if f.basemap != "" {
		if batch.Basemap, err = loadImage(f.basemap, size); err != nil {
			return err
		}
	}
	if f.border {
		batch.Overlay = render.Vignette(size)
	}
	if batch.Hazards, err = readAlerts(f.hazards, geoserver.ParseHazards); err != nil {
		return err
	}
	if batch.Warnings, err = readAlerts(f.warnings, geoserver.ParseWarnings); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if f.verbose {
		logger = sharedobs.NewLogger("debug", "text")
	}
	builder := frames.NewBuilder(fileRaster{img: radar}, frames.Options{
		RadarOpacity:  f.opacity,
		HazardOpacity: 200,
		Fonts:         fonts,
	}, clock, logger, observability.NewMetricsForTesting())

	built := builder.BuildFrames(cmd.Context(), batch)
	if len(built) == 0 {
		return errors.New("radar image is blank, no frame rendered")
	}
	if err := gg.SavePNG(f.output, built[0].Image); err != nil {
		return fmt.Errorf("write %s: %w", f.output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d hazards, %d warnings)\n", f.output, len(batch.Hazards), len(batch.Warnings))
	return nil
}

func loadImage(path string, size image.Point) (image.Image, error) {
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if got := img.Bounds().Size(); got != size {
		return nil, fmt.Errorf("load %s: size %v, want %v", path, got, size)
	}
	return img, nil
}

func readAlerts[T any](path string, parse func([]byte) ([]T, error)) ([]T, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	alerts, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return alerts, nil
}
