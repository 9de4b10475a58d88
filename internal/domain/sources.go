package domain

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrSourceUnavailable marks a collaborator that could not deliver. Callers
// treat it as a soft failure: the affected frame or overlay is skipped.
var ErrSourceUnavailable = errors.New("source unavailable")

// TimeSource lists the timestamps for which a data layer has a snapshot.
type TimeSource interface {
	FrameTimes(ctx context.Context, station, layer string) ([]time.Time, error)
}

// RasterSource fetches one radar raster for a timestamp and extent.
type RasterSource interface {
	RasterAt(ctx context.Context, station, layer string, at time.Time, bbox BoundingBox, size image.Point) (image.Image, error)
}

// AlertSource returns the active hazards and warnings in an area, optionally
// restricted to kinds containing one of the given substrings.
type AlertSource interface {
	Active(ctx context.Context, kinds []string, area BoundingBox) ActiveAlerts
}

// BasemapSource renders the background map and its place-name labels for a view.
type BasemapSource interface {
	Render(ctx context.Context, view MapView) (base, labels image.Image, err error)
}

// PointInfo describes the NWS metadata for a coordinate.
type PointInfo struct {
	RadarStation string
	City         string
	State        string
	TimeZone     string
}

// StationInfo describes a radar site's current operating state.
type StationInfo struct {
	ID           string
	Name         string
	Mode         string // volume coverage pattern, e.g. "R35"
	LastReceived time.Time
}

// StationLocator resolves coordinates to NWS point metadata and reports
// radar station state.
type StationLocator interface {
	// Point returns the radar station and time zone covering a coordinate.
	Point(ctx context.Context, lat, lon float64) (PointInfo, error)

	// Station returns the operating state of a radar station.
	Station(ctx context.Context, id string) (StationInfo, error)
}
