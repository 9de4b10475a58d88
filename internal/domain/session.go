package domain

import (
	"context"
	"log/slog"
	"strings"
)

// Session is the immutable per-cycle context: where the radar is pointed and
// which zone its times are displayed in. It is built once per cycle and
// passed by value; nothing reassigns it.
type Session struct {
	Point    GeoPoint
	Station  string // lowercase radar station ID, e.g. "kdix"
	TimeZone string // IANA zone ID, e.g. "America/New_York"
	City     string
	State    string

	// PointSource records how the station was resolved: "point", "fallback",
	// or "failed".
	PointSource string
}

// ResolveSession looks up the radar station and time zone for the session's
// point. If locator is nil or the lookup fails, the fallback station and zone
// already present on base are kept (graceful degradation).
func ResolveSession(ctx context.Context, base Session, locator StationLocator, logger *slog.Logger) Session {
	if locator == nil {
		base.PointSource = "fallback"
		return base
	}

	info, err := locator.Point(ctx, base.Point.Lat, base.Point.Lon)
	if err != nil {
		logger.Warn("point lookup failed, using fallback station",
			"lat", base.Point.Lat,
			"lon", base.Point.Lon,
			"fallback_station", base.Station,
			"error", err,
		)
		base.PointSource = "failed"
		return base
	}
	if info.RadarStation == "" {
		base.PointSource = "fallback"
		return base
	}

	base.Station = strings.ToLower(info.RadarStation)
	if info.TimeZone != "" {
		base.TimeZone = info.TimeZone
	}
	base.City = info.City
	base.State = info.State
	base.PointSource = "point"
	return base
}
