// Package domain models the inputs of a radar frame: map geometry, NWS
// hazard and warning polygons, radar timestamps, and radar station health.
//
// # Data Sources
//
// Radar rasters and the hazard/warning layers come from the NOAA NCEP
// GeoServer (https://opengeo.ncep.noaa.gov/geoserver/). Station metadata and
// point lookups come from the NWS API (https://api.weather.gov). This package
// never talks to either; adapters fetch the data and hand plain values in.
//
// # Projection
//
// Map views use spherical Web Mercator with 256 px tiles, the same scheme as
// the XYZ basemap providers the basemap is stitched from:
//
//	worldX = (lon + 180) / 360 * 256 * 2^zoom
//	worldY = (1 - ln(tan(lat) + sec(lat)) / π) / 2 * 256 * 2^zoom
//
// A pixel inside a view is the world pixel minus the world pixel of the view's
// top-left corner. The view center therefore always lands on (w/2, h/2).
//
// # Time Format
//
// WMS capability documents list layer times as one comma-joined string:
//
//	"2024-04-26T15:02:11.000Z,2024-04-26T15:08:43.000Z,..."
//
// Feature properties (onset, ends, expiration) use "2006-01-02T15:04:05-0700".
// All times are handled in UTC and converted to the station's zone only for
// display. The process-wide local zone is never consulted.
//
// # Hazard Kinds
//
// NWS product types ("prod_type") are free-text titles such as
// "Winter Storm Warning" or "Severe Thunderstorm Watch". Styling keys off
// substrings in a fixed priority order (see [Classify]); the trailing word
// decides urgency:
//
//	"... Warning"  most urgent, red stroke, "!!!" centroid label
//	"... Watch"    yellow stroke, no label
//	anything else  advisory/statement, styled like a watch
//
// # Station Modes
//
// WSR-88D volume coverage patterns R30, R31, R32 and R35 (and "---" when the
// RDA reports none) are clear-air modes: the radar scans slowly, so fewer
// animation frames are worth fetching. See [FrameCountForMode].
package domain
