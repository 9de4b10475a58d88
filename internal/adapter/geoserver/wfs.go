package geoserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-radar/internal/domain"
)

// WFS type names of the two alert layers in the "wwa" workspace.
const (
	typeHazards  = "hazards"
	typeWarnings = "warnings"
)

var errNoFileDate = errors.New("no IDP file date published")

// alertTimeLayouts are tried in order for onset, ends and expiration.
var alertTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

// Active returns the hazards and warnings intersecting area. The kind filter
// narrows hazards only; every warning in the area is returned. The two layers
// are fetched independently and each carries its own error.
func (c *Client) Active(ctx context.Context, kinds []string, area domain.BoundingBox) domain.ActiveAlerts {
	var out domain.ActiveAlerts

	features, err := c.features(ctx, typeHazards, kinds, area)
	if err != nil {
		c.logger.Warn("hazard lookup failed", "error", err)
		out.HazardsErr = err
	} else {
		out.Hazards = hazardsFrom(features)
	}

	features, err = c.features(ctx, typeWarnings, nil, area)
	if err != nil {
		c.logger.Warn("warning lookup failed", "error", err)
		out.WarningsErr = err
	} else {
		out.Warnings = warningsFrom(features)
	}
	return out
}

func (c *Client) features(ctx context.Context, typeName string, kinds []string, area domain.BoundingBox) ([]feature, error) {
	fileDate, err := c.latestFileDate(ctx, typeName)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"service":      {"wfs"},
		"version":      {"2.0.0"},
		"request":      {"GetFeature"},
		"outputFormat": {"application/json"},
		"typeNames":    {typeName},
		"srsName":      {"EPSG:4326"},
		"cql_filter":   {CQLFilter(fileDate, area, kinds)},
	}
	body, _, err := c.fetch(ctx, c.endpoint("wwa/ows", q), typeName)
	if err != nil {
		return nil, err
	}

	fc, err := decodeFeatures(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, typeName, err)
	}
	c.logger.Debug("alerts fetched", "type", typeName, "total", fc.TotalFeatures, "file_date", fileDate)
	return fc.Features, nil
}

// latestFileDate reads the most recent publication time of an alert layer.
// Only features from that publication are current.
func (c *Client) latestFileDate(ctx context.Context, typeName string) (time.Time, error) {
	body, _, err := c.fetch(ctx, c.endpoint("wwa/"+typeName+"/ows", capabilitiesQuery()), typeName+"_capabilities")
	if err != nil {
		return time.Time{}, err
	}
	caps, err := ParseCapabilities(body)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	latest := domain.SelectFrameTimes(caps.Times, 1)
	if len(latest) == 0 {
		return time.Time{}, fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, typeName, errNoFileDate)
	}
	return latest[0], nil
}

// CQLFilter builds the GetFeature filter: features of one publication inside
// area, optionally restricted to product types containing any of kinds.
func CQLFilter(fileDate time.Time, area domain.BoundingBox, kinds []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "IDP_FileDate = %s AND BBOX(geom,%s,'EPSG:4326')",
		fileDate.UTC().Format("2006-01-02T15:04:05.000Z"),
		formatBBox(area.MinLon, area.MinLat, area.MaxLon, area.MaxLat))

	terms := make([]string, 0, len(kinds))
	for _, k := range kinds {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		terms = append(terms, "prod_type LIKE '%"+strings.ReplaceAll(k, "'", "''")+"%'")
	}
	if len(terms) > 0 {
		b.WriteString(" AND (" + strings.Join(terms, " OR ") + ")")
	}
	return b.String()
}

// ParseHazards decodes a GeoJSON hazards collection as served by GetFeature.
func ParseHazards(data []byte) ([]domain.Hazard, error) {
	fc, err := decodeFeatures(data)
	if err != nil {
		return nil, err
	}
	return hazardsFrom(fc.Features), nil
}

// ParseWarnings decodes a GeoJSON warnings collection as served by GetFeature.
func ParseWarnings(data []byte) ([]domain.Warning, error) {
	fc, err := decodeFeatures(data)
	if err != nil {
		return nil, err
	}
	return warningsFrom(fc.Features), nil
}

func decodeFeatures(data []byte) (featureCollection, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return featureCollection{}, fmt.Errorf("decode features: %w", err)
	}
	return fc, nil
}

// GeoJSON response types.

type featureCollection struct {
	TotalFeatures int       `json:"totalFeatures"`
	Features      []feature `json:"features"`
}

type feature struct {
	Geometry   *geometry `json:"geometry"`
	Properties struct {
		ProdType   string `json:"prod_type"`
		CapID      string `json:"cap_id"`
		Onset      string `json:"onset"`
		Ends       string `json:"ends"`
		Expiration string `json:"expiration"`
	} `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// outerRing returns the exterior ring of a Polygon, or of the first polygon of
// a MultiPolygon.
func (g *geometry) outerRing() (domain.Polygon, error) {
	if g == nil {
		return domain.Polygon{}, errors.New("missing geometry")
	}

	var ring [][]float64
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return domain.Polygon{}, err
		}
		if len(rings) > 0 {
			ring = rings[0]
		}
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return domain.Polygon{}, err
		}
		if len(polys) > 0 && len(polys[0]) > 0 {
			ring = polys[0][0]
		}
	default:
		return domain.Polygon{}, fmt.Errorf("unsupported geometry %q", g.Type)
	}

	poly := domain.Polygon{Points: make([]domain.GeoPoint, 0, len(ring))}
	for _, pt := range ring {
		if len(pt) < 2 {
			continue
		}
		poly.Points = append(poly.Points, domain.GeoPoint{Lon: pt[0], Lat: pt[1]})
	}
	return poly, nil
}

func hazardsFrom(features []feature) []domain.Hazard {
	out := make([]domain.Hazard, 0, len(features))
	for _, f := range features {
		poly, err := f.Geometry.outerRing()
		if err != nil {
			continue
		}
		ends := f.Properties.Ends
		if ends == "" {
			ends = f.Properties.Expiration
		}
		out = append(out, domain.Hazard{
			Kind:       f.Properties.ProdType,
			Onset:      parseAlertTime(f.Properties.Onset),
			Expiration: parseAlertTime(ends),
			Polygon:    poly,
		})
	}
	return out
}

func warningsFrom(features []feature) []domain.Warning {
	out := make([]domain.Warning, 0, len(features))
	for _, f := range features {
		poly, err := f.Geometry.outerRing()
		if err != nil {
			continue
		}
		out = append(out, domain.Warning{
			Kind:       f.Properties.ProdType,
			Expiration: parseAlertTime(f.Properties.Expiration),
			Polygon:    poly,
		})
	}
	return out
}

// parseAlertTime returns the zero time for empty or unrecognized values.
func parseAlertTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range alertTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
