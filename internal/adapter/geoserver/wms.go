package geoserver

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-radar/internal/domain"
)

// Capabilities is the part of a WMS capabilities document the compositor
// reads.
type Capabilities struct {
	Times  []time.Time
	Bounds domain.BoundingBox
}

// wmsCapabilities mirrors WMS_Capabilities/Capability. Layers nest
// arbitrarily; the time dimension sits on a child layer.
type wmsCapabilities struct {
	XMLName    xml.Name `xml:"WMS_Capabilities"`
	Capability struct {
		Layer wmsLayer `xml:"Layer"`
	} `xml:"Capability"`
}

type wmsLayer struct {
	Name       string         `xml:"Name"`
	Dimensions []wmsDimension `xml:"Dimension"`
	BBox       *struct {
		West  float64 `xml:"westBoundLongitude"`
		East  float64 `xml:"eastBoundLongitude"`
		South float64 `xml:"southBoundLatitude"`
		North float64 `xml:"northBoundLatitude"`
	} `xml:"EX_GeographicBoundingBox"`
	Layers []wmsLayer `xml:"Layer"`
}

type wmsDimension struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// timeDimension returns the first time dimension found depth-first.
func (l wmsLayer) timeDimension() (string, bool) {
	for _, d := range l.Dimensions {
		if strings.EqualFold(d.Name, "time") {
			return d.Value, true
		}
	}
	for _, child := range l.Layers {
		if v, ok := child.timeDimension(); ok {
			return v, true
		}
	}
	return "", false
}

// ParseCapabilities decodes a WMS 1.3.0 capabilities document.
func ParseCapabilities(data []byte) (Capabilities, error) {
	var doc wmsCapabilities
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Capabilities{}, fmt.Errorf("decode capabilities: %w", err)
	}

	var caps Capabilities
	root := doc.Capability.Layer
	if root.BBox != nil {
		caps.Bounds = domain.BoundingBox{
			MinLon: root.BBox.West,
			MinLat: root.BBox.South,
			MaxLon: root.BBox.East,
			MaxLat: root.BBox.North,
		}
	}

	list, ok := root.timeDimension()
	if !ok {
		return caps, nil
	}
	times, err := domain.ParseTimeList(list)
	if err != nil {
		return Capabilities{}, err
	}
	caps.Times = times
	return caps, nil
}

func capabilitiesQuery() url.Values {
	return url.Values{
		"SERVICE": {"WMS"},
		"VERSION": {"1.3.0"},
		"REQUEST": {"GetCapabilities"},
	}
}

// Capabilities fetches the capabilities of a station's radar layer.
func (c *Client) Capabilities(ctx context.Context, station, layer string) (Capabilities, error) {
	station = strings.ToLower(station)
	path := fmt.Sprintf("%s/%s_%s/wms", station, station, layer)

	body, _, err := c.fetch(ctx, c.endpoint(path, capabilitiesQuery()), "capabilities")
	if err != nil {
		return Capabilities{}, err
	}
	caps, err := ParseCapabilities(body)
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	return caps, nil
}

// FrameTimes lists the times a radar layer has a snapshot for.
func (c *Client) FrameTimes(ctx context.Context, station, layer string) ([]time.Time, error) {
	caps, err := c.Capabilities(ctx, station, layer)
	if err != nil {
		return nil, err
	}
	return caps.Times, nil
}

// RasterAt renders one radar snapshot as a transparent PNG covering bbox.
// WMS 1.3.0 with EPSG:4326 orders the box latitude first.
func (c *Client) RasterAt(ctx context.Context, station, layer string, at time.Time, bbox domain.BoundingBox, size image.Point) (image.Image, error) {
	station = strings.ToLower(station)
	q := url.Values{
		"SERVICE":     {"WMS"},
		"VERSION":     {"1.3.0"},
		"REQUEST":     {"GetMap"},
		"LAYERS":      {station + "_" + layer},
		"STYLES":      {""},
		"WIDTH":       {strconv.Itoa(size.X)},
		"HEIGHT":      {strconv.Itoa(size.Y)},
		"CRS":         {"EPSG:4326"},
		"BBOX":        {formatBBox(bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)},
		"FORMAT":      {"image/png"},
		"TRANSPARENT": {"TRUE"},
		"BGCOLOR":     {"0xFFFFFF"},
		"EXCEPTIONS":  {"application/vnd.ogc.se_inimage"},
		"TIME":        {at.UTC().Format("2006-01-02T15:04:05.000Z")},
	}

	body, header, err := c.fetch(ctx, c.endpoint(station+"/ows", q), "radar")
	if err != nil {
		return nil, err
	}
	if ct := header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: geoserver radar: unexpected content type %q", domain.ErrSourceUnavailable, ct)
	}

	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: decode radar png: %w", domain.ErrSourceUnavailable, err)
	}
	return img, nil
}

func formatBBox(vals ...float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
