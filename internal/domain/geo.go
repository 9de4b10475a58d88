package domain

import (
	"image"
	"math"
)

// tileSize is the edge length in pixels of one Web Mercator tile.
const tileSize = 256

// maxMercatorLat clamps latitudes so the Mercator y stays finite.
const maxMercatorLat = 85.05112878

// GeoPoint is a WGS-84 longitude/latitude pair.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// BoundingBox is a geographic extent. A single point is a box whose min and
// max corners coincide.
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// PointBox returns the degenerate box covering exactly p.
func PointBox(p GeoPoint) BoundingBox {
	return BoundingBox{MinLon: p.Lon, MinLat: p.Lat, MaxLon: p.Lon, MaxLat: p.Lat}
}

// IsPoint reports whether the box has no area.
func (b BoundingBox) IsPoint() bool {
	return b.MinLon == b.MaxLon && b.MinLat == b.MaxLat
}

// Polygon is a closed ring of points. Order defines the boundary path.
type Polygon struct {
	Points []GeoPoint `json:"points"`
}

// Degenerate reports whether the ring has too few points to enclose an area.
func (p Polygon) Degenerate() bool {
	return len(p.Points) < 3
}

// MapView fixes the projection for one rendering batch. It is built once by
// NewMapView and never modified; every layer of a frame must use the same view.
type MapView struct {
	center GeoPoint
	zoom   int
	width  int
	height int

	// world pixel of the canvas origin (top-left)
	originX float64
	originY float64
	extent  BoundingBox
}

// NewMapView builds a view of width×height pixels centered on center.
func NewMapView(center GeoPoint, zoom, width, height int) MapView {
	cx, cy := worldPixel(center, zoom)
	v := MapView{
		center:  center,
		zoom:    zoom,
		width:   width,
		height:  height,
		originX: cx - float64(width)/2,
		originY: cy - float64(height)/2,
	}
	nw := v.unproject(0, 0)
	se := v.unproject(float64(width), float64(height))
	v.extent = BoundingBox{MinLon: nw.Lon, MinLat: se.Lat, MaxLon: se.Lon, MaxLat: nw.Lat}
	return v
}

func (v MapView) Center() GeoPoint { return v.center }
func (v MapView) Zoom() int { return v.zoom }
func (v MapView) Extent() BoundingBox { return v.extent }
func (v MapView) Size() image.Point { return image.Pt(v.width, v.height) }

func (v MapView) Bounds() image.Rectangle {
	return image.Rect(0, 0, v.width, v.height)
}

// CenterPixel is the pixel the view center projects to.
func (v MapView) CenterPixel() (x, y float64) {
	return float64(v.width) / 2, float64(v.height) / 2
}

// Origin returns the world pixel of the canvas top-left corner. Tile-based
// basemap sources use it to place tiles.
func (v MapView) Origin() (x, y float64) {
	return v.originX, v.originY
}

// Project converts a geographic point into canvas pixel coordinates. Points
// outside the extent yield coordinates outside the canvas.
func (v MapView) Project(p GeoPoint) (x, y float64) {
	if p == v.center {
		// exact, independent of float cancellation
		return v.CenterPixel()
	}
	wx, wy := worldPixel(p, v.zoom)
	return wx - v.originX, wy - v.originY
}

// PixelPolygon projects every vertex and rounds it to the nearest pixel,
// once. Geometry derived from the ring should be computed from these points.
func (v MapView) PixelPolygon(poly Polygon) []image.Point {
	pts := make([]image.Point, 0, len(poly.Points))
	for _, p := range poly.Points {
		x, y := v.Project(p)
		pts = append(pts, image.Pt(int(math.Round(x)), int(math.Round(y))))
	}
	return pts
}

func (v MapView) unproject(x, y float64) GeoPoint {
	scale := float64(tileSize) * math.Exp2(float64(v.zoom))
	wx := (x + v.originX) / scale
	wy := (y + v.originY) / scale
	lon := wx*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*wy))) * 180 / math.Pi
	return GeoPoint{Lon: lon, Lat: lat}
}

func worldPixel(p GeoPoint, zoom int) (x, y float64) {
	scale := float64(tileSize) * math.Exp2(float64(zoom))
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p.Lat))
	phi := lat * math.Pi / 180
	x = (p.Lon + 180) / 360 * scale
	y = (1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2 * scale
	return x, y
}
