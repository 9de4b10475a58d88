package render

import "image"

// LayerKind identifies one slot of the frame stack.
type LayerKind int

const (
	LayerBasemap LayerKind = iota
	LayerHazards
	LayerRadar
	LayerWarnings
	LayerLabels
	LayerMarker
	LayerAnnotations
	LayerOverlay
)

var layerNames = [...]string{
	LayerBasemap:     "basemap",
	LayerHazards:     "hazards",
	LayerRadar:       "radar",
	LayerWarnings:    "warnings",
	LayerLabels:      "labels",
	LayerMarker:      "marker",
	LayerAnnotations: "annotations",
	LayerOverlay:     "overlay",
}

func (k LayerKind) String() string {
	if k < 0 || int(k) >= len(layerNames) {
		return "unknown"
	}
	return layerNames[k]
}

// FrameZOrder is the stacking order of a frame, bottom to top.
var FrameZOrder = []LayerKind{
	LayerBasemap,
	LayerHazards,
	LayerRadar,
	LayerWarnings,
	LayerLabels,
	LayerMarker,
	LayerAnnotations,
	LayerOverlay,
}

// LayerSet holds the layers of one frame. Absent kinds are skipped.
type LayerSet map[LayerKind]image.Image

// Compose folds Blend over FrameZOrder, starting from a transparent canvas of
// the given size. Every present layer must have that size.
func Compose(size image.Point, layers LayerSet) *image.RGBA {
	out := NewLayer(size)
	for _, kind := range FrameZOrder {
		layer, ok := layers[kind]
		if !ok || layer == nil {
			continue
		}
		out = Blend(out, layer)
	}
	return out
}
