// Package render draws and composites the layers of a radar frame.
//
// Every layer is a freshly allocated, fully transparent *image.RGBA of the
// view size. Layers are stacked with [Compose], which folds [Blend] over
// [FrameZOrder]. Blend never mutates its inputs, so a skipped layer leaves
// the accumulated canvas byte-identical.
//
// Vector drawing (polygons, ellipses, capsules, text) goes through
// github.com/fogleman/gg contexts wrapped around the layer's pixels.
package render
