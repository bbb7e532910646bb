package geometry

import (
	"math"

	"github.com/inkboard/inkboard/internal/shape"
)

// ComputeResize returns the patch that resizes original so the dragged zone follows
// the pointer while the opposite side stays fixed. The pointer is unrotated around the
// original center with the original rotation, so repeated calls from the same
// original never drift. It returns false for lines and non-resize zones.
func ComputeResize(zone Zone, px, py float64, original shape.Shape) (shape.Patch, bool) {
	if !zone.IsResize() {
		return shape.Patch{}, false
	}
	if _, ok := original.(shape.Line); ok {
		return shape.Patch{}, false
	}

	f := Frame(original)
	cx, cy := f.Center()
	rot := original.Meta().Rotation

	ux, uy := RotateAbout(cx, cy, -rot).TransformPoint(px, py)

	left, right := f.X, f.X+f.Width
	top, bottom := f.Y, f.Y+f.Height

	switch zone {
	case ZoneNECorner, ZoneSECorner, ZoneEEdge:
		left, right = span(f.X, ux)
	case ZoneNWCorner, ZoneSWCorner, ZoneWEdge:
		left, right = span(f.X+f.Width, ux)
	}
	switch zone {
	case ZoneSECorner, ZoneSWCorner, ZoneSEdge:
		top, bottom = span(f.Y, uy)
	case ZoneNECorner, ZoneNWCorner, ZoneNEdge:
		top, bottom = span(f.Y+f.Height, uy)
	}

	w, h := right-left, bottom-top
	ncx, ncy := left+w/2, top+h/2
	if rot != 0 {
		ncx, ncy = RotateAbout(cx, cy, rot).TransformPoint(ncx, ncy)
	}

	switch original.(type) {
	case shape.Ellipse:
		return shape.Patch{
			X:       shape.Float(ncx),
			Y:       shape.Float(ncy),
			RadiusX: shape.Float(w / 2),
			RadiusY: shape.Float(h / 2),
		}, true
	default:
		return shape.Patch{
			X:      shape.Float(ncx - w/2),
			Y:      shape.Float(ncy - h/2),
			Width:  shape.Float(w),
			Height: shape.Float(h),
		}, true
	}
}

// span returns the interval between anchor and p, at least MinSize long, on
// whichever side of the anchor p lies.
func span(anchor, p float64) (float64, float64) {
	size := math.Max(math.Abs(p-anchor), MinSize)
	if p >= anchor {
		return anchor, anchor + size
	}
	return anchor - size, anchor
}

// ComputeEndpoint moves one end of a line to the pointer.
func ComputeEndpoint(zone Zone, px, py float64) (shape.Patch, bool) {
	switch zone {
	case ZoneStartPoint:
		return shape.Patch{X: shape.Float(px), Y: shape.Float(py)}, true
	case ZoneEndPoint:
		return shape.Patch{X2: shape.Float(px), Y2: shape.Float(py)}, true
	default:
		return shape.Patch{}, false
	}
}
