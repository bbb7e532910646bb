package geometry

import (
	"math"

	"github.com/inkboard/inkboard/internal/shape"
)

// Frame returns the unrotated box of an area shape in world coordinates. Rotation
// is applied around the box center. For lines it returns the endpoint bounds.
func Frame(s shape.Shape) Rect {
	switch v := s.(type) {
	case shape.Rect:
		return Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
	case shape.Ellipse:
		return Rect{X: v.X - v.RadiusX, Y: v.Y - v.RadiusY, Width: v.RadiusX * 2, Height: v.RadiusY * 2}
	case shape.Text:
		return Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
	case shape.Sticky:
		return Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
	case shape.Line:
		return RectFromPoints(v.X, v.Y, v.X2, v.Y2)
	default:
		return Rect{}
	}
}

// Center returns the pivot a shape rotates around.
func Center(s shape.Shape) (float64, float64) {
	return Frame(s).Center()
}

// FrameMatrix maps a shape's local coordinates, where (0, 0) is the top-left of
// the unrotated box, into world space.
func FrameMatrix(s shape.Shape) Matrix2D {
	f := Frame(s)
	return FromTransform(f.X, f.Y, 1, 1, s.Meta().Rotation, f.Width/2, f.Height/2)
}

// ToLocal converts a world point into the shape's local, unrotated frame.
func ToLocal(s shape.Shape, x, y float64) (float64, float64) {
	return FrameMatrix(s).Invert().TransformPoint(x, y)
}

// ToWorld converts a local point back into world space.
func ToWorld(s shape.Shape, lx, ly float64) (float64, float64) {
	return FrameMatrix(s).TransformPoint(lx, ly)
}

// AABB returns the world-space axis-aligned bounds of a shape, rotation included.
func AABB(s shape.Shape) Rect {
	if _, ok := s.(shape.Line); ok {
		return Frame(s)
	}
	f := Frame(s)
	return FrameMatrix(s).TransformRect(Rect{Width: f.Width, Height: f.Height})
}

// BoundsOf returns the union of the AABBs of shapes, and false for an empty slice.
func BoundsOf(shapes []shape.Shape) (Rect, bool) {
	if len(shapes) == 0 {
		return Rect{}, false
	}
	out := AABB(shapes[0])
	for _, s := range shapes[1:] {
		out = out.Union(AABB(s))
	}
	return out, true
}

// Contains reports whether a world point lies on the shape. viewScale keeps the
// line tolerance constant in screen space.
func Contains(s shape.Shape, x, y, viewScale float64) bool {
	scale := normalizeScale(viewScale)

	switch v := s.(type) {
	case shape.Line:
		dist, t := segmentDistance(v, x, y)
		return t >= 0 && t <= 1 && dist <= lineTolerance(v, scale)
	case shape.Ellipse:
		if v.RadiusX <= 0 || v.RadiusY <= 0 {
			return false
		}
		lx, ly := ToLocal(s, x, y)
		nx := (lx - v.RadiusX) / v.RadiusX
		ny := (ly - v.RadiusY) / v.RadiusY
		return nx*nx+ny*ny <= 1
	default:
		f := Frame(s)
		lx, ly := ToLocal(s, x, y)
		return lx >= 0 && lx <= f.Width && ly >= 0 && ly <= f.Height
	}
}

// segmentDistance returns the perpendicular distance from (x, y) to the infinite
// line through the segment and the projection parameter along it. A zero-length
// segment reports the distance to its single point with t = 0.
func segmentDistance(l shape.Line, x, y float64) (dist, t float64) {
	dx, dy := l.X2-l.X, l.Y2-l.Y
	length2 := dx*dx + dy*dy
	if length2 == 0 {
		return math.Hypot(x-l.X, y-l.Y), 0
	}
	t = ((x-l.X)*dx + (y-l.Y)*dy) / length2
	cross := (x-l.X)*dy - (y-l.Y)*dx
	return math.Abs(cross) / math.Sqrt(length2), t
}

// lineTolerance is the screen-space hit threshold widened by half the stroke,
// so a thick line is hittable anywhere its paint covers.
func lineTolerance(l shape.Line, scale float64) float64 {
	return LineHitThreshold/scale + l.StrokeWidth/2
}

func normalizeScale(viewScale float64) float64 {
	if viewScale <= 0 || math.IsNaN(viewScale) || math.IsInf(viewScale, 0) {
		return 1
	}
	return viewScale
}
