package geometry

import (
	"math"

	"github.com/inkboard/inkboard/internal/shape"
)

// Zone is the part of a shape the pointer is over.
type Zone string

const (
	ZoneNone   Zone = ""
	ZoneCenter Zone = "center"

	ZoneNWCorner Zone = "nw-corner"
	ZoneNECorner Zone = "ne-corner"
	ZoneSECorner Zone = "se-corner"
	ZoneSWCorner Zone = "sw-corner"

	ZoneNEdge Zone = "n-edge"
	ZoneEEdge Zone = "e-edge"
	ZoneSEdge Zone = "s-edge"
	ZoneWEdge Zone = "w-edge"

	ZoneNWRotate Zone = "nw-rotate"
	ZoneNERotate Zone = "ne-rotate"
	ZoneSERotate Zone = "se-rotate"
	ZoneSWRotate Zone = "sw-rotate"

	ZoneStartPoint Zone = "start-point"
	ZoneEndPoint   Zone = "end-point"
)

// Hit-target sizes in screen pixels. Callers divide by the view zoom.
const (
	CornerThreshold  = 12.0
	EdgeThreshold    = 6.0
	RotationZone     = 20.0
	LineHitThreshold = 8.0

	// MinSize is the smallest width or height a resize can produce, in world units.
	MinSize = 10.0
)

func (z Zone) IsCorner() bool {
	switch z {
	case ZoneNWCorner, ZoneNECorner, ZoneSECorner, ZoneSWCorner:
		return true
	}
	return false
}

func (z Zone) IsEdge() bool {
	switch z {
	case ZoneNEdge, ZoneEEdge, ZoneSEdge, ZoneWEdge:
		return true
	}
	return false
}

func (z Zone) IsRotation() bool {
	switch z {
	case ZoneNWRotate, ZoneNERotate, ZoneSERotate, ZoneSWRotate:
		return true
	}
	return false
}

func (z Zone) IsEndpoint() bool {
	return z == ZoneStartPoint || z == ZoneEndPoint
}

// IsResize reports whether dragging the zone resizes an area shape.
func (z Zone) IsResize() bool {
	return z.IsCorner() || z.IsEdge()
}

// IsHandle reports whether the zone starts a manipulation session rather than a move.
func (z Zone) IsHandle() bool {
	return z.IsResize() || z.IsRotation() || z.IsEndpoint()
}

// Hit is the result of classifying a pointer against a shape.
type Hit struct {
	Zone   Zone   `json:"zone"`
	Cursor string `json:"cursor"`
}

const (
	CursorDefault = "default"
	CursorMove    = "move"
	CursorRotate  = "grab"
	CursorPoint   = "crosshair"
)

// resizeCursors is indexed by the handle direction in 45 degree steps modulo 180.
var resizeCursors = [4]string{"ns-resize", "nesw-resize", "ew-resize", "nwse-resize"}

var zoneAngles = map[Zone]float64{
	ZoneNEdge:    0,
	ZoneNECorner: 45,
	ZoneEEdge:    90,
	ZoneSECorner: 135,
	ZoneSEdge:    180,
	ZoneSWCorner: 225,
	ZoneWEdge:    270,
	ZoneNWCorner: 315,
}

// CursorFor returns the cursor hint for a zone on a shape rotated by rotation degrees.
func CursorFor(z Zone, rotation float64) string {
	switch {
	case z == ZoneNone:
		return CursorDefault
	case z == ZoneCenter:
		return CursorMove
	case z.IsRotation():
		return CursorRotate
	case z.IsEndpoint():
		return CursorPoint
	}

	angle := zoneAngles[z] + rotation
	step := int(math.Round(angle/45)) % 4
	if step < 0 {
		step += 4
	}
	return resizeCursors[step]
}

// ClassifyZone reports which zone of s the world point (x, y) falls in.
// Thresholds are divided by viewScale so targets stay a constant screen size.
func ClassifyZone(s shape.Shape, x, y, viewScale float64) Hit {
	scale := normalizeScale(viewScale)

	var z Zone
	if l, ok := s.(shape.Line); ok {
		z = classifyLine(l, x, y, scale)
	} else {
		z = classifyBox(s, x, y, scale)
	}
	return Hit{Zone: z, Cursor: CursorFor(z, s.Meta().Rotation)}
}

func classifyLine(l shape.Line, x, y, scale float64) Zone {
	corner := CornerThreshold / scale

	ds := math.Hypot(x-l.X, y-l.Y)
	de := math.Hypot(x-l.X2, y-l.Y2)
	if ds <= corner || de <= corner {
		if ds <= de {
			return ZoneStartPoint
		}
		return ZoneEndPoint
	}

	dist, t := segmentDistance(l, x, y)
	if l.X == l.X2 && l.Y == l.Y2 {
		return ZoneNone
	}
	if dist <= lineTolerance(l, scale) && t >= 0 && t <= 1 {
		return ZoneCenter
	}
	return ZoneNone
}

func classifyBox(s shape.Shape, x, y, scale float64) Zone {
	f := Frame(s)
	w, h := f.Width, f.Height
	lx, ly := ToLocal(s, x, y)

	corner := CornerThreshold / scale
	edge := EdgeThreshold / scale
	band := RotationZone / scale

	outside := lx < 0 || lx > w || ly < 0 || ly > h

	// Rotation bands: L-shaped regions hugging each corner from the outside.
	if outside {
		nearLeft := lx >= -band && lx <= corner
		nearRight := lx >= w-corner && lx <= w+band
		nearTop := ly >= -band && ly <= corner
		nearBottom := ly >= h-corner && ly <= h+band

		switch {
		case nearLeft && nearTop:
			return ZoneNWRotate
		case nearRight && nearTop:
			return ZoneNERotate
		case nearRight && nearBottom:
			return ZoneSERotate
		case nearLeft && nearBottom:
			return ZoneSWRotate
		}
		return ZoneNone
	}

	dLeft, dRight := lx, w-lx
	dTop, dBottom := ly, h-ly

	west := dLeft <= dRight
	north := dTop <= dBottom
	dx := min(dLeft, dRight)
	dy := min(dTop, dBottom)

	if dx <= corner && dy <= corner {
		switch {
		case north && west:
			return ZoneNWCorner
		case north:
			return ZoneNECorner
		case west:
			return ZoneSWCorner
		default:
			return ZoneSECorner
		}
	}

	nearest := min(dLeft, dRight, dTop, dBottom)
	if nearest <= edge {
		switch nearest {
		case dTop:
			return ZoneNEdge
		case dRight:
			return ZoneEEdge
		case dBottom:
			return ZoneSEdge
		default:
			return ZoneWEdge
		}
	}

	return ZoneCenter
}
