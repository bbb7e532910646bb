package geometry

import (
	"math"

	"github.com/inkboard/inkboard/internal/shape"
)

// ComputeRotation returns initial plus the angle swept around the shape center
// between the drag start and the current pointer. The swept angle is normalized to
// (-180, 180]; sessions feed successive values through UnwrapDegrees to keep
// turning past a half revolution.
func ComputeRotation(s shape.Shape, px, py, startX, startY, initial float64) float64 {
	if px == startX && py == startY {
		return initial
	}
	cx, cy := Center(s)
	current := math.Atan2(py-cy, px-cx)
	start := math.Atan2(startY-cy, startX-cx)
	return initial + NormalizeDegrees((current-start)*180/math.Pi)
}

// NormalizeDegrees maps an angle into (-180, 180].
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// UnwrapDegrees returns the angle equivalent to deg, modulo 360, closest to prev.
func UnwrapDegrees(deg, prev float64) float64 {
	k := math.Round((prev - deg) / 360)
	return deg + 360*k
}
