package triage

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoundsSafetyMargin scales the enclosing-sphere radius so every
// viewpoint is guaranteed to sit outside all scene geometry.
const BoundsSafetyMargin = 1.5

// goldenAngle spaces successive viewpoints around the sphere azimuth.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// ComputeBounds approximates the smallest sphere enclosing the scene by
// the center and half-diagonal of the union of all world bounding boxes,
// scaled by the safety margin. A degenerate (point) scene still gets a
// positive radius so viewpoints never coincide with geometry.
func ComputeBounds(objects []*SceneObject) (r3.Vec, float64) {
	if len(objects) == 0 {
		return r3.Vec{}, 0
	}
	union := objects[0].Bounds()
	for _, o := range objects[1:] {
		union = union.Union(o.Bounds())
	}
	radius := union.HalfDiagonal() * BoundsSafetyMargin
	if radius == 0 {
		radius = 1
	}
	return union.Center(), radius
}

// GenerateViewpoints distributes count positions over a sphere using the
// golden-angle (Fibonacci) lattice. The sequence is deterministic for a
// given (center, radius, count): repeated runs sample identical rays, and
// a larger count refines the same distribution.
func GenerateViewpoints(center r3.Vec, radius float64, count int) []r3.Vec {
	if count <= 0 {
		return nil
	}
	points := make([]r3.Vec, count)
	for i := 0; i < count; i++ {
		// Latitude band: y descends evenly from ~1 to ~-1, offset by
		// half a step so poles are never sampled exactly.
		y := 1 - 2*(float64(i)+0.5)/float64(count)
		band := math.Sqrt(1 - y*y)
		theta := float64(i) * goldenAngle

		unit := r3.Vec{
			X: math.Cos(theta) * band,
			Y: y,
			Z: math.Sin(theta) * band,
		}
		points[i] = r3.Add(center, r3.Scale(radius, unit))
	}
	return points
}
