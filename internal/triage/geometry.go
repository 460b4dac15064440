package triage

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform4 is a row-major 4x4 affine world transform:
// [m00,m01,m02,m03, m10,m11,m12,m13, m20,m21,m22,m23, m30,m31,m32,m33].
type Transform4 [16]float64

// IdentityTransform4 maps local coordinates straight to world coordinates.
var IdentityTransform4 = Transform4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// Apply transforms a point. The bottom row is assumed to be [0,0,0,1];
// perspective transforms are not meaningful for scene object placement.
func (t Transform4) Apply(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: t[0]*p.X + t[1]*p.Y + t[2]*p.Z + t[3],
		Y: t[4]*p.X + t[5]*p.Y + t[6]*p.Z + t[7],
		Z: t[8]*p.X + t[9]*p.Y + t[10]*p.Z + t[11],
	}
}

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min, Max r3.Vec
}

// NewAABB computes the bounding box of a point set. An empty set yields
// an inverted box that behaves as the identity for Union.
func NewAABB(points []r3.Vec) AABB {
	b := emptyAABB()
	for _, p := range points {
		b.Extend(p)
	}
	return b
}

func emptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// Extend grows the box to include p.
func (b *AABB) Extend(p r3.Vec) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// Union returns the smallest box enclosing both b and o.
func (b AABB) Union(o AABB) AABB {
	b.Extend(o.Min)
	b.Extend(o.Max)
	return b
}

// Center returns the midpoint of the box.
func (b AABB) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// HalfDiagonal returns half the length of the main diagonal.
func (b AABB) HalfDiagonal() float64 {
	return 0.5 * r3.Norm(r3.Sub(b.Max, b.Min))
}

// ContainsBox reports whether o lies entirely within b. Boundary contact
// counts as contained; callers comparing an object against itself must
// exclude it by identity.
func (b AABB) ContainsBox(o AABB) bool {
	return b.Min.X <= o.Min.X && b.Min.Y <= o.Min.Y && b.Min.Z <= o.Min.Z &&
		b.Max.X >= o.Max.X && b.Max.Y >= o.Max.Y && b.Max.Z >= o.Max.Z
}

// rayEpsilon rejects intersections at or behind the ray origin and
// guards the Möller-Trumbore determinant against parallel triangles.
const rayEpsilon = 1e-9

// Ray is a half-line used for visibility sampling. Dir is unit length.
type Ray struct {
	Origin, Dir r3.Vec
}

// NewRay builds a ray from origin toward target.
func NewRay(origin, target r3.Vec) Ray {
	return Ray{Origin: origin, Dir: r3.Unit(r3.Sub(target, origin))}
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// IntersectsBox is the slab test. It reports whether the ray enters the
// box at any positive parameter, and is used to skip whole meshes before
// per-triangle tests.
func (r Ray) IntersectsBox(b AABB) bool {
	tMin := math.Inf(-1)
	tMax := math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		var origin, dir, lo, hi float64
		switch axis {
		case 0:
			origin, dir, lo, hi = r.Origin.X, r.Dir.X, b.Min.X, b.Max.X
		case 1:
			origin, dir, lo, hi = r.Origin.Y, r.Dir.Y, b.Min.Y, b.Max.Y
		default:
			origin, dir, lo, hi = r.Origin.Z, r.Dir.Z, b.Min.Z, b.Max.Z
		}
		if math.Abs(dir) < rayEpsilon {
			if origin < lo || origin > hi {
				return false
			}
			continue
		}
		t0 := (lo - origin) / dir
		t1 := (hi - origin) / dir
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = math.Max(tMin, t0)
		tMax = math.Min(tMax, t1)
		if tMin > tMax {
			return false
		}
	}
	return tMax > rayEpsilon
}

// IntersectTriangle runs Möller-Trumbore against one triangle and returns
// the ray parameter of the hit. Hits at t <= rayEpsilon are rejected so a
// ray does not re-hit the surface it starts on.
func (r Ray) IntersectTriangle(v0, v1, v2 r3.Vec) (float64, bool) {
	e1 := r3.Sub(v1, v0)
	e2 := r3.Sub(v2, v0)

	p := r3.Cross(r.Dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	invDet := 1 / det

	s := r3.Sub(r.Origin, v0)
	u := r3.Dot(s, p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	q := r3.Cross(s, e1)
	v := r3.Dot(r.Dir, q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := r3.Dot(e2, q) * invDet
	if t <= rayEpsilon {
		return 0, false
	}
	return t, true
}
