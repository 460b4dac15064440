package triage

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// TriMesh is an evaluated (deformer-applied) triangle surface. Faces index
// into Verts. The mesh is treated as immutable once built; analysis passes
// hold read references only.
type TriMesh struct {
	Verts []r3.Vec
	Faces [][3]int
}

// FaceCount returns the number of triangles.
func (m *TriMesh) FaceCount() int {
	return len(m.Faces)
}

// Bounds computes the axis-aligned bounding box of the mesh vertices.
func (m *TriMesh) Bounds() AABB {
	return NewAABB(m.Verts)
}

// Transformed returns a copy of the mesh with every vertex mapped through t.
// Face indices are shared with the receiver since they are never mutated.
func (m *TriMesh) Transformed(t Transform4) *TriMesh {
	if t == IdentityTransform4 {
		return m
	}
	out := &TriMesh{
		Verts: make([]r3.Vec, len(m.Verts)),
		Faces: m.Faces,
	}
	for i, v := range m.Verts {
		out.Verts[i] = t.Apply(v)
	}
	return out
}

// SignedVolume integrates the volume enclosed by the surface via the
// divergence theorem: each face contributes the signed volume of the
// tetrahedron it forms with the origin. Outward-wound closed surfaces
// yield a positive result; open or inverted surfaces can yield zero or
// negative values, which the volume sampler rejects.
func (m *TriMesh) SignedVolume() float64 {
	var vol float64
	for _, f := range m.Faces {
		v0 := m.Verts[f[0]]
		v1 := m.Verts[f[1]]
		v2 := m.Verts[f[2]]
		vol += r3.Dot(v0, r3.Cross(v1, v2))
	}
	return vol / 6
}

// NewBoxMesh builds a closed, outward-wound rectangular box centred at
// center with full extents size. Used by the demo scene generator and as
// the canonical fixture in tests.
func NewBoxMesh(center, size r3.Vec) *TriMesh {
	h := r3.Scale(0.5, size)
	min := r3.Sub(center, h)
	max := r3.Add(center, h)

	verts := []r3.Vec{
		{X: min.X, Y: min.Y, Z: min.Z}, // 0
		{X: max.X, Y: min.Y, Z: min.Z}, // 1
		{X: max.X, Y: max.Y, Z: min.Z}, // 2
		{X: min.X, Y: max.Y, Z: min.Z}, // 3
		{X: min.X, Y: min.Y, Z: max.Z}, // 4
		{X: max.X, Y: min.Y, Z: max.Z}, // 5
		{X: max.X, Y: max.Y, Z: max.Z}, // 6
		{X: min.X, Y: max.Y, Z: max.Z}, // 7
	}
	faces := [][3]int{
		{0, 2, 1}, {0, 3, 2}, // bottom (-Z)
		{4, 5, 6}, {4, 6, 7}, // top (+Z)
		{0, 1, 5}, {0, 5, 4}, // -Y
		{2, 3, 7}, {2, 7, 6}, // +Y
		{1, 2, 6}, {1, 6, 5}, // +X
		{3, 0, 4}, {3, 4, 7}, // -X
	}
	return &TriMesh{Verts: verts, Faces: faces}
}
