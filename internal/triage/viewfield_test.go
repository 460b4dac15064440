package triage

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestComputeBounds(t *testing.T) {
	objects := []*SceneObject{
		cubeObject("a", r3.Vec{}, 2),
		cubeObject("b", r3.Vec{X: 4, Y: 0, Z: 0}, 2),
	}
	center, radius := ComputeBounds(objects)

	if center != (r3.Vec{X: 2, Y: 0, Z: 0}) {
		t.Errorf("center = %v, want {2 0 0}", center)
	}
	// Union box spans [-1,5]x[-1,1]x[-1,1]: half diagonal sqrt(9+1+1),
	// scaled by the safety margin.
	want := BoundsSafetyMargin * math.Sqrt(11)
	if math.Abs(radius-want) > 1e-9 {
		t.Errorf("radius = %v, want %v", radius, want)
	}
}

func TestComputeBoundsDegenerate(t *testing.T) {
	point := &TriMesh{
		Verts: []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}},
		Faces: [][3]int{{0, 1, 2}},
	}
	objects := []*SceneObject{NewSceneObject("pt", "pt", IdentityTransform4, point)}

	center, radius := ComputeBounds(objects)
	if center != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("center = %v", center)
	}
	if radius != 1 {
		t.Errorf("degenerate radius = %v, want 1", radius)
	}

	if _, radius := ComputeBounds(nil); radius != 0 {
		t.Errorf("empty scene radius = %v", radius)
	}
}

func TestGenerateViewpoints(t *testing.T) {
	center := r3.Vec{X: 1, Y: 2, Z: 3}
	const radius = 5.0

	pts := GenerateViewpoints(center, radius, 100)
	if len(pts) != 100 {
		t.Fatalf("got %d viewpoints", len(pts))
	}

	// Every viewpoint sits exactly on the enclosing sphere.
	for i, p := range pts {
		d := r3.Norm(r3.Sub(p, center))
		if math.Abs(d-radius) > 1e-9 {
			t.Fatalf("viewpoint %d at distance %v, want %v", i, d, radius)
		}
	}

	// Same inputs always produce the identical sequence.
	again := GenerateViewpoints(center, radius, 100)
	if diff := cmp.Diff(pts, again); diff != "" {
		t.Errorf("viewpoint field not deterministic:\n%s", diff)
	}

	if GenerateViewpoints(center, radius, 0) != nil {
		t.Error("zero count should yield no viewpoints")
	}
}

func TestGenerateViewpointsSpread(t *testing.T) {
	// The golden-angle lattice should cover both hemispheres.
	pts := GenerateViewpoints(r3.Vec{}, 1, 50)
	var above, below int
	for _, p := range pts {
		if p.Y > 0 {
			above++
		} else {
			below++
		}
	}
	if above == 0 || below == 0 {
		t.Errorf("viewpoints clustered on one hemisphere: %d above, %d below", above, below)
	}
}
