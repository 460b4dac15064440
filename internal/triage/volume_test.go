package triage

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// cubeObject is the standard test fixture: a closed cube of the given
// edge length, so its volume is size cubed.
func cubeObject(id string, center r3.Vec, size float64) *SceneObject {
	mesh := NewBoxMesh(center, r3.Vec{X: size, Y: size, Z: size})
	return NewSceneObject(id, id, IdentityTransform4, mesh)
}

// planarObject has faces but enscribes no volume.
func planarObject(id string) *SceneObject {
	mesh := &TriMesh{
		Verts: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 1, Z: 0},
		},
		Faces: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
	return NewSceneObject(id, id, IdentityTransform4, mesh)
}

func TestSampleVolumeValid(t *testing.T) {
	rec := SampleVolume(cubeObject("cube", r3.Vec{}, 2))
	if !rec.Valid {
		t.Fatalf("cube should be valid, got reason %q", rec.Reason)
	}
	if math.Abs(rec.Volume-8) > 1e-9 {
		t.Errorf("Volume = %v, want 8", rec.Volume)
	}
}

func TestSampleVolumeNoFaces(t *testing.T) {
	obj := NewSceneObject("empty", "empty", IdentityTransform4, &TriMesh{})
	rec := SampleVolume(obj)
	if rec.Valid {
		t.Fatal("empty mesh should be invalid")
	}
	if !strings.Contains(rec.Reason, "no faces") {
		t.Errorf("Reason = %q", rec.Reason)
	}
}

func TestSampleVolumePlanar(t *testing.T) {
	rec := SampleVolume(planarObject("plane"))
	if rec.Valid {
		t.Fatal("planar mesh should be invalid")
	}
	if !strings.Contains(rec.Reason, "zero volume") {
		t.Errorf("Reason = %q", rec.Reason)
	}
}

func TestSampleVolumeInverted(t *testing.T) {
	box := NewBoxMesh(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	inverted := &TriMesh{Verts: box.Verts, Faces: make([][3]int, len(box.Faces))}
	for i, f := range box.Faces {
		inverted.Faces[i] = [3]int{f[0], f[2], f[1]}
	}
	rec := SampleVolume(NewSceneObject("inv", "inv", IdentityTransform4, inverted))
	if rec.Valid {
		t.Fatal("inverted mesh should be invalid")
	}
	if !strings.Contains(rec.Reason, "negative volume") {
		t.Errorf("Reason = %q", rec.Reason)
	}
}
