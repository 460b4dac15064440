package triage

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// nestedScene is three concentric cubes: a 10m enclosure, a 4m box and a
// 1m part. Only the outer cube can be seen from outside.
func nestedScene(t *testing.T) *Scene {
	t.Helper()
	scene, err := NewScene("nested", []*SceneObject{
		cubeObject("outer", r3.Vec{}, 10),
		cubeObject("middle", r3.Vec{}, 4),
		cubeObject("inner", r3.Vec{}, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	return scene
}

// dumbbellObject is one mesh made of two disjoint cubes. Its bounding box
// spans both lobes and therefore contains anything sitting between them,
// even though the geometry does not block sight of it.
func dumbbellObject(id string) *SceneObject {
	left := NewBoxMesh(r3.Vec{X: -5, Y: 0, Z: 0}, r3.Vec{X: 1, Y: 1, Z: 1})
	right := NewBoxMesh(r3.Vec{X: 5, Y: 0, Z: 0}, r3.Vec{X: 1, Y: 1, Z: 1})

	mesh := &TriMesh{Verts: append([]r3.Vec{}, left.Verts...)}
	mesh.Faces = append(mesh.Faces, left.Faces...)
	offset := len(left.Verts)
	mesh.Verts = append(mesh.Verts, right.Verts...)
	for _, f := range right.Faces {
		mesh.Faces = append(mesh.Faces, [3]int{f[0] + offset, f[1] + offset, f[2] + offset})
	}
	return NewSceneObject(id, id, IdentityTransform4, mesh)
}

func classByID(results []OcclusionResult) map[string]OcclusionResult {
	out := make(map[string]OcclusionResult, len(results))
	for _, r := range results {
		out[r.ObjectID] = r
	}
	return out
}

func TestClassifyNestedCubes(t *testing.T) {
	scene := nestedScene(t)
	params := OcclusionParams{
		Sensitivity:     0.95,
		CoarseSamples:   100,
		FineSamples:     200,
		VisibleHitLimit: 5,
		Workers:         2,
	}
	classifier := NewOcclusionClassifier(scene, scene.Objects, params)

	results, err := classifier.ClassifyAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	byID := classByID(results)

	if got := byID["outer"]; got.Class != ClassBBoxClear {
		t.Errorf("outer = %s, want bbox_clear", got.ClassName)
	}
	if got := byID["outer"]; got.RaysTested() != 0 {
		t.Errorf("outer cast %d rays, want 0", got.RaysTested())
	}

	for _, id := range []string{"middle", "inner"} {
		got := byID[id]
		if got.Class != ClassFineOccluded {
			t.Errorf("%s = %s, want fine_occluded", id, got.ClassName)
		}
		if got.Fraction != 1 {
			t.Errorf("%s fraction = %v, want 1", id, got.Fraction)
		}
		if got.RaysFine == 0 {
			t.Errorf("%s skipped the fine stage", id)
		}
		if got.EarlyExit {
			t.Errorf("%s reported an early exit on a fully occluded object", id)
		}
	}
}

func TestClassifyCoarseTerminalAtLowSensitivity(t *testing.T) {
	// With sensitivity at or below the coarse threshold the coarse
	// verdict is final and the fine stage never runs.
	scene := nestedScene(t)
	params := OcclusionParams{
		Sensitivity:     0.9,
		CoarseSamples:   50,
		FineSamples:     200,
		VisibleHitLimit: 5,
		Workers:         1,
	}
	classifier := NewOcclusionClassifier(scene, scene.Objects, params)

	results, err := classifier.ClassifyAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	byID := classByID(results)

	got := byID["inner"]
	if got.Class != ClassCoarseOccluded {
		t.Errorf("inner = %s, want coarse_occluded", got.ClassName)
	}
	if got.RaysFine != 0 {
		t.Errorf("inner cast %d fine rays after a terminal coarse verdict", got.RaysFine)
	}
	if !got.Class.Occluded() {
		t.Error("coarse_occluded should count as occluded")
	}
}

func TestClassifyVisibleCandidate(t *testing.T) {
	// The dumbbell's bounding box contains the small cube, making it a
	// stage-2 candidate, but the open line of sight ends sampling early.
	scene, err := NewScene("dumbbell", []*SceneObject{
		dumbbellObject("frame"),
		cubeObject("part", r3.Vec{}, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	classifier := NewOcclusionClassifier(scene, scene.Objects, DefaultOcclusionParams())

	results, err := classifier.ClassifyAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	byID := classByID(results)

	part := byID["part"]
	if part.Class != ClassCoarseVisible {
		t.Fatalf("part = %s, want coarse_visible", part.ClassName)
	}
	if !part.EarlyExit {
		t.Error("visible object should finish via early exit")
	}
	if part.RaysFine != 0 {
		t.Errorf("part cast %d fine rays", part.RaysFine)
	}
	if part.Class.Occluded() {
		t.Error("coarse_visible must not count as occluded")
	}
}

func TestClassifyAllCancellation(t *testing.T) {
	scene := nestedScene(t)
	classifier := NewOcclusionClassifier(scene, scene.Objects, DefaultOcclusionParams())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := classifier.ClassifyAll(ctx); err != context.Canceled {
		t.Errorf("cancelled classify returned %v, want context.Canceled", err)
	}
}

func TestTargetPointsRefinement(t *testing.T) {
	scene := nestedScene(t)
	classifier := NewOcclusionClassifier(scene, scene.Objects, DefaultOcclusionParams())

	// The middle cube is large relative to the scene and refines to nine
	// target points; the small inner cube keeps a single center target.
	if got := len(classifier.targetPoints(scene.Object("middle"))); got != 9 {
		t.Errorf("middle target points = %d, want 9", got)
	}
	if got := len(classifier.targetPoints(scene.Object("inner"))); got != 1 {
		t.Errorf("inner target points = %d, want 1", got)
	}

	// Refinement points are pulled inside the bounding box.
	b := scene.Object("middle").Bounds()
	for i, p := range classifier.targetPoints(scene.Object("middle")) {
		if p.X < b.Min.X || p.X > b.Max.X || p.Y < b.Min.Y || p.Y > b.Max.Y || p.Z < b.Min.Z || p.Z > b.Max.Z {
			t.Errorf("target %d at %v escapes bounds %+v", i, p, b)
		}
	}
}
