package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/parts.report/internal/triage"
)

// benchScene is three cubes with volumes 1, 8 and 27, spaced far enough
// apart that nothing occludes anything.
func benchScene(t *testing.T) *triage.Scene {
	t.Helper()
	objs := []*triage.SceneObject{
		triage.NewSceneObject("s1", "s1", triage.IdentityTransform4,
			triage.NewBoxMesh(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})),
		triage.NewSceneObject("s2", "s2", triage.IdentityTransform4,
			triage.NewBoxMesh(r3.Vec{X: 6}, r3.Vec{X: 2, Y: 2, Z: 2})),
		triage.NewSceneObject("s3", "s3", triage.IdentityTransform4,
			triage.NewBoxMesh(r3.Vec{X: 14}, r3.Vec{X: 3, Y: 3, Z: 3})),
	}
	scene, err := triage.NewScene("bench.obj", objs)
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	return scene
}

func TestPrintStats(t *testing.T) {
	engine := triage.NewEngine(benchScene(t), 1)
	stats, err := engine.AnalyzeScene(context.Background())
	if err != nil {
		t.Fatalf("AnalyzeScene: %v", err)
	}

	var buf bytes.Buffer
	printStats(&buf, stats)
	out := buf.String()

	if !strings.Contains(out, "Objects: 3 valid, 0 skipped") {
		t.Errorf("missing object counts:\n%s", out)
	}
	if !strings.Contains(out, "Suggested cutoffs:") {
		t.Errorf("missing suggestions:\n%s", out)
	}
	// relative_small is 5% of the largest cube (1.35 m³), which catches
	// only the unit cube: 1 of 3 objects.
	if !strings.Contains(out, "(1 objects, 33.3%)") {
		t.Errorf("missing impact preview for relative_small:\n%s", out)
	}
	if !strings.Contains(out, "Natural gaps:") {
		t.Errorf("missing gap report:\n%s", out)
	}
}

func TestPrintResult(t *testing.T) {
	engine := triage.NewEngine(benchScene(t), 1)
	manager := triage.NewRunManager(nil, engine)

	runID, res, err := manager.Execute(context.Background(), triage.DefaultRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var buf bytes.Buffer
	printResult(&buf, runID, res, false)
	out := buf.String()

	// Percentile 80 over [1, 8, 27] cuts at 19.4: collect s1 and s2.
	if !strings.Contains(out, "Collect 2 / keep 1 of 3 valid objects") {
		t.Errorf("missing partition summary:\n%s", out)
	}
	if !strings.Contains(out, "collect s1") || !strings.Contains(out, "collect s2") {
		t.Errorf("missing collect lines:\n%s", out)
	}
	if strings.Contains(out, "Run ") {
		t.Errorf("run line printed without persistence:\n%s", out)
	}

	buf.Reset()
	printResult(&buf, runID, res, true)
	if !strings.Contains(buf.String(), "Run "+runID) {
		t.Errorf("missing run line:\n%s", buf.String())
	}
}
