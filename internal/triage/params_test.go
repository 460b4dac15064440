package triage

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/parts.report/internal/config"
)

func TestRequestJSONRoundTrip(t *testing.T) {
	req := TriageRequest{
		Mode:      ModeCombine,
		Threshold: ThresholdSpec{Method: MethodPercentile, Percentile: 75},
		Occlusion: OcclusionParams{Sensitivity: 0.9, CoarseSamples: 10, FineSamples: 40, VisibleHitLimit: 3},
		GapRatio:  2.5,
	}

	s, err := req.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := RequestFromJSON(s)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(req, got); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}

	if _, err := RequestFromJSON("{nope"); err == nil {
		t.Error("malformed JSON should fail")
	}
}

func TestDefaultRequest(t *testing.T) {
	req := DefaultRequest()
	if req.Mode != ModeVolume {
		t.Errorf("Mode = %s", req.Mode)
	}
	if req.Threshold.Method != MethodPercentile || req.Threshold.Percentile != 80 {
		t.Errorf("Threshold = %+v", req.Threshold)
	}
	if err := req.Threshold.Validate(); err != nil {
		t.Errorf("default request does not validate: %v", err)
	}
}

func TestRequestFromTuning(t *testing.T) {
	if got := RequestFromTuning(nil); got.Occlusion != DefaultOcclusionParams() {
		t.Errorf("nil tuning occlusion = %+v", got.Occlusion)
	}

	sensitivity := 0.8
	coarse := 40
	gap := 4.0
	tuning := &config.Tuning{
		Sensitivity:   &sensitivity,
		CoarseSamples: &coarse,
		GapRatio:      &gap,
	}
	req := RequestFromTuning(tuning)
	if req.Occlusion.Sensitivity != 0.8 || req.Occlusion.CoarseSamples != 40 {
		t.Errorf("tuned occlusion = %+v", req.Occlusion)
	}
	// Unset fields keep their defaults.
	if req.Occlusion.FineSamples != 200 || req.Occlusion.VisibleHitLimit != 5 {
		t.Errorf("default fill-in failed: %+v", req.Occlusion)
	}
	if req.GapRatio != 4 {
		t.Errorf("GapRatio = %v", req.GapRatio)
	}
}
