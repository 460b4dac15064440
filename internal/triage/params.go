package triage

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/parts.report/internal/config"
)

// DefaultRequest returns the stock analysis request: collect the smallest
// 80% of objects by volume, with default occlusion sampling available for
// combine mode.
func DefaultRequest() TriageRequest {
	return TriageRequest{
		Mode:      ModeVolume,
		Threshold: ThresholdSpec{Method: MethodPercentile, Percentile: 80},
		Occlusion: DefaultOcclusionParams(),
		GapRatio:  DefaultGapRatio,
	}
}

// RequestFromTuning seeds a request from a loaded tuning config. The
// threshold method still comes from the caller; tuning only carries the
// sampling and statistics knobs.
func RequestFromTuning(t *config.Tuning) TriageRequest {
	req := DefaultRequest()
	if t == nil {
		return req
	}
	req.Occlusion = OcclusionParams{
		Sensitivity:     t.GetSensitivity(),
		CoarseSamples:   t.GetCoarseSamples(),
		FineSamples:     t.GetFineSamples(),
		VisibleHitLimit: t.GetVisibleHitLimit(),
		Workers:         t.GetWorkers(),
	}
	req.GapRatio = t.GetGapRatio()
	return req
}

// ToJSON serializes the request for run persistence, so any stored run
// can be replayed with identical parameters.
func (r TriageRequest) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to serialize run params: %w", err)
	}
	return string(data), nil
}

// RequestFromJSON restores a persisted request.
func RequestFromJSON(s string) (TriageRequest, error) {
	var req TriageRequest
	if err := json.Unmarshal([]byte(s), &req); err != nil {
		return TriageRequest{}, fmt.Errorf("failed to parse run params: %w", err)
	}
	return req, nil
}
