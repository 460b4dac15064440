package main

import "github.com/banshee-data/parts.report/internal/triage"

// triageResponse is the JSON body returned by POST /api/triage.
type triageResponse struct {
	RunID     string                   `json:"run_id,omitempty"`
	Mode      triage.TriageMode        `json:"mode"`
	Threshold *triage.ThresholdResult  `json:"threshold,omitempty"`
	Collect   []string                 `json:"collect"`
	Keep      []string                 `json:"keep"`
	Skipped   []triage.ObjectError     `json:"skipped,omitempty"`
	Occlusion []triage.OcclusionResult `json:"occlusion,omitempty"`
	Summary   triage.RunSummary        `json:"summary"`
}

func newTriageResponse(runID string, res *triage.TriageResult) triageResponse {
	return triageResponse{
		RunID:     runID,
		Mode:      res.Mode,
		Threshold: res.Threshold,
		Collect:   res.Partition.CollectIDs(),
		Keep:      res.Partition.KeepIDs(),
		Skipped:   res.Partition.Skipped,
		Occlusion: res.Occlusion,
		Summary:   res.Summary,
	}
}

// errorResponse is the JSON body for any non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}
