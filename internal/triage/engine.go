package triage

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"
)

// TriageMode selects which signals feed the final partition.
type TriageMode string

const (
	ModeVolume    TriageMode = "volume"
	ModeOcclusion TriageMode = "occlusion"
	ModeCombine   TriageMode = "combine"
)

// TriageRequest is one full analysis request. Preset is an opaque host
// value carried through to the persisted run untouched.
type TriageRequest struct {
	Mode      TriageMode      `json:"mode,omitempty"`
	Threshold ThresholdSpec   `json:"threshold"`
	Occlusion OcclusionParams `json:"occlusion,omitempty"`
	GapRatio  float64         `json:"gap_ratio,omitempty"`
	Preset    json.RawMessage `json:"preset,omitempty"`
}

// normalizedMode infers the mode when the caller left it empty: an
// occlusion threshold method means occlusion mode, anything else volume.
func (r TriageRequest) normalizedMode() TriageMode {
	if r.Mode != "" {
		return r.Mode
	}
	if r.Threshold.Method == MethodOcclusion {
		return ModeOcclusion
	}
	return ModeVolume
}

// occlusionParams merges the request's occlusion settings with any
// sensitivity/sample count supplied on the threshold spec.
func (r TriageRequest) occlusionParams() OcclusionParams {
	p := r.Occlusion
	if p.Sensitivity == 0 {
		p.Sensitivity = r.Threshold.Sensitivity
	}
	if p.FineSamples == 0 && r.Threshold.SampleCount != 0 {
		p.FineSamples = r.Threshold.SampleCount
	}
	return p
}

// TriagePartition is the final disjoint split of the valid-object
// universe. Skipped objects failed volume sampling and belong to neither
// set; they are reported, never silently kept.
type TriagePartition struct {
	Collect []*SceneObject
	Keep    []*SceneObject
	Skipped []ObjectError
}

// CollectIDs returns the collect-set object IDs in scene order.
func (p TriagePartition) CollectIDs() []string { return objectIDs(p.Collect) }

// KeepIDs returns the keep-set object IDs in scene order.
func (p TriagePartition) KeepIDs() []string { return objectIDs(p.Keep) }

func objectIDs(objs []*SceneObject) []string {
	ids := make([]string, len(objs))
	for i, o := range objs {
		ids[i] = o.ID
	}
	return ids
}

// RunSummary is the per-run metadata surfaced to the host UI.
type RunSummary struct {
	Elapsed        time.Duration `json:"elapsed_ns"`
	ObjectsTotal   int           `json:"objects_total"`
	ObjectsValid   int           `json:"objects_valid"`
	ObjectsSkipped int           `json:"objects_skipped"`
	CollectCount   int           `json:"collect_count"`
	KeepCount      int           `json:"keep_count"`
	CoarseRays     int           `json:"coarse_rays"`
	FineRays       int           `json:"fine_rays"`
	EarlyExits     int           `json:"early_exits"`
}

// TriageResult bundles everything a run produced. Occlusion is nil for
// pure volume runs; Threshold is nil for pure occlusion runs.
type TriageResult struct {
	Mode      TriageMode
	Partition TriagePartition
	Threshold *ThresholdResult
	Occlusion []OcclusionResult
	Stats     *DistributionStats
	Summary   RunSummary
}

// Engine runs triage passes over a frozen scene snapshot. Analysis is
// read-only with respect to the scene; the host commits the partition
// (or discards it) after the run returns.
type Engine struct {
	scene   *Scene
	workers int
}

// NewEngine creates an engine over a scene snapshot. workers <= 0 uses
// one worker per CPU.
func NewEngine(scene *Scene, workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{scene: scene, workers: workers}
}

// Scene returns the snapshot the engine analyses.
func (e *Engine) Scene() *Scene { return e.scene }

// AnalyzeScene computes volume records for every object and aggregates
// them into a fresh distribution snapshot.
func (e *Engine) AnalyzeScene(ctx context.Context) (*DistributionStats, error) {
	return e.analyze(ctx, 0)
}

func (e *Engine) analyze(ctx context.Context, gapRatio float64) (*DistributionStats, error) {
	records, err := e.volumeRecords(ctx)
	if err != nil {
		return nil, err
	}
	return NewDistributionStats(records, gapRatio), nil
}

// volumeRecords samples every object's volume over the worker pool.
// Results land at fixed indices, so output order matches scene order no
// matter how tasks were scheduled.
func (e *Engine) volumeRecords(ctx context.Context) ([]VolumeRecord, error) {
	records := make([]VolumeRecord, e.scene.Len())

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				records[idx] = SampleVolume(e.scene.Objects[idx])
			}
		}()
	}

dispatch:
	for i := range e.scene.Objects {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Run executes one triage pass: volume sampling, statistics, threshold
// resolution and/or occlusion classification, and the final partition. A
// cancelled context discards all partial results and returns the
// context's error; nothing is committed.
func (e *Engine) Run(ctx context.Context, req TriageRequest) (*TriageResult, error) {
	start := time.Now()
	mode := req.normalizedMode()

	switch mode {
	case ModeVolume, ModeOcclusion, ModeCombine:
	default:
		return nil, &ValidationError{Param: "mode", Reason: "must be volume, occlusion or combine"}
	}
	if mode != ModeOcclusion {
		if err := req.Threshold.Validate(); err != nil {
			return nil, err
		}
		if mode == ModeCombine && req.Threshold.Method == MethodOcclusion {
			return nil, &ValidationError{Param: "threshold", Reason: "combine mode needs a volume-based threshold method"}
		}
	}

	stats, err := e.analyze(ctx, req.GapRatio)
	if err != nil {
		return nil, err
	}
	if stats.ValidObjects == 0 {
		return nil, &ValidationError{Param: "scene", Reason: "no objects with a valid volume"}
	}

	universe := make([]*SceneObject, 0, stats.ValidObjects)
	for _, rec := range stats.Records() {
		universe = append(universe, rec.Object)
	}

	res := &TriageResult{Mode: mode, Stats: stats}

	var volumeSet, occlusionSet map[string]bool

	if mode == ModeVolume || mode == ModeCombine {
		if req.Threshold.Method == MethodOcclusion {
			// An occlusion spec under volume mode is just occlusion mode.
			mode = ModeOcclusion
			res.Mode = mode
		} else {
			threshold, err := ResolveThreshold(req.Threshold, stats)
			if err != nil {
				return nil, err
			}
			res.Threshold = threshold

			excludeID := ""
			if req.Threshold.Method == MethodReference {
				excludeID = req.Threshold.ReferenceID
			}
			volumeSet = idSet(CollectByVolume(stats, threshold.Cutoff, excludeID))
		}
	}

	if mode == ModeOcclusion || mode == ModeCombine {
		classifier := NewOcclusionClassifier(e.scene, universe, req.occlusionParams())
		occlusion, err := classifier.ClassifyAll(ctx)
		if err != nil {
			return nil, err
		}
		res.Occlusion = occlusion

		occlusionSet = make(map[string]bool)
		for _, oc := range occlusion {
			res.Summary.CoarseRays += oc.RaysCoarse
			res.Summary.FineRays += oc.RaysFine
			if oc.EarlyExit {
				res.Summary.EarlyExits++
			}
			if oc.Class.Occluded() {
				occlusionSet[oc.ObjectID] = true
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Partition = combinePartition(universe, volumeSet, occlusionSet, stats.InvalidReasons)
	res.Summary.Elapsed = time.Since(start)
	res.Summary.ObjectsTotal = stats.TotalObjects
	res.Summary.ObjectsValid = stats.ValidObjects
	res.Summary.ObjectsSkipped = stats.InvalidObjects
	res.Summary.CollectCount = len(res.Partition.Collect)
	res.Summary.KeepCount = len(res.Partition.Keep)
	return res, nil
}

func idSet(objs []*SceneObject) map[string]bool {
	set := make(map[string]bool, len(objs))
	for _, o := range objs {
		set[o.ID] = true
	}
	return set
}

// combinePartition merges the volume and occlusion collect-sets by object
// identity and complements over the valid universe. Either set may be
// nil in single-method mode. Universe iteration order fixes the output
// order, so partitions are identical across runs.
func combinePartition(universe []*SceneObject, volumeSet, occlusionSet map[string]bool, skipped []ObjectError) TriagePartition {
	p := TriagePartition{Skipped: skipped}
	for _, obj := range universe {
		if volumeSet[obj.ID] || occlusionSet[obj.ID] {
			p.Collect = append(p.Collect, obj)
		} else {
			p.Keep = append(p.Keep, obj)
		}
	}
	return p
}
